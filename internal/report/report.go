// Package report renders scan results for people: a Markdown summary, the
// JSON payload the task pane consumes, and a printable PDF.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/paperpilot/internal/scan"
)

// Scan bundles the caption and citation results of one document.
// A nil result means that kind was not scanned.
type Scan struct {
	Document    string       `json:"document,omitempty"`
	ProfileID   string       `json:"profileId,omitempty"`
	ProfileName string       `json:"profileName,omitempty"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Captions    *scan.Result `json:"captions,omitempty"`
	Citations   *scan.Result `json:"citations,omitempty"`
	// Errors carries configuration errors per kind, e.g. a profile without
	// caption rules.
	Errors map[scan.Kind]string `json:"errors,omitempty"`
}

// Options tune the Markdown output.
type Options struct {
	// IncludeLogs appends each scan's decision trace.
	IncludeLogs bool
}

// IssueCount returns the number of issues across both kinds.
func (s Scan) IssueCount() int {
	n := 0
	if s.Captions != nil {
		n += len(s.Captions.Issues)
	}
	if s.Citations != nil {
		n += len(s.Citations.Issues)
	}
	return n
}

// JSON renders the scan as indented JSON.
func JSON(s Scan) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Markdown renders a human summary of the scan.
func Markdown(s Scan, opts Options) string {
	var b strings.Builder
	title := "Manuscript check"
	if s.Document != "" {
		title += ": " + s.Document
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if s.ProfileName != "" {
		fmt.Fprintf(&b, "Journal: %s (%s)\n\n", s.ProfileName, s.ProfileID)
	} else if s.ProfileID != "" {
		fmt.Fprintf(&b, "Journal: %s\n\n", s.ProfileID)
	}
	if !s.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Issues found: %d\n\n", s.IssueCount())

	writeSection(&b, "Captions", scan.KindCaption, s.Captions, s.Errors, opts)
	writeSection(&b, "Citations", scan.KindCitation, s.Citations, s.Errors, opts)
	return b.String()
}

func writeSection(b *strings.Builder, heading string, kind scan.Kind, r *scan.Result, errs map[scan.Kind]string, opts Options) {
	if r == nil && errs[kind] == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	if msg := errs[kind]; msg != "" {
		fmt.Fprintf(b, "Configuration error: %s\n\n", msg)
	}
	if r == nil {
		return
	}
	st := r.Stats
	fmt.Fprintf(b, "Checked %d, candidates %d, valid %d, issues %d", st.TotalParagraphs, st.CandidatesFound, st.ValidFound, st.IssuesFound)
	if st.Skipped > 0 {
		fmt.Fprintf(b, ", skipped %d", st.Skipped)
	}
	b.WriteString("\n\n")
	if len(r.Issues) == 0 {
		b.WriteString("No issues.\n\n")
	}
	for _, is := range r.Issues {
		b.WriteString("- ")
		if is.ParagraphIndex != scan.NoParagraph {
			fmt.Fprintf(b, "Paragraph %d: ", is.ParagraphIndex+1)
		}
		fmt.Fprintf(b, "`%s`", is.Excerpt)
		if is.HasSuggestion() {
			fmt.Fprintf(b, " -> `%s`", is.SuggestionText())
		} else {
			b.WriteString(" (manual fix)")
		}
		if is.Message != "" {
			fmt.Fprintf(b, ". %s", is.Message)
		}
		b.WriteString("\n")
	}
	if len(r.Issues) > 0 {
		b.WriteString("\n")
	}
	if opts.IncludeLogs && len(r.Logs) > 0 {
		fmt.Fprintf(b, "### %s log\n\n", heading)
		for _, l := range r.Logs {
			fmt.Fprintf(b, "- %s\n", l)
		}
		b.WriteString("\n")
	}
}
