// Package fix applies scan suggestions to a paragraph snapshot and builds the
// small insertion suggestions offered next to scan results.
package fix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

var (
	// ErrNoSuggestion is returned for issues that need a manual fix.
	ErrNoSuggestion = errors.New("issue has no suggestion")
	// ErrIndexOutOfRange is returned when an issue points past the snapshot.
	ErrIndexOutOfRange = errors.New("paragraph index out of range")
)

// Apply returns a copy of paragraphs with the issue's suggestion applied.
//
// Caption issues replace the whole anchored paragraph. Citation issues
// replace only the excerpt span inside the anchored paragraph. Issues
// without an anchor (ParagraphIndex == scan.NoParagraph) are located by
// searching for the excerpt, first paragraph wins.
//
// Applying the same issue twice is a no-op the second time: the paragraph
// already reads as the suggestion, or the excerpt is gone. applied reports
// whether the text changed.
func Apply(paragraphs []scan.Paragraph, issue scan.Issue) (out []scan.Paragraph, applied bool, err error) {
	out = append([]scan.Paragraph(nil), paragraphs...)
	if !issue.HasSuggestion() {
		return out, false, ErrNoSuggestion
	}
	suggestion := *issue.Suggestion

	idx := issue.ParagraphIndex
	if idx == scan.NoParagraph {
		idx = locate(out, issue.Excerpt)
		if idx < 0 {
			return out, false, nil
		}
	} else if idx < 0 || idx >= len(out) {
		return out, false, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, idx, len(out))
	}

	text := out[idx].Text
	var next string
	switch {
	case issue.Kind == scan.KindCaption && issue.ParagraphIndex != scan.NoParagraph:
		next = suggestion
	default:
		if !strings.Contains(text, issue.Excerpt) {
			return out, false, nil
		}
		next = strings.Replace(text, issue.Excerpt, suggestion, 1)
	}
	if next == text || strings.TrimSpace(next) == strings.TrimSpace(text) {
		return out, false, nil
	}
	out[idx].Text = next
	return out, true, nil
}

// ApplyAll applies every issue with a suggestion in order and returns the
// number of paragraphs changed. Issues without a suggestion are skipped.
func ApplyAll(paragraphs []scan.Paragraph, issues []scan.Issue) ([]scan.Paragraph, int, error) {
	out := append([]scan.Paragraph(nil), paragraphs...)
	n := 0
	for _, is := range issues {
		if !is.HasSuggestion() {
			continue
		}
		next, applied, err := Apply(out, is)
		if err != nil {
			return out, n, fmt.Errorf("apply %s issue %s: %w", is.Kind, is.ID, err)
		}
		out = next
		if applied {
			n++
		}
	}
	return out, n, nil
}

func locate(paragraphs []scan.Paragraph, excerpt string) int {
	if excerpt == "" {
		return -1
	}
	for i, p := range paragraphs {
		if strings.Contains(p.Text, excerpt) {
			return i
		}
	}
	return -1
}

var superscriptDigits = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

// CitationMarker returns the marker to append for citation n in the given
// style: " [n]" for square brackets, superscript digits otherwise.
func CitationMarker(style profile.BracketStyle, n int) string {
	if n < 1 {
		n = 1
	}
	digits := strconv.Itoa(n)
	if style == profile.Square {
		return " [" + digits + "]"
	}
	var b strings.Builder
	for _, d := range digits {
		b.WriteRune(superscriptDigits[d-'0'])
	}
	return b.String()
}

// MarkerFor picks the citation marker for p, defaulting to square brackets
// when the profile has no citation style.
func MarkerFor(p *profile.Profile, n int) string {
	style := profile.Square
	if p != nil && p.Rules.CitationStyle != nil {
		style = p.Rules.CitationStyle.Brackets
	}
	return CitationMarker(style, n)
}

// FormatCaption formats selected caption text as caption number n under rule:
// prefix, space, number, separator, space, text.
func FormatCaption(rule profile.CaptionRule, n int, text string) string {
	return rule.Validate.ExpectedPrefix + " " + strconv.Itoa(n) + rule.Validate.Separator + " " + text
}
