package scan

import (
	"strconv"

	"github.com/google/uuid"
)

// Kind names the construct an Issue is about.
type Kind string

const (
	KindCaption  Kind = "caption"
	KindCitation Kind = "citation"
)

// NoParagraph marks an issue that has no stable paragraph anchor, e.g. a
// citation found by searching raw text. Callers must re-locate such issues
// by content before replacing anything.
const NoParagraph = -1

// Paragraph is one paragraph of the document snapshot being scanned. Index is
// its 0-based position at scan time; any later edit invalidates it.
type Paragraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Paragraphs wraps plain strings into an indexed snapshot.
func Paragraphs(texts ...string) []Paragraph {
	out := make([]Paragraph, len(texts))
	for i, t := range texts {
		out[i] = Paragraph{Index: i, Text: t}
	}
	return out
}

// Issue is one non-conforming construct with an optional replacement.
type Issue struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Excerpt string `json:"sourceTextExcerpt"`
	IsValid bool   `json:"isValid"`
	// Suggestion is nil when no replacement could be derived; the issue then
	// needs a manual fix.
	Suggestion     *string `json:"suggestion,omitempty"`
	Message        string  `json:"message"`
	ParagraphIndex int     `json:"paragraphIndex"`
}

// HasSuggestion reports whether the issue carries a replacement.
func (i Issue) HasSuggestion() bool {
	return i.Suggestion != nil
}

// SuggestionText returns the suggestion or "".
func (i Issue) SuggestionText() string {
	if i.Suggestion == nil {
		return ""
	}
	return *i.Suggestion
}

// Stats are the running counters of one scan.
//
// For caption scans TotalParagraphs is the number of paragraphs examined.
// Citation scans are driven by located bracket and parenthesis spans, so
// there it counts located spans and ParagraphsScanned carries the number of
// paragraphs walked. Either way
// IssuesFound <= CandidatesFound <= TotalParagraphs.
type Stats struct {
	TotalParagraphs   int `json:"totalParagraphs"`
	CandidatesFound   int `json:"candidatesFound"`
	IssuesFound       int `json:"issuesFound"`
	ValidFound        int `json:"validFound"`
	Skipped           int `json:"skipped"`
	ParagraphsScanned int `json:"paragraphsScanned,omitempty"`
}

// Result is the outcome of one scan: issues in document order, counters and
// the ordered decision trace.
type Result struct {
	Issues []Issue  `json:"issues"`
	Stats  Stats    `json:"stats"`
	Logs   []string `json:"logs"`
}

var issueNamespace = uuid.MustParse("6f1c7a52-3d0e-4e59-9b1e-8a4c2f7d5e10")

// issueID derives a stable id from the issue's kind, anchor and excerpt, so
// rescanning an unchanged snapshot yields the same ids.
func issueID(kind Kind, paragraphIndex, ordinal int, excerpt string) string {
	key := string(kind) + "\x00" + strconv.Itoa(paragraphIndex) + "\x00" + strconv.Itoa(ordinal) + "\x00" + excerpt
	return uuid.NewSHA1(issueNamespace, []byte(key)).String()
}
