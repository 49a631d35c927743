package scan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperifyio/paperpilot/internal/profile"
)

var (
	// bracketRe and parenRe are located in separate passes so a bracket
	// inside a parenthetical, as in "(e.g., [1, 2])", is still its own span.
	bracketRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenRe   = regexp.MustCompile(`\([^()]*\)`)
	// numberListRe matches two or more bare numbers separated by commas.
	numberListRe = regexp.MustCompile(`^\s*\d+(?:\s*,\s*\d+)+\s*$`)
	digitRe      = regexp.MustCompile(`\d`)
)

// Citations scans each paragraph for bracketed citations. Issues are anchored
// to the paragraph they were found in.
//
// Citation rules do not depend on the profile: the one-citation-per-bracket
// check applies to every style. Choosing a square or superscript marker for
// new citations is the caller's business (see fix.CitationMarker).
func (s *Scanner) Citations(paragraphs []Paragraph) Result {
	acc := NewAccumulator(KindCitation, 0, s.Logger)
	scanCitationParagraphs(paragraphs, acc)
	return acc.Result()
}

func scanCitationParagraphs(paragraphs []Paragraph, acc *Accumulator) {
	for _, p := range paragraphs {
		if perr := checkParagraph(p); perr != nil {
			acc.RecordSkipped(perr)
			continue
		}
		acc.AddParagraph()
		scanCitationText(p.Text, p.Index, acc)
	}
	logCitationSummary(acc)
}

// CitationsForProfile runs Citations and records which citation style p
// declares. A nil profile or a profile without citation rules is not an
// error here: the universal rule still applies.
func (s *Scanner) CitationsForProfile(paragraphs []Paragraph, p *profile.Profile) Result {
	acc := NewAccumulator(KindCitation, 0, s.Logger)
	switch {
	case p == nil:
		acc.Log("no profile selected; applying universal citation rules")
	case p.Rules.CitationStyle == nil:
		acc.Log("profile %s has no citationStyle; applying universal citation rules", p.ID)
	default:
		acc.Log("profile %s uses %s citation markers", p.ID, p.Rules.CitationStyle.Brackets)
	}
	scanCitationParagraphs(paragraphs, acc)
	return acc.Result()
}

// CitationsInText scans raw searchable text, such as the concatenated body of
// a document. Matches found this way have no stable paragraph anchor and are
// reported with ParagraphIndex NoParagraph; callers must re-locate them by
// content before replacing.
func (s *Scanner) CitationsInText(text string) Result {
	acc := NewAccumulator(KindCitation, 0, s.Logger)
	if perr := checkParagraph(Paragraph{Index: NoParagraph, Text: text}); perr != nil {
		acc.RecordSkipped(perr)
		return acc.Result()
	}
	scanCitationText(text, NoParagraph, acc)
	logCitationSummary(acc)
	return acc.Result()
}

// locateSpans returns bracket and parenthesis spans ordered by offset.
func locateSpans(text string) [][]int {
	spans := append(bracketRe.FindAllStringIndex(text, -1), parenRe.FindAllStringIndex(text, -1)...)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	return spans
}

func scanCitationText(text string, index int, acc *Accumulator) {
	spans := locateSpans(text)
	acc.AddTotal(len(spans))
	for ordinal, loc := range spans {
		span := text[loc[0]:loc[1]]
		inner := span[1 : len(span)-1]
		if span[0] == '(' {
			// digits of nested brackets belong to those spans
			inner = bracketRe.ReplaceAllString(inner, "")
		}
		if !digitRe.MatchString(inner) {
			continue
		}
		acc.RecordCandidate()
		acc.Log("paragraph %d: citation candidate %q", index, excerpt(span, excerptRunes))

		if span[0] != '[' || !numberListRe.MatchString(inner) {
			acc.RecordValid()
			continue
		}
		suggestion := splitCitationList(inner)
		acc.RecordIssue(Issue{
			ID:             issueID(KindCitation, index, ordinal, span),
			Kind:           KindCitation,
			Excerpt:        span,
			IsValid:        false,
			Suggestion:     &suggestion,
			Message:        "Use one citation per bracket pair, e.g. " + suggestion,
			ParagraphIndex: index,
		})
		acc.Log("paragraph %d: multiple citations in one bracket, suggest %q", index, suggestion)
	}
}

// splitCitationList turns "1, 2,3" into "[1], [2], [3]".
func splitCitationList(inner string) string {
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, "["+strings.TrimSpace(p)+"]")
	}
	return strings.Join(out, ", ")
}

func logCitationSummary(acc *Accumulator) {
	st := acc.Stats()
	acc.Log("citation scan done: %d paragraphs, %d spans, %d candidates, %d issues", st.ParagraphsScanned, st.TotalParagraphs, st.CandidatesFound, st.IssuesFound)
}
