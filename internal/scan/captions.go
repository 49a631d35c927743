package scan

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/paperpilot/internal/profile"
)

// captionRule is a CaptionRule with its patterns compiled.
type captionRule struct {
	kind     profile.CaptionKind
	rule     profile.CaptionRule
	detect   *regexp.Regexp
	validate *regexp.Regexp
	repair   *regexp.Regexp
}

// Captions checks every paragraph against one caption rule:
// length gate, detect, validate, and repair when invalid.
//
// A detect pattern that does not compile yields a *ConfigError and a result
// with no issues whose log explains the cause.
func (s *Scanner) Captions(paragraphs []Paragraph, kind profile.CaptionKind, rule profile.CaptionRule) (Result, error) {
	acc := NewAccumulator(KindCaption, len(paragraphs), s.Logger)
	cr, err := s.compileCaptionRule(kind, rule)
	if err != nil {
		cerr := &ConfigError{Kind: KindCaption, Reason: fmt.Sprintf("%s rule is unusable", kind), Err: err}
		acc.Log("%v", cerr)
		return acc.Result(), cerr
	}
	s.scanCaptions(paragraphs, []captionRule{cr}, acc)
	return acc.Result(), nil
}

// CaptionsForProfile resolves the caption rules of p and scans with them.
// The figure rule is required; a table rule is used when present. A missing
// profile or caption style is a *ConfigError, never an empty success.
func (s *Scanner) CaptionsForProfile(paragraphs []Paragraph, p *profile.Profile) (Result, error) {
	acc := NewAccumulator(KindCaption, len(paragraphs), s.Logger)
	fail := func(cerr *ConfigError) (Result, error) {
		acc.Log("%v", cerr)
		return acc.Result(), cerr
	}
	if p == nil {
		return fail(&ConfigError{Kind: KindCaption, Reason: "no profile selected"})
	}
	style := p.Rules.CaptionStyle
	if style == nil {
		return fail(&ConfigError{ProfileID: p.ID, Kind: KindCaption, Reason: "profile has no captionStyle rules"})
	}
	if style.Figure == nil {
		return fail(&ConfigError{ProfileID: p.ID, Kind: KindCaption, Reason: "captionStyle has no figure rule"})
	}

	var rules []captionRule
	for _, kind := range []profile.CaptionKind{profile.Figure, profile.Table} {
		r := style.Rule(kind)
		if r == nil {
			continue
		}
		cr, err := s.compileCaptionRule(kind, *r)
		if err != nil {
			return fail(&ConfigError{ProfileID: p.ID, Kind: KindCaption, Reason: fmt.Sprintf("%s rule is unusable", kind), Err: err})
		}
		rules = append(rules, cr)
	}
	acc.Log("profile %s: scanning %d paragraphs with %d caption rule(s)", p.ID, len(paragraphs), len(rules))
	s.scanCaptions(paragraphs, rules, acc)
	return acc.Result(), nil
}

func (s *Scanner) compileCaptionRule(kind profile.CaptionKind, rule profile.CaptionRule) (captionRule, error) {
	detect, err := s.Patterns.Detect(rule.Detect.Pattern, rule.Detect.Flags)
	if err != nil {
		return captionRule{}, err
	}
	validate, err := s.Patterns.Validation(rule.Validate.ExpectedPrefix, rule.Validate.Separator)
	if err != nil {
		return captionRule{}, err
	}
	repair, err := s.Patterns.Repair(rule.LabelsFor(kind))
	if err != nil {
		return captionRule{}, err
	}
	return captionRule{kind: kind, rule: rule, detect: detect, validate: validate, repair: repair}, nil
}

// scanCaptions walks paragraphs in index order. Each paragraph is evaluated
// against the first rule whose detect pattern matches, so a paragraph is at
// most one candidate.
func (s *Scanner) scanCaptions(paragraphs []Paragraph, rules []captionRule, acc *Accumulator) {
	limit := s.maxCaptionRunes()
	for _, p := range paragraphs {
		if perr := checkParagraph(p); perr != nil {
			acc.RecordSkipped(perr)
			continue
		}
		text := strings.TrimSpace(p.Text)
		if text == "" || utf8.RuneCountInString(text) > limit {
			continue
		}
		for _, cr := range rules {
			if !cr.detect.MatchString(text) {
				continue
			}
			evaluateCaption(p.Index, text, cr, limit, acc)
			break
		}
	}
	st := acc.Stats()
	acc.Log("caption scan done: %d paragraphs, %d candidates, %d issues", st.TotalParagraphs, st.CandidatesFound, st.IssuesFound)
}

func evaluateCaption(index int, text string, cr captionRule, limit int, acc *Accumulator) {
	prefix := cr.rule.Validate.ExpectedPrefix
	sep := cr.rule.Validate.Separator

	acc.RecordCandidate()
	acc.Log("paragraph %d: %s caption candidate %q", index, cr.kind, excerpt(text, excerptRunes))

	// Prefix presence alone is not enough: "Fig.1a" starts with "Fig." but
	// does not have the number/separator shape.
	if strings.HasPrefix(text, prefix) && cr.validate.MatchString(text) {
		acc.RecordValid()
		acc.Log("paragraph %d: valid", index)
		return
	}

	issue := Issue{
		ID:             issueID(KindCaption, index, 0, text),
		Kind:           KindCaption,
		Excerpt:        text,
		IsValid:        false,
		Message:        captionMessage(cr.kind, prefix, sep),
		ParagraphIndex: index,
	}
	suggestion, ok := repairCaption(text, cr)
	switch {
	case ok && utf8.RuneCountInString(suggestion) > limit:
		// a rescan would skip it at the length gate and never validate it
		acc.Log("paragraph %d: invalid, repair exceeds %d runes; manual fix", index, limit)
	case ok:
		issue.Suggestion = &suggestion
		acc.Log("paragraph %d: invalid, suggest %q", index, excerpt(suggestion, excerptRunes))
	default:
		acc.Log("paragraph %d: invalid, no repair available", index)
	}
	acc.RecordIssue(issue)
}

// repairCaption rebuilds text as prefix + " " + number + separator + " " + rest
// when it matches the generic caption skeleton.
func repairCaption(text string, cr captionRule) (string, bool) {
	m := cr.repair.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	number, rest := m[3], m[4]
	return cr.rule.Validate.ExpectedPrefix + " " + number + cr.rule.Validate.Separator + " " + rest, true
}

func captionMessage(kind profile.CaptionKind, prefix, sep string) string {
	return fmt.Sprintf("%s caption should read %q: the prefix %q, a number, then %q", kind, prefix+" 1"+sep, prefix, sep)
}
