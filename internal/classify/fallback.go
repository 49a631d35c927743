package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/paperpilot/internal/docsource"
	"github.com/hyperifyio/paperpilot/internal/fix"
	"github.com/hyperifyio/paperpilot/internal/profile"
)

// vagueTerms are informal intensifiers and quantities that academic style
// guides ask authors to replace with precise wording.
var vagueTerms = []string{
	"a lot", "a lot of", "lots of", "tons of", "very", "really", "huge", "big",
	"pretty", "kind of", "sort of", "thing", "things", "stuff", "good", "bad",
	"many", "much", "some",
}

var vagueReplacements = []string{"significant", "substantial"}

var (
	citedRe     = regexp.MustCompile(`\[\s*\d+(?:\s*[,–-]\s*\d+)*\s*\]|[⁰¹²³⁴⁵⁶⁷⁸⁹]+|\([^()]*\d{4}[a-z]?\)`)
	claimWordRe = regexp.MustCompile(`(?i)\b(show|shows|shown|found|demonstrate[sd]?|report(?:s|ed)?|suggest(?:s|ed)?|prove[sdn]?|increase[sd]?|decrease[sd]?|reduce[sd]?|improve[sd]?|is|are|was|were)\b`)
	numberRe    = regexp.MustCompile(`\d`)
	leadLabelRe = regexp.MustCompile(`(?i)^(?:fig(?:ure)?|tab(?:le)?|그림|표)\.?\s*(\d*)\s*[:.|]?\s*`)
)

// fallback classifies without a model.
func fallback(kind Kind, text string, p *profile.Profile) Classification {
	var res Classification
	switch kind {
	case KindTerm:
		res = classifyTerm(text)
	case KindSentence:
		res = classifySentence(text, p)
	default:
		res = classifyCaption(text, p)
	}
	res.Kind = kind
	res.Source = "fallback"
	if res.Suggestions == nil {
		res.Suggestions = []string{}
	}
	return res
}

func classifyTerm(term string) Classification {
	lower := strings.ToLower(strings.TrimSpace(term))
	for _, v := range vagueTerms {
		if lower == v || strings.HasPrefix(lower, v+" ") {
			return Classification{
				Label:       "vague",
				Title:       "Vague expression",
				Message:     "'" + preview(term, 20) + "' might be informal.",
				Suggestions: append([]string(nil), vagueReplacements...),
				Mode:        ModeReplace,
			}
		}
	}
	return Classification{Label: "ok", Title: "No issue", Message: "No informal wording detected.", Mode: ModeReplace}
}

func classifySentence(sentence string, p *profile.Profile) Classification {
	if citedRe.MatchString(sentence) {
		return Classification{Label: "cited", Title: "Citation present", Message: "The sentence already carries a citation.", Mode: ModeAppend}
	}
	words := strings.Fields(sentence)
	if len(words) >= 5 && (claimWordRe.MatchString(sentence) || numberRe.MatchString(sentence)) {
		return Classification{
			Label:       "citation-needed",
			Title:       "Citation needed",
			Message:     "This sentence states a claim without a supporting reference.",
			Suggestions: []string{fix.MarkerFor(p, 1)},
			Mode:        ModeAppend,
		}
	}
	return Classification{Label: "ok", Title: "No issue", Message: "No unsupported claim detected.", Mode: ModeAppend}
}

func classifyCaption(raw string, p *profile.Profile) Classification {
	raw = docsource.CleanSelection(raw)
	n := 1
	if m := leadLabelRe.FindStringSubmatch(raw); m != nil && m[1] != "" {
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
	}
	body := strings.TrimSpace(leadLabelRe.ReplaceAllString(raw, ""))
	if body == "" {
		body = strings.TrimSpace(raw)
	}
	res := Classification{Label: "caption", Title: "Caption format", Mode: ModeReplace}
	var rule *profile.CaptionRule
	if p != nil {
		rule = p.Rules.CaptionStyle.Rule(profile.Figure)
	}
	if rule == nil {
		res.Message = "No caption style is configured for this journal."
		return res
	}
	res.Message = "Applying " + p.Name + " caption style."
	res.Suggestions = []string{fix.FormatCaption(*rule, n, body)}
	return res
}

func preview(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
