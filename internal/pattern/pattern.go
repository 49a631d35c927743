// Package pattern turns rule-profile fields into compiled regular expressions.
// Profile literals (prefixes, separators, label tokens) are always escaped
// before they are spliced into a generated pattern.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// EscapeLiteral escapes every regular expression metacharacter in s so the
// result matches s literally.
func EscapeLiteral(s string) string {
	return regexp.QuoteMeta(s)
}

// ValidationSource returns the anchored source for a valid caption: the exact
// prefix, optional whitespace, one or more digits, then the exact separator.
func ValidationSource(expectedPrefix, separator string) string {
	return "^" + EscapeLiteral(expectedPrefix) + `\s*\d+` + EscapeLiteral(separator)
}

// CompileValidation compiles ValidationSource(expectedPrefix, separator).
func CompileValidation(expectedPrefix, separator string) (*regexp.Regexp, error) {
	return regexp.Compile(ValidationSource(expectedPrefix, separator))
}

// RepairSource returns the generic caption skeleton used to salvage an
// invalid caption:
//
//	(label)(optional period) optional-space (number) optional(:|.||) optional-space (rest)
//
// Matching is case-insensitive and any of labels is accepted. Longer labels
// are tried first so "Figure" wins over "Fig".
func RepairSource(labels []string) string {
	alts := make([]string, 0, len(labels))
	for _, l := range sortedByLength(labels) {
		alts = append(alts, EscapeLiteral(l))
	}
	return `(?is)^(` + strings.Join(alts, "|") + `)(\.)?\s*(\d+)\s*[:.|]?\s*(.*)$`
}

// CompileRepair compiles RepairSource(labels).
func CompileRepair(labels []string) (*regexp.Regexp, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("repair pattern: no label tokens")
	}
	return regexp.Compile(RepairSource(labels))
}

// DetectSource rewrites a profile detect pattern and its declared flags into
// a single RE2 source. Flags i, m and s become inline flags; g, u, y and d
// describe stateful or encoding behavior that does not apply to a single
// match test and are accepted without effect.
func DetectSource(source, flags string) (string, error) {
	var inline []byte
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(string(inline), f) {
				inline = append(inline, byte(f))
			}
		case 'g', 'u', 'y', 'd':
		case ' ':
		default:
			return "", fmt.Errorf("unsupported pattern flag %q", f)
		}
	}
	if len(inline) == 0 {
		return source, nil
	}
	return "(?" + string(inline) + ")" + source, nil
}

// CompileDetect compiles a profile detect pattern with its declared flags.
func CompileDetect(source, flags string) (*regexp.Regexp, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("detect pattern is empty")
	}
	src, err := DetectSource(source, flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("detect pattern %q: %w", source, err)
	}
	return re, nil
}

func sortedByLength(in []string) []string {
	out := append([]string(nil), in...)
	// insertion sort; label lists are tiny
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
