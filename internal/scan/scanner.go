// Package scan checks paragraph text against a rule profile and proposes
// corrections. Scans are pure: they take an already-fetched paragraph
// snapshot, never touch the document and keep no state between calls.
package scan

import (
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/paperpilot/internal/pattern"
	"github.com/hyperifyio/paperpilot/internal/profile"
)

const (
	// DefaultMaxCaptionRunes bounds the paragraph length the caption scanner
	// looks at. Captions are short; the bound only caps work on huge paragraphs.
	DefaultMaxCaptionRunes = 300
	// excerptRunes is the excerpt length used in log lines.
	excerptRunes = 40
)

// Scanner runs caption and citation scans. The zero value is usable; a
// Scanner is safe for concurrent use because every scan gets its own
// Accumulator and the pattern cache is concurrency-safe.
type Scanner struct {
	// Patterns caches compiled patterns across scans. Nil compiles per scan.
	Patterns *pattern.Cache
	// MaxCaptionRunes overrides DefaultMaxCaptionRunes when > 0.
	MaxCaptionRunes int
	// Logger receives a debug-level copy of every trace line.
	Logger zerolog.Logger
}

// New returns a Scanner with a pattern cache and a disabled logger.
func New() *Scanner {
	return &Scanner{Patterns: pattern.NewCache(pattern.DefaultCacheSize), Logger: zerolog.Nop()}
}

var defaultScanner = New()

// Captions scans paragraphs with a shared default Scanner.
func Captions(paragraphs []Paragraph, kind profile.CaptionKind, rule profile.CaptionRule) (Result, error) {
	return defaultScanner.Captions(paragraphs, kind, rule)
}

// CaptionsForProfile scans paragraphs against p with a shared default Scanner.
func CaptionsForProfile(paragraphs []Paragraph, p *profile.Profile) (Result, error) {
	return defaultScanner.CaptionsForProfile(paragraphs, p)
}

// Citations scans paragraphs for citations with a shared default Scanner.
func Citations(paragraphs []Paragraph) Result {
	return defaultScanner.Citations(paragraphs)
}

// CitationsForProfile scans paragraphs for citations with a shared default Scanner.
func CitationsForProfile(paragraphs []Paragraph, p *profile.Profile) Result {
	return defaultScanner.CitationsForProfile(paragraphs, p)
}

// CitationsInText scans raw text for citations with a shared default Scanner.
func CitationsInText(text string) Result {
	return defaultScanner.CitationsInText(text)
}

func (s *Scanner) maxCaptionRunes() int {
	if s.MaxCaptionRunes > 0 {
		return s.MaxCaptionRunes
	}
	return DefaultMaxCaptionRunes
}

// checkParagraph reports text the engine cannot evaluate.
func checkParagraph(p Paragraph) *ParagraphError {
	if !utf8.ValidString(p.Text) {
		return &ParagraphError{Index: p.Index, Reason: "text is not valid UTF-8"}
	}
	return nil
}

// excerpt truncates s to n runes, marking the cut with "...".
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
