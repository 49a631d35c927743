package profile

import "strings"

// Status marks whether a profile is ready for use.
type Status string

const (
	// StatusActive profiles are offered to authors.
	StatusActive Status = "active"
	// StatusTodo profiles are drafts whose rules are not finalized yet.
	StatusTodo Status = "todo"
)

// BracketStyle selects how inline citation markers are written.
type BracketStyle string

const (
	// Square writes citations as [1].
	Square BracketStyle = "square"
	// Superscript writes citations as ¹.
	Superscript BracketStyle = "superscript"
)

// CaptionKind names the caption families a profile can describe.
type CaptionKind string

const (
	Figure CaptionKind = "figure"
	Table  CaptionKind = "table"
)

// Profile is a named bundle of formatting and citation rules for one target
// publication style.
type Profile struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Name   string `yaml:"name" json:"name" validate:"required"`
	Status Status `yaml:"status" json:"status" validate:"required,oneof=active todo"`
	Rules  Rules  `yaml:"rules" json:"rules"`
}

// Rules groups the rule sub-objects. A nil sub-object means the profile does
// not describe that kind of construct.
type Rules struct {
	CaptionStyle  *CaptionStyle  `yaml:"captionStyle,omitempty" json:"captionStyle,omitempty" validate:"omitempty"`
	CitationStyle *CitationStyle `yaml:"citationStyle,omitempty" json:"citationStyle,omitempty" validate:"omitempty"`
}

// CaptionStyle holds the caption rules per caption kind. Figure is required
// whenever a caption style is present; Table is optional.
type CaptionStyle struct {
	Figure *CaptionRule `yaml:"figure" json:"figure" validate:"required"`
	Table  *CaptionRule `yaml:"table,omitempty" json:"table,omitempty" validate:"omitempty"`
}

// Rule returns the caption rule for kind, or nil.
func (c *CaptionStyle) Rule(kind CaptionKind) *CaptionRule {
	if c == nil {
		return nil
	}
	switch kind {
	case Figure:
		return c.Figure
	case Table:
		return c.Table
	}
	return nil
}

// CaptionRule describes how a caption is found (Detect) and what a correct
// caption looks like (Validate). Detect is intentionally looser than Validate.
type CaptionRule struct {
	Detect   Detect     `yaml:"detect" json:"detect"`
	Validate Validation `yaml:"validate" json:"validate"`
	// Labels overrides the label tokens recognized when repairing an invalid
	// caption. Empty means the defaults for the caption kind.
	Labels []string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Detect is a regular expression source plus its declared flags, e.g. "i".
type Detect struct {
	Pattern string `yaml:"pattern" json:"pattern" validate:"required"`
	Flags   string `yaml:"flags" json:"flags"`
}

// Validation holds the literal text a valid caption starts with.
type Validation struct {
	ExpectedPrefix string `yaml:"expectedPrefix" json:"expectedPrefix" validate:"required"`
	Separator      string `yaml:"separator" json:"separator"`
}

// CitationStyle selects the citation marker symbol.
type CitationStyle struct {
	Brackets BracketStyle `yaml:"brackets" json:"brackets" validate:"required,oneof=square superscript"`
}

// DefaultLabels returns the label tokens the repair stage accepts for kind.
// Latin and localized tokens are equivalent candidates.
func DefaultLabels(kind CaptionKind) []string {
	switch kind {
	case Table:
		return []string{"Table", "Tab", "표"}
	default:
		return []string{"Figure", "Fig", "그림"}
	}
}

// LabelsFor returns the rule's labels, or the defaults for kind.
func (r CaptionRule) LabelsFor(kind CaptionKind) []string {
	out := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		if s := strings.TrimSpace(l); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return DefaultLabels(kind)
	}
	return out
}

// Lookup finds the profile with the given id in profiles. The collection is
// passed explicitly; there is no package-level registry.
func Lookup(profiles []Profile, id string) (Profile, bool) {
	want := strings.TrimSpace(id)
	for _, p := range profiles {
		if p.ID == want {
			return p, true
		}
	}
	return Profile{}, false
}

// Resolve returns the profile with the given id. When id is empty or unknown
// it falls back to the first active profile, then to the first profile.
// It reports ErrNotFound only for an empty collection.
func Resolve(profiles []Profile, id string) (Profile, error) {
	if len(profiles) == 0 {
		return Profile{}, ErrNotFound
	}
	if p, ok := Lookup(profiles, id); ok {
		return p, nil
	}
	for _, p := range profiles {
		if p.Status == StatusActive {
			return p, nil
		}
	}
	return profiles[0], nil
}
