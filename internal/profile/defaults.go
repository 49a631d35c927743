package profile

// Defaults returns the built-in journal profiles used when no profile store
// is configured.
func Defaults() []Profile {
	return []Profile{
		ieeeProfile(),
		natureProfile(),
		kciProfile(),
		apaProfile(),
	}
}

func ieeeProfile() Profile {
	return Profile{
		ID:     "ieee",
		Name:   "IEEE Transactions",
		Status: StatusActive,
		Rules: Rules{
			CaptionStyle: &CaptionStyle{
				Figure: &CaptionRule{
					Detect:   Detect{Pattern: `^(fig(ure)?\.?|그림)\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "Fig.", Separator: "."},
				},
				Table: &CaptionRule{
					Detect:   Detect{Pattern: `^(tab(le)?\.?|표)\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "Table", Separator: "."},
				},
			},
			CitationStyle: &CitationStyle{Brackets: Square},
		},
	}
}

func natureProfile() Profile {
	return Profile{
		ID:     "nature",
		Name:   "Nature",
		Status: StatusActive,
		Rules: Rules{
			CaptionStyle: &CaptionStyle{
				Figure: &CaptionRule{
					Detect:   Detect{Pattern: `^(fig(ure)?\.?|그림)\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "Fig.", Separator: "|"},
				},
			},
			CitationStyle: &CitationStyle{Brackets: Superscript},
		},
	}
}

func kciProfile() Profile {
	return Profile{
		ID:     "kci",
		Name:   "KCI Journal (Korean)",
		Status: StatusActive,
		Rules: Rules{
			CaptionStyle: &CaptionStyle{
				Figure: &CaptionRule{
					Detect:   Detect{Pattern: `^(그림|fig(ure)?\.?)\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "그림", Separator: "."},
				},
				Table: &CaptionRule{
					Detect:   Detect{Pattern: `^(표|tab(le)?\.?)\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "표", Separator: "."},
				},
			},
			CitationStyle: &CitationStyle{Brackets: Square},
		},
	}
}

// apaProfile has no citation rules yet; APA uses author-date citations.
func apaProfile() Profile {
	return Profile{
		ID:     "apa",
		Name:   "APA 7th Edition",
		Status: StatusTodo,
		Rules: Rules{
			CaptionStyle: &CaptionStyle{
				Figure: &CaptionRule{
					Detect:   Detect{Pattern: `^fig(ure)?\.?\s*\d+`, Flags: "i"},
					Validate: Validation{ExpectedPrefix: "Figure", Separator: ""},
				},
			},
		},
	}
}
