package scan

import "fmt"

// ConfigError reports a profile-level misconfiguration: no profile, a missing
// rule sub-object, or a detect pattern that does not compile. It aborts the
// scan for that kind before any paragraph is processed.
type ConfigError struct {
	ProfileID string
	Kind      Kind
	Reason    string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: %s scan", e.Kind)
	if e.ProfileID != "" {
		msg += fmt.Sprintf(" (profile %s)", e.ProfileID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ParagraphError reports a single paragraph that could not be evaluated. The
// scan logs it, skips that paragraph and continues.
type ParagraphError struct {
	Index  int
	Reason string
}

func (e *ParagraphError) Error() string {
	return fmt.Sprintf("paragraph %d skipped: %s", e.Index, e.Reason)
}
