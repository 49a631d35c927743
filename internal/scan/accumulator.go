package scan

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Accumulator owns the stats and logs of exactly one scan invocation. It is
// not safe for concurrent use and must not be shared between scans.
type Accumulator struct {
	kind   Kind
	issues []Issue
	stats  Stats
	logs   []string
	logger zerolog.Logger
}

// NewAccumulator starts bookkeeping for a scan of kind over total units.
// Each log line is mirrored to logger at debug level.
func NewAccumulator(kind Kind, total int, logger zerolog.Logger) *Accumulator {
	return &Accumulator{
		kind:   kind,
		issues: []Issue{},
		stats:  Stats{TotalParagraphs: total},
		logs:   []string{},
		logger: logger,
	}
}

// RecordCandidate counts one construct that passed the detect stage.
func (a *Accumulator) RecordCandidate() {
	a.stats.CandidatesFound++
}

// RecordIssue counts and keeps an invalid construct.
func (a *Accumulator) RecordIssue(issue Issue) {
	a.stats.IssuesFound++
	a.issues = append(a.issues, issue)
}

// RecordValid counts a candidate that passed validation.
func (a *Accumulator) RecordValid() {
	a.stats.ValidFound++
}

// RecordSkipped counts a paragraph dropped by a ParagraphError.
func (a *Accumulator) RecordSkipped(err *ParagraphError) {
	a.stats.Skipped++
	a.Log("%v", err)
}

// AddTotal widens the number of scanned units; citation scans only know it
// after locating spans.
func (a *Accumulator) AddTotal(n int) {
	a.stats.TotalParagraphs += n
}

// AddParagraph counts one paragraph walked by a citation scan.
func (a *Accumulator) AddParagraph() {
	a.stats.ParagraphsScanned++
}

// Log appends one line to the trace.
func (a *Accumulator) Log(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	a.logs = append(a.logs, line)
	a.logger.Debug().Str("kind", string(a.kind)).Msg(line)
}

// Stats returns the counters so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Result hands over the accumulated result.
func (a *Accumulator) Result() Result {
	return Result{Issues: a.issues, Stats: a.stats, Logs: a.logs}
}
