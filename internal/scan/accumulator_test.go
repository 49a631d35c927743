package scan

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAccumulator_CountersAndLogOrder(t *testing.T) {
	var buf bytes.Buffer
	acc := NewAccumulator(KindCaption, 3, zerolog.New(&buf).Level(zerolog.DebugLevel))

	acc.Log("first %d", 1)
	acc.RecordCandidate()
	acc.RecordValid()
	acc.RecordCandidate()
	acc.RecordIssue(Issue{ID: "x", Kind: KindCaption})
	acc.RecordSkipped(&ParagraphError{Index: 2, Reason: "bad"})
	acc.Log("last")

	res := acc.Result()
	assert.Equal(t, Stats{TotalParagraphs: 3, CandidatesFound: 2, IssuesFound: 1, ValidFound: 1, Skipped: 1}, res.Stats)
	assert.Equal(t, []string{"first 1", "paragraph 2 skipped: bad", "last"}, res.Logs)
	assert.Len(t, res.Issues, 1)
	assert.Contains(t, buf.String(), `"kind":"caption"`)
	assert.Contains(t, buf.String(), "first 1")
}

func TestAccumulator_EmptyResultHasNonNilSlices(t *testing.T) {
	res := NewAccumulator(KindCitation, 0, zerolog.Nop()).Result()
	assert.NotNil(t, res.Issues)
	assert.NotNil(t, res.Logs)
}
