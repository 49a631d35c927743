package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/profile"
)

func TestParseUserMessage(t *testing.T) {
	req := parseUserMessage("Kind: sentence\nJournal: IEEE\nText:\n\nAccuracy improved by 12 percent overall.")
	assert.Equal(t, "Accuracy improved by 12 percent overall.", req.Sentence)
	assert.Empty(t, req.Term)

	assert.Equal(t, classify.Request{}, parseUserMessage("no prompt here"))
}

func TestStubServesClassifier(t *testing.T) {
	srv := httptest.NewServer(newHandler("stub-model"))
	defer srv.Close()

	c := &classify.Classifier{
		Client: classify.NewOpenAIProvider(srv.URL+"/v1", "", srv.Client()),
		Model:  "stub-model",
	}
	ctx := context.Background()

	res, err := c.Classify(ctx, classify.Request{Term: "a lot"})
	require.NoError(t, err)
	assert.Equal(t, "vague", res.Label)
	assert.Equal(t, "model", res.Source)

	ieee := profile.Defaults()[0]
	res, err = c.Classify(ctx, classify.Request{RawCaption: "figure 3: loss curve", Profile: &ieee})
	require.NoError(t, err)
	assert.Equal(t, "caption", res.Label)

	ids, ok, err := classify.Models(ctx, c.Client)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"stub-model"}, ids)
}
