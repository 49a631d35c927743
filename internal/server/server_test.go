package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/report"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	return New(Options{Store: profile.NewStore(profile.Defaults())})
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestProfiles(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/v1/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Profiles []profile.Profile `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Profiles, 4)
	assert.Equal(t, "ieee", body.Profiles[0].ID)
}

func TestScanCaptions(t *testing.T) {
	w := do(t, newTestServer(), http.MethodPost, "/v1/scan/captions", ScanRequest{
		ProfileID:  "ieee",
		Paragraphs: []string{"Intro", "Figure 1: accuracy", "Fig. 2. fine"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res scan.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, 1, res.Issues[0].ParagraphIndex)
	assert.Equal(t, "Fig. 1. accuracy", res.Issues[0].SuggestionText())
	assert.Equal(t, 2, res.Stats.CandidatesFound)
}

func TestScanCaptions_ConfigErrorIs422(t *testing.T) {
	cases := []struct {
		name  string
		store *profile.Store
		id    string
	}{
		{"unknown profile", profile.NewStore(profile.Defaults()), "nope"},
		{"no caption style", profile.NewStore([]profile.Profile{{ID: "bare", Name: "Bare", Status: profile.StatusActive}}), "bare"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Options{Store: tc.store})
			w := do(t, s, http.MethodPost, "/v1/scan/captions", ScanRequest{ProfileID: tc.id, Paragraphs: []string{"Figure 1: x"}})
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var res scan.Result
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Empty(t, res.Issues)
			require.NotEmpty(t, res.Logs)
			assert.Contains(t, res.Logs[0], "config error")

			m := do(t, s, http.MethodGet, "/metrics", nil)
			assert.Contains(t, m.Body.String(), `paperpilot_config_errors_total{kind="caption"} 1`)
		})
	}
}

func TestScanCitations(t *testing.T) {
	s := newTestServer()
	w := do(t, s, http.MethodPost, "/v1/scan/citations", ScanRequest{Paragraphs: []string{"See [1, 2] and (Smith, 2020)."}})
	require.Equal(t, http.StatusOK, w.Code)

	var res scan.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "[1], [2]", res.Issues[0].SuggestionText())

	raw := do(t, s, http.MethodPost, "/v1/scan/citations", ScanRequest{Text: "a\nb [3, 4]"})
	require.Equal(t, http.StatusOK, raw.Code)
	require.NoError(t, json.Unmarshal(raw.Body.Bytes(), &res))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, scan.NoParagraph, res.Issues[0].ParagraphIndex)

	m := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Contains(t, m.Body.String(), `paperpilot_scans_total{kind="citation"} 2`)
	assert.Contains(t, m.Body.String(), `paperpilot_issues_total{kind="citation"} 2`)
}

func TestScanBoth(t *testing.T) {
	w := do(t, newTestServer(), http.MethodPost, "/v1/scan", ScanRequest{
		ProfileID:  "kci",
		Document:   "paper.txt",
		Paragraphs: []string{"그림 1 결과", "선행 연구 [1, 2]"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var out report.Scan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "kci", out.ProfileID)
	require.NotNil(t, out.Captions)
	require.NotNil(t, out.Citations)
	require.Len(t, out.Captions.Issues, 1)
	assert.Equal(t, "그림 1. 결과", out.Captions.Issues[0].SuggestionText())
	require.Len(t, out.Citations.Issues, 1)
	assert.Empty(t, out.Errors)
}

func TestScan_BadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestClassify(t *testing.T) {
	s := newTestServer()
	w := do(t, s, http.MethodPost, "/v1/classify", ClassifyRequest{Term: "a lot"})
	require.Equal(t, http.StatusOK, w.Code)

	var res classify.Classification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "vague", res.Label)
	assert.Equal(t, []string{"significant", "substantial"}, res.Suggestions)

	w = do(t, s, http.MethodPost, "/v1/classify", ClassifyRequest{Sentence: "The new model reduces error by 30 percent.", ProfileID: "nature"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "citation-needed", res.Label)
	assert.Equal(t, []string{"¹"}, res.Suggestions)

	bad := do(t, s, http.MethodPost, "/v1/classify", ClassifyRequest{})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestClassify_UnknownProfileFallsBackToDefault(t *testing.T) {
	s := newTestServer()
	w := do(t, s, http.MethodPost, "/v1/classify", ClassifyRequest{ProfileID: "acm", RawCaption: "figure 2: loss curve"})
	require.Equal(t, http.StatusOK, w.Code)

	var res classify.Classification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "caption", res.Label)
	assert.Equal(t, []string{"Fig. 2. loss curve"}, res.Suggestions)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/scan", nil)
	req.Header.Set("Origin", "https://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, req)
	assert.Equal(t, "https://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
