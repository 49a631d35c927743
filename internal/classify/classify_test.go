package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/paperpilot/internal/cache"
	"github.com/hyperifyio/paperpilot/internal/profile"
)

type fakeClient struct {
	content string
	err     error
	calls   int
	last    openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}}}, nil
}

func mustProfile(t *testing.T, id string) *profile.Profile {
	t.Helper()
	p, ok := profile.Lookup(profile.Defaults(), id)
	if !ok {
		t.Fatalf("missing default profile %q", id)
	}
	return &p
}

func TestRequestInput(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		kind Kind
		ok   bool
	}{
		{"term", Request{Term: " a lot "}, KindTerm, true},
		{"sentence", Request{Sentence: "x"}, KindSentence, true},
		{"caption", Request{RawCaption: "figure 1"}, KindCaption, true},
		{"empty", Request{}, "", false},
		{"blank", Request{Term: "  "}, "", false},
		{"two", Request{Term: "a", Sentence: "b"}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, _, err := tc.req.Input()
			if tc.ok {
				if err != nil || kind != tc.kind {
					t.Fatalf("got %q, %v; want %q", kind, err, tc.kind)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestFallback_VagueTerm(t *testing.T) {
	var c *Classifier
	got, err := c.Classify(context.Background(), Request{Term: "a lot"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Label != "vague" || got.Source != "fallback" || got.Mode != ModeReplace {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if strings.Join(got.Suggestions, ",") != "significant,substantial" {
		t.Fatalf("unexpected suggestions: %v", got.Suggestions)
	}
	if !strings.Contains(got.Message, "'a lot' might be informal") {
		t.Fatalf("unexpected message: %q", got.Message)
	}

	ok, _ := c.Classify(context.Background(), Request{Term: "heteroscedasticity"})
	if ok.Label != "ok" || len(ok.Suggestions) != 0 {
		t.Fatalf("precise term should pass: %+v", ok)
	}
}

func TestFallback_SentenceCitation(t *testing.T) {
	c := &Classifier{}
	claim := "The proposed method improves accuracy by 12 percent."

	got, _ := c.Classify(context.Background(), Request{Sentence: claim})
	if got.Label != "citation-needed" || got.Mode != ModeAppend {
		t.Fatalf("expected citation-needed, got %+v", got)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != " [1]" {
		t.Fatalf("expected square marker, got %v", got.Suggestions)
	}

	nature, _ := c.Classify(context.Background(), Request{Sentence: claim, Profile: mustProfile(t, "nature")})
	if len(nature.Suggestions) != 1 || nature.Suggestions[0] != "¹" {
		t.Fatalf("expected superscript marker, got %v", nature.Suggestions)
	}

	cited, _ := c.Classify(context.Background(), Request{Sentence: claim + " [3]"})
	if cited.Label != "cited" {
		t.Fatalf("expected cited, got %+v", cited)
	}
}

func TestFallback_Caption(t *testing.T) {
	c := &Classifier{}
	got, _ := c.Classify(context.Background(), Request{RawCaption: "figure 2: accuracy\nover time", Profile: mustProfile(t, "ieee")})
	if got.Label != "caption" || len(got.Suggestions) != 1 {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if got.Suggestions[0] != "Fig. 2. accuracy over time" {
		t.Fatalf("unexpected caption: %q", got.Suggestions[0])
	}

	none, _ := c.Classify(context.Background(), Request{RawCaption: "plot"})
	if len(none.Suggestions) != 0 {
		t.Fatalf("no profile means no suggestion, got %v", none.Suggestions)
	}
}

func TestClassify_ModelResponseIsCached(t *testing.T) {
	dir := t.TempDir()
	fc := &fakeClient{content: `{"label":"vague","title":"Vague","message":"too informal","suggestions":["considerable"]}`}
	c := &Classifier{Client: fc, Model: "test-model", Cache: &cache.ResponseCache{Dir: dir}}

	got, err := c.Classify(context.Background(), Request{Term: "tons of"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "model" || got.Label != "vague" || got.Suggestions[0] != "considerable" {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if fc.last.Temperature != 0 || len(fc.last.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", fc.last)
	}
	if !strings.Contains(fc.last.Messages[1].Content, "tons of") {
		t.Fatalf("user message must carry the term: %q", fc.last.Messages[1].Content)
	}

	again, _ := c.Classify(context.Background(), Request{Term: "tons of"})
	if fc.calls != 1 {
		t.Fatalf("expected a cache hit, model called %d times", fc.calls)
	}
	if again.Label != got.Label || again.Message != got.Message {
		t.Fatalf("cached result differs: %+v vs %+v", again, got)
	}
}

func TestClassify_ModelFailureFallsBack(t *testing.T) {
	cases := []struct {
		name string
		fc   *fakeClient
	}{
		{"error", &fakeClient{err: errors.New("boom")}},
		{"not json", &fakeClient{content: "sure, here you go"}},
		{"no label", &fakeClient{content: `{"message":"x"}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Classifier{Client: tc.fc, Model: "m"}
			got, err := c.Classify(context.Background(), Request{Term: "very"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Source != "fallback" || got.Label != "vague" {
				t.Fatalf("expected fallback, got %+v", got)
			}
		})
	}
}

type listingClient struct{ fakeClient }

func (l *listingClient) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return openai.ModelsList{Models: []openai.Model{{ID: "a"}, {ID: "b"}}}, nil
}

func TestModels(t *testing.T) {
	ids, ok, err := Models(context.Background(), &listingClient{})
	if err != nil || !ok || strings.Join(ids, ",") != "a,b" {
		t.Fatalf("got %v %v %v", ids, ok, err)
	}
	_, ok, _ = Models(context.Background(), &fakeClient{})
	if ok {
		t.Fatalf("fake client does not list models")
	}
}

func TestOpenAIProvider_AgainstStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"local-model","object":"model"}]}`))
		case "/v1/chat/completions":
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"label\":\"ok\",\"message\":\"fine\"}"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1/", "test", srv.Client())
	ids, ok, err := Models(context.Background(), p)
	if err != nil || !ok || len(ids) != 1 || ids[0] != "local-model" {
		t.Fatalf("models: %v %v %v", ids, ok, err)
	}
	c := &Classifier{Client: p, Model: "local-model"}
	got, err := c.Classify(context.Background(), Request{Term: "very"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "model" || got.Label != "ok" {
		t.Fatalf("expected model answer, got %+v", got)
	}
}
