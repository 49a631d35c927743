package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/paperpilot/internal/classify"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// parseUserMessage reads the kind and text from the classification prompt.
func parseUserMessage(user string) classify.Request {
	var kind, text string
	if head, body, ok := strings.Cut(user, "Text:\n\n"); ok {
		text = body
		for _, line := range strings.Split(head, "\n") {
			if v, ok := strings.CutPrefix(line, "Kind: "); ok {
				kind = strings.TrimSpace(v)
			}
		}
	}
	switch classify.Kind(kind) {
	case classify.KindTerm:
		return classify.Request{Term: text}
	case classify.KindSentence:
		return classify.Request{Sentence: text}
	case classify.KindCaption:
		return classify.Request{RawCaption: text}
	}
	return classify.Request{}
}

// newHandler answers the OpenAI models and chat endpoints with the
// deterministic heuristics, so the task pane and the CLI can be exercised
// without a model server.
func newHandler(model string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		user := ""
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		res, err := (&classify.Classifier{}).Classify(r.Context(), parseUserMessage(user))
		if err != nil {
			http.Error(w, "unexpected prompt", http.StatusBadRequest)
			return
		}
		b, _ := json.Marshal(res)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(b)}},
			},
		})
	})
	return mux
}

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newHandler(model)); err != nil {
		log.Fatal().Err(err).Msg("openai-stub stopped")
	}
}
