// Package classify is the client for the free-text analysis service: it
// labels a term, a sentence or a raw caption using an OpenAI-compatible chat
// model, with a deterministic fallback when the model is unavailable. The
// rule engine in package scan never uses it.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/paperpilot/internal/cache"
	"github.com/hyperifyio/paperpilot/internal/profile"
)

// ChatClient mirrors the subset of the OpenAI client we need.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Kind is what is being classified.
type Kind string

const (
	KindTerm     Kind = "term"
	KindSentence Kind = "sentence"
	KindCaption  Kind = "caption"
)

// Mode tells the caller how to use a suggestion.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// ErrInvalidRequest is returned when a request does not name exactly one input.
var ErrInvalidRequest = errors.New("classify: exactly one of term, sentence or rawCaption is required")

// Request carries exactly one of Term, Sentence or RawCaption. Profile is
// optional and only shapes suggestions (citation marker, caption prefix).
type Request struct {
	Term       string           `json:"term,omitempty"`
	Sentence   string           `json:"sentence,omitempty"`
	RawCaption string           `json:"rawCaption,omitempty"`
	Profile    *profile.Profile `json:"-"`
}

// Input returns the request kind and its text.
func (r Request) Input() (Kind, string, error) {
	var kind Kind
	var text string
	n := 0
	for k, v := range map[Kind]string{KindTerm: r.Term, KindSentence: r.Sentence, KindCaption: r.RawCaption} {
		if strings.TrimSpace(v) != "" {
			kind, text = k, strings.TrimSpace(v)
			n++
		}
	}
	if n != 1 {
		return "", "", ErrInvalidRequest
	}
	return kind, text, nil
}

// Classification is the service answer.
type Classification struct {
	Kind        Kind     `json:"kind"`
	Label       string   `json:"label"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	Mode        Mode     `json:"mode"`
	// Source is "model" or "fallback".
	Source string `json:"source"`
}

// Classifier performs classification with an optional model, cache and
// rate limiter. A nil Client always uses the fallback.
type Classifier struct {
	Client  ChatClient
	Model   string
	Cache   *cache.ResponseCache
	Limiter *rate.Limiter
	// SystemPrompt, when non-empty, overrides the default system message.
	SystemPrompt string
}

// Classify labels the request input. Model, cache and limiter failures fall
// back to the deterministic heuristics; only an invalid request is an error.
func (c *Classifier) Classify(ctx context.Context, req Request) (Classification, error) {
	kind, text, err := req.Input()
	if err != nil {
		return Classification{}, err
	}
	if c != nil && c.Client != nil && strings.TrimSpace(c.Model) != "" {
		if res, ok := c.classifyWithModel(ctx, kind, text, req.Profile); ok {
			return res, nil
		}
	}
	return fallback(kind, text, req.Profile), nil
}

func (c *Classifier) classifyWithModel(ctx context.Context, kind Kind, text string, p *profile.Profile) (Classification, bool) {
	sys := buildSystemMessage()
	if strings.TrimSpace(c.SystemPrompt) != "" {
		sys = c.SystemPrompt
	}
	user := buildUserMessage(kind, text, p)
	key := cache.KeyFrom(c.Model, sys+"\n\n"+user)
	if c.Cache != nil {
		if raw, ok, _ := c.Cache.Get(ctx, key); ok {
			if res, err := decode(raw, kind); err == nil {
				return res, true
			}
		}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("classify: rate limiter wait failed; using fallback")
			return Classification{}, false
		}
	}
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sys},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.0,
		N:           1,
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("classify: model call failed; using fallback")
		return Classification{}, false
	}
	raw := []byte(strings.TrimSpace(resp.Choices[0].Message.Content))
	res, err := decode(raw, kind)
	if err != nil {
		log.Warn().Err(err).Msg("classify: model returned unusable JSON; using fallback")
		return Classification{}, false
	}
	if c.Cache != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = c.Cache.Save(ctx, key, b)
		}
	}
	return res, true
}

func decode(raw []byte, kind Kind) (Classification, error) {
	var res Classification
	if err := json.Unmarshal(raw, &res); err != nil {
		return Classification{}, err
	}
	if strings.TrimSpace(res.Label) == "" {
		return Classification{}, fmt.Errorf("missing label")
	}
	res.Kind = kind
	res.Source = "model"
	if res.Mode != ModeAppend {
		res.Mode = ModeReplace
	}
	if res.Suggestions == nil {
		res.Suggestions = []string{}
	}
	return res, nil
}

func buildSystemMessage() string {
	return "You review academic manuscripts. Respond with strict JSON only: {\"label\":string,\"title\":string,\"message\":string,\"suggestions\":string[],\"mode\":\"replace|append\"}. " +
		"For a term, label it \"vague\" or \"ok\" and suggest precise academic replacements. " +
		"For a sentence, label it \"citation-needed\" when it states a claim without a citation, otherwise \"cited\" or \"ok\". " +
		"For a raw caption, label it \"caption\" and suggest the caption rewritten in the requested style."
}

func buildUserMessage(kind Kind, text string, p *profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("Kind: ")
	sb.WriteString(string(kind))
	sb.WriteString("\n")
	if p != nil {
		sb.WriteString("Journal: ")
		sb.WriteString(p.Name)
		sb.WriteString("\n")
		if r := p.Rules.CaptionStyle.Rule(profile.Figure); r != nil && kind == KindCaption {
			fmt.Fprintf(&sb, "Caption style: prefix %q, separator %q\n", r.Validate.ExpectedPrefix, r.Validate.Separator)
		}
		if p.Rules.CitationStyle != nil && kind == KindSentence {
			fmt.Fprintf(&sb, "Citation markers: %s\n", p.Rules.CitationStyle.Brackets)
		}
	}
	sb.WriteString("Text:\n\n")
	sb.WriteString(text)
	return sb.String()
}
