// Package generator implements agents.Generator on top of the Anthropic
// Messages API, with a deterministic fallback for unconfigured environments.
package generator

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"sponte/internal/agents"
	"sponte/internal/store"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config selects and tunes the generator.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New returns an Anthropic-backed generator when an API key is configured and
// the mock generator otherwise.
func New(cfg Config, log *slog.Logger) agents.Generator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIKey == "" {
		log.Warn("anthropic api key not configured, using mock generator")
		return NewMock()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return NewAnthropic(cfg.APIKey, cfg.BaseURL, cfg.Model, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// reply is the JSON object every prompt asks the model to return.
type reply struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Response        string `json:"response"`
	CTA             string `json:"cta"`
	MetaDescription string `json:"meta_description"`
	Reasoning       string `json:"reasoning"`
}

// toContent validates a model reply against the request's constraints.
func (r reply) toContent(req agents.GenerationRequest, model string) (*agents.GeneratedContent, error) {
	body := r.Content
	if body == "" {
		body = r.Response
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("reply has no content")
	}

	out := &agents.GeneratedContent{
		Title:     strings.TrimSpace(r.Title),
		Content:   body,
		Reasoning: r.Reasoning,
		Model:     model,
	}

	if r.CTA != "" {
		cta, ok := store.ParseCallToAction(r.CTA)
		if !ok {
			return nil, fmt.Errorf("reply has invalid cta %q", r.CTA)
		}
		out.CallToAction = &cta
	}
	if req.OutputType == store.OutputGBPPost && out.CallToAction == nil {
		return nil, fmt.Errorf("gbp post reply is missing a cta")
	}

	if word, found := containsForbidden(out.Title+" "+out.Content, req.Location.ForbiddenWords); found {
		return nil, fmt.Errorf("reply contains forbidden word %q", word)
	}
	return out, nil
}

func containsForbidden(text string, words []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}

// samples caps the recent outputs shown to the model.
func samples(recent []string, n int) []string {
	return slices.Clone(recent[:min(len(recent), n)])
}
