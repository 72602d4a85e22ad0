package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sponte/internal/agents"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultBaseURL is the public Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	defaultMaxRetries = 2
)

// Anthropic calls the Messages API through the official SDK.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a client. Empty baseURL and model fall back to the
// defaults; a nil client uses http.DefaultClient.
func NewAnthropic(apiKey, baseURL, model string, client *http.Client, opts ...option.RequestOption) *Anthropic {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithHTTPClient(client),
		option.WithMaxRetries(defaultMaxRetries),
	}
	return &Anthropic{
		client: anthropic.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Generate drafts one artifact for req.
func (a *Anthropic) Generate(ctx context.Context, req agents.GenerationRequest) (*agents.GeneratedContent, error) {
	tune := tuningFor(req.OutputType)
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(tune.maxTokens),
		Temperature: anthropic.Float(tune.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic returned %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	r, err := parseReply(text.String())
	if err != nil {
		return nil, err
	}

	model := string(msg.Model)
	if model == "" {
		model = a.model
	}
	return r.toContent(req, model)
}

// parseReply decodes the single JSON object the prompt asks for. A markdown
// code fence around it is tolerated; any other surrounding text is not.
func parseReply(text string) (reply, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}

	var r reply
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&r); err != nil {
		return reply{}, fmt.Errorf("model reply is not a JSON object: %w", err)
	}
	if dec.More() {
		return reply{}, fmt.Errorf("model reply has trailing data after the JSON object")
	}
	return r, nil
}
