// Package notifier sends transactional email through Resend.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sponte/internal/logger"

	"github.com/resend/resend-go/v2"
)

// DefaultBaseURL is the Resend API host.
const DefaultBaseURL = "https://api.resend.com"

// Message is one plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects the delivery backend.
type Config struct {
	APIKey  string
	BaseURL string
	From    string
}

// New returns a Resend notifier when an API key is configured and a logging
// no-op otherwise.
func New(cfg Config, client *http.Client, log *slog.Logger) Notifier {
	if log == nil {
		log = slog.Default()
	}
	if cfg.APIKey == "" {
		log.Warn("resend api key not configured, emails will only be logged")
		return &Noop{logger: log}
	}
	r, err := NewResend(cfg, client)
	if err != nil {
		log.Error("invalid resend base url, emails will only be logged", "base_url", cfg.BaseURL, "error", err)
		return &Noop{logger: log}
	}
	return r
}

// Resend sends messages through the Resend SDK.
type Resend struct {
	client *resend.Client
	from   string
}

// NewResend creates a Resend client. An empty BaseURL targets the public API.
func NewResend(cfg Config, client *http.Client) (*Resend, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse resend base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	c := resend.NewCustomClient(client, cfg.APIKey)
	c.BaseURL = base
	return &Resend{client: c, from: cfg.From}, nil
}

// Send delivers msg. msg.From overrides the configured sender.
func (r *Resend) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	from := msg.From
	if from == "" {
		from = r.from
	}

	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// Noop logs messages instead of sending them.
type Noop struct {
	logger *slog.Logger
}

func (n *Noop) Send(ctx context.Context, msg Message) error {
	logger.FromContext(ctx, n.logger).Info("email not sent, notifier disabled",
		"to", msg.To, "subject", msg.Subject)
	return nil
}
