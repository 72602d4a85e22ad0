// Package google connects locations to Google Business Profile: the OAuth
// consent flow, sealed token storage and the Business Profile API client.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"sponte/internal/auth"
	"sponte/internal/logger"
	"sponte/internal/store"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// Scopes requested during consent.
var Scopes = []string{
	"https://www.googleapis.com/auth/business.manage",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

var (
	// ErrInvalidState is returned when a callback state is unknown, used or expired.
	ErrInvalidState = errors.New("invalid or expired oauth state")
	// ErrNotConnected is returned when a location has no stored Google token.
	ErrNotConnected = errors.New("location is not connected to google")
	// ErrNotConfigured is returned when no OAuth client credentials are set.
	ErrNotConfigured = errors.New("google oauth is not configured")
)

// OAuthConfig holds the OAuth client registration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides Google's endpoints; used in tests.
	Endpoint *oauth2.Endpoint
}

// OAuthService runs the consent flow and hands out authenticated HTTP clients.
type OAuthService struct {
	cfg    *oauth2.Config
	states *auth.StateStore
	sealer *auth.Sealer
	tokens store.TokenStore
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewOAuthService wires the flow. client is used for the token endpoint and
// for API calls made with the resulting tokens.
func NewOAuthService(cfg OAuthConfig, states *auth.StateStore, sealer *auth.Sealer, tokens store.TokenStore, client *http.Client, log *slog.Logger) *OAuthService {
	endpoint := googleoauth.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &OAuthService{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		states: states,
		sealer: sealer,
		tokens: tokens,
		client: client,
		logger: log,
		now:    time.Now,
	}
}

// Configured reports whether client credentials are present.
func (s *OAuthService) Configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

func (s *OAuthService) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

// AuthURL starts a consent flow for the location and returns the Google URL
// the user must visit.
func (s *OAuthService) AuthURL(userID, locationID uuid.UUID) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	state, err := s.states.Issue(auth.PendingAuth{UserID: userID, LocationID: locationID})
	if err != nil {
		return "", err
	}
	return s.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange completes a consent flow. The state is consumed even if the code
// exchange fails.
func (s *OAuthService) Exchange(ctx context.Context, state, code string) (*store.OAuthToken, error) {
	pending, ok := s.states.Consume(state)
	if !ok {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	tok, err := s.cfg.Exchange(s.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	row, err := s.save(ctx, pending.UserID, pending.LocationID, tok)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("google account connected", "location_id", pending.LocationID)
	return row, nil
}

func (s *OAuthService) save(ctx context.Context, userID, locationID uuid.UUID, tok *oauth2.Token) (*store.OAuthToken, error) {
	access, err := s.sealer.Seal(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sealer.Seal(tok.RefreshToken)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	row := &store.OAuthToken{
		ID:                 uuid.New(),
		UserID:             userID,
		LocationID:         locationID,
		Provider:           store.ProviderGoogle,
		AccessTokenSealed:  access,
		RefreshTokenSealed: refresh,
		Scope:              scopeOf(tok),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		row.ExpiresAt = &exp
	}

	if err := s.tokens.UpsertOAuthToken(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return row, nil
}

func scopeOf(tok *oauth2.Token) string {
	if v, ok := tok.Extra("scope").(string); ok && v != "" {
		return v
	}
	return strings.Join(Scopes, " ")
}

// Disconnect forgets the location's Google token.
func (s *OAuthService) Disconnect(ctx context.Context, locationID uuid.UUID) error {
	err := s.tokens.DeleteOAuthToken(ctx, locationID, store.ProviderGoogle)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotConnected
	}
	return err
}

// ConnectionStatus describes a location's Google connection.
type ConnectionStatus struct {
	Connected   bool
	ExpiresAt   *time.Time
	Expired     bool
	Refreshable bool
	Scope       string
	ConnectedAt *time.Time
}

// Status reports whether the location holds a usable Google token.
func (s *OAuthService) Status(ctx context.Context, locationID uuid.UUID) (*ConnectionStatus, error) {
	row, err := s.tokens.GetOAuthToken(ctx, locationID, store.ProviderGoogle)
	if errors.Is(err, store.ErrNotFound) {
		return &ConnectionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &ConnectionStatus{
		Connected:   true,
		ExpiresAt:   row.ExpiresAt,
		Refreshable: len(row.RefreshTokenSealed) > 0,
		Scope:       row.Scope,
		ConnectedAt: &row.CreatedAt,
	}
	if row.ExpiresAt != nil && !row.ExpiresAt.After(s.now()) {
		st.Expired = true
	}
	return st, nil
}

// HTTPClient returns a client that authenticates as the location's Google
// account. Refreshed tokens are sealed and written back.
func (s *OAuthService) HTTPClient(ctx context.Context, locationID uuid.UUID) (*http.Client, error) {
	ts, err := s.TokenSource(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(s.withClient(ctx), ts), nil
}

// TokenSource loads the stored token for the location.
func (s *OAuthService) TokenSource(ctx context.Context, locationID uuid.UUID) (oauth2.TokenSource, error) {
	row, err := s.tokens.GetOAuthToken(ctx, locationID, store.ProviderGoogle)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}

	access, err := s.sealer.Open(row.AccessTokenSealed)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sealer.Open(row.RefreshTokenSealed)
	if err != nil {
		return nil, err
	}

	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if row.ExpiresAt != nil {
		tok.Expiry = *row.ExpiresAt
	}

	return &persistingSource{
		base:   s.cfg.TokenSource(s.withClient(ctx), tok),
		last:   access,
		svc:    s,
		ctx:    context.WithoutCancel(ctx),
		userID: row.UserID,
		locID:  locationID,
	}, nil
}

// persistingSource saves every token that differs from the last one seen.
type persistingSource struct {
	base oauth2.TokenSource
	svc  *OAuthService
	ctx  context.Context

	userID uuid.UUID
	locID  uuid.UUID

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	if _, err := p.svc.save(p.ctx, p.userID, p.locID, tok); err != nil {
		p.svc.logger.Error("failed to persist refreshed token", "location_id", p.locID, "error", err)
	} else {
		p.svc.logger.Info("google token refreshed", "location_id", p.locID)
	}
	p.last = tok.AccessToken
	return tok, nil
}
