// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sponte/internal/agents"
	"sponte/internal/controller/middleware"
	"sponte/internal/google"
	"sponte/internal/logger"
	"sponte/internal/onboarding"
	"sponte/internal/reports"
	"sponte/internal/scheduler"
	"sponte/internal/store"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// OAuthFlow is the Google connection flow used by the oauth handlers.
type OAuthFlow interface {
	AuthURL(userID, locationID uuid.UUID) (string, error)
	Exchange(ctx context.Context, state, code string) (*store.OAuthToken, error)
	Disconnect(ctx context.Context, locationID uuid.UUID) error
	Status(ctx context.Context, locationID uuid.UUID) (*google.ConnectionStatus, error)
}

// JobRunner triggers scheduler jobs on demand.
type JobRunner interface {
	Trigger(name string) error
	Jobs() []scheduler.JobInfo
}

// Deps are the services behind the API.
type Deps struct {
	Store      store.Store
	Agents     *agents.Service
	Onboarding *onboarding.Service
	Reports    *reports.Service
	OAuth      OAuthFlow
	Jobs       JobRunner
	// FrontendURL receives the browser after the OAuth callback.
	FrontendURL string
	Logger      *slog.Logger
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store       store.Store
	agents      *agents.Service
	onboarding  *onboarding.Service
	reports     *reports.Service
	oauth       OAuthFlow
	jobs        JobRunner
	frontendURL string
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a new Handlers instance with the given dependencies.
func New(d Deps) *Handlers {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		store:       d.Store,
		agents:      d.Agents,
		onboarding:  d.Onboarding,
		reports:     d.Reports,
		oauth:       d.OAuth,
		jobs:        d.Jobs,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		logger:      log,
		now:         time.Now,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// serviceError maps domain errors to HTTP statuses. what names the resource
// in not-found messages.
func (h *Handlers) serviceError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var genErr *agents.GenerationError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, google.ErrNotConnected):
		h.httpError(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		h.respondJson(w, http.StatusConflict, api.ErrorResponse{
			Error:   "Invalid state transition",
			Code:    strconv.Itoa(http.StatusConflict),
			Details: err.Error(),
		})
	case errors.Is(err, store.ErrDuplicateTask):
		h.httpError(w, "Task already exists", http.StatusConflict)
	case errors.As(err, &genErr):
		h.respondJson(w, http.StatusBadGateway, api.ErrorResponse{
			Error:   "Content generation failed",
			Code:    strconv.Itoa(http.StatusBadGateway),
			Details: genErr.Err.Error(),
		})
	case errors.Is(err, agents.ErrInvalidInput),
		errors.Is(err, agents.ErrUnsupportedTask),
		errors.Is(err, onboarding.ErrInvalidInput),
		errors.Is(err, reports.ErrInvalidPeriod):
		h.httpError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, google.ErrInvalidState):
		h.httpError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, google.ErrNotConfigured):
		h.httpError(w, "Google integration is not configured", http.StatusServiceUnavailable)
	default:
		logger.FromContext(r.Context(), h.logger).Error("request failed", "path", r.URL.Path, "error", err)
		h.httpError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) principal(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
	}
	return user, ok
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.httpError(w, "Invalid "+what+" id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// ownedLocation loads the location and hides it unless the principal owns it.
func (h *Handlers) ownedLocation(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*store.Location, bool) {
	user, ok := h.principal(w, r)
	if !ok {
		return nil, false
	}
	loc, err := h.store.GetLocation(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err, "Location")
		return nil, false
	}
	if loc.UserID != user.ID {
		h.httpError(w, "Location not found", http.StatusNotFound)
		return nil, false
	}
	return loc, true
}

// locationParam resolves the {id} path segment to an owned location.
func (h *Handlers) locationParam(w http.ResponseWriter, r *http.Request) (*store.Location, bool) {
	id, ok := h.pathID(w, r, "id", "location")
	if !ok {
		return nil, false
	}
	return h.ownedLocation(w, r, id)
}

func (h *Handlers) agentParam(w http.ResponseWriter, r *http.Request) (store.AgentType, bool) {
	agent := store.AgentType(r.PathValue("agent"))
	if !agent.Valid() {
		h.httpError(w, "Unknown agent type", http.StatusBadRequest)
		return "", false
	}
	return agent, true
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.httpError(w, "Invalid limit", http.StatusBadRequest)
			return 0, 0, false
		}
		limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.httpError(w, "Invalid offset", http.StatusBadRequest)
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
