package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"sponte/internal/auth"
	"sponte/internal/logger"
	"sponte/internal/store"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

// CreateUser handles POST /internal/users.
// It generates a new API key, stores only its hash and returns the raw key ONCE.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		h.httpError(w, "A valid email is required", http.StatusBadRequest)
		return
	}

	tier := store.SubscriptionTier(req.SubscriptionTier)
	switch tier {
	case "":
		tier = store.TierStarter
	case store.TierStarter, store.TierPro, store.TierAgency:
	default:
		h.httpError(w, "Unknown subscription tier", http.StatusBadRequest)
		return
	}

	apiKey, hashedKey, err := auth.GenerateKey()
	if err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}

	user := &store.User{
		ID:               uuid.New(),
		Email:            email,
		SubscriptionTier: tier,
		CreatedAt:        h.now().UTC(),
	}
	err = h.store.CreateUser(ctx, user, hashedKey)
	if errors.Is(err, store.ErrDuplicateUser) {
		h.httpError(w, "User already exists", http.StatusConflict)
		return
	}
	if err != nil {
		h.serviceError(w, r, err, "User")
		return
	}

	logger.FromContext(ctx, h.logger).Info("user created", "user_id", user.ID)
	h.respondJson(w, http.StatusCreated, api.CreateUserResponse{
		ID:     user.ID.String(),
		Email:  user.Email,
		ApiKey: apiKey,
	})
}
