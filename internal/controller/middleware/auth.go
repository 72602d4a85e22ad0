// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"sponte/internal/auth"
	"sponte/internal/logger"
	"sponte/internal/store"
	"sponte/pkg/api"

	"github.com/google/uuid"
)

// userKey is the context key for the authenticated user.
type userKey struct{}

// UserLookup is the part of the store the auth middleware needs.
type UserLookup interface {
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error)
}

// AuthMiddleware resolves a Bearer API key to its user and stores the user in
// the request context. Malformed keys are refused without touching the store.
func AuthMiddleware(s UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := bearerToken(r)
			if !ok {
				writeError(w, "Missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			if !auth.WellFormed(key) {
				writeError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			user, err := s.GetUserByAPIKeyHash(r.Context(), auth.HashKey(key))
			if errors.Is(err, store.ErrNotFound) || (err == nil && user == nil) {
				writeError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			if err != nil {
				logger.FromContext(r.Context(), slog.Default()).Error("failed to look up api key", "error", err)
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := logger.WithUserID(NewContextWithUser(r.Context(), user), user.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewContextWithUser returns ctx carrying the authenticated user.
func NewContextWithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext extracts the authenticated user.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey{}).(*store.User)
	return u, ok && u != nil
}

// UserIDFromContext extracts the authenticated user's ID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
