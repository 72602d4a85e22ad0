package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"
)

// CORS allows browser calls from the listed origins. "*" allows any origin.
// Credentials are allowed, so the request origin is echoed back rather than "*".
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if slices.Contains(origins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		for _, o := range origins {
			opts.AllowedOrigins = append(opts.AllowedOrigins, strings.TrimRight(o, "/"))
		}
	}
	return cors.New(opts).Handler
}
