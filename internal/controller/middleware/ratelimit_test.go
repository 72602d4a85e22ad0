package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sponte/internal/store"

	"github.com/google/uuid"
)

func userCtx() context.Context {
	return NewContextWithUser(context.Background(), &store.User{ID: uuid.New()})
}

func limited(opts ...RateLimitOption) http.Handler {
	return NewRateLimiter(opts...).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func serve(h http.Handler, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddleware_NoUserInContext(t *testing.T) {
	rr := serve(limited(), context.Background())
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRateLimitMiddleware_AllowsRequestUnderLimit(t *testing.T) {
	rr := serve(limited(WithLimit(100, 200)), userCtx())
	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_RejectsRequestOverLimit(t *testing.T) {
	h := limited(WithLimit(1, 1))
	ctx := userCtx()

	// First request should succeed (uses the burst)
	if rr := serve(h, ctx); rr.Code != http.StatusOK {
		t.Errorf("first request: got status %d, want %d", rr.Code, http.StatusOK)
	}

	// Second request should be rate limited (burst exhausted)
	rr := serve(h, ctx)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("got Retry-After %q, want %q", got, "1")
	}
}

func TestRateLimitMiddleware_IndependentLimitsPerUser(t *testing.T) {
	h := limited(WithLimit(1, 1))
	ctxA, ctxB := userCtx(), userCtx()

	serve(h, ctxA)
	if rr := serve(h, ctxA); rr.Code != http.StatusTooManyRequests {
		t.Errorf("user A second request: got status %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr := serve(h, ctxB); rr.Code != http.StatusOK {
		t.Errorf("user B request: got status %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_UnlimitedWhenRateZero(t *testing.T) {
	h := limited(WithLimit(0, 0))
	ctx := userCtx()
	for i := range 10 {
		if rr := serve(h, ctx); rr.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d", i, rr.Code)
		}
	}
}

func TestRateLimitMiddleware_ExpiredLimiterIsReplaced(t *testing.T) {
	rl := NewRateLimiter(WithLimit(1, 1), WithTTL(time.Minute))
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	ctx := userCtx()

	serve(h, ctx)
	if rr := serve(h, ctx); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected limit before expiry, got %d", rr.Code)
	}

	now = now.Add(2 * time.Minute)
	if rr := serve(h, ctx); rr.Code != http.StatusOK {
		t.Errorf("expected fresh bucket after ttl, got %d", rr.Code)
	}
}
