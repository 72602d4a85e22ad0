package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per authenticated user.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	limiters sync.Map // uuid.UUID -> *cachedLimiter
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithLimit sets requests per second and burst size. A non-positive rps disables limiting.
func WithLimit(rps float64, burst int) RateLimitOption {
	return func(l *RateLimiter) {
		l.limit = rate.Limit(rps)
		l.burst = burst
	}
}

// WithTTL sets how long an idle user's bucket is kept.
func WithTTL(ttl time.Duration) RateLimitOption {
	return func(l *RateLimiter) { l.ttl = ttl }
}

func NewRateLimiter(opts ...RateLimitOption) *RateLimiter {
	l := &RateLimiter{limit: 10, burst: 20, ttl: 5 * time.Minute, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// Middleware must run after AuthMiddleware.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if l.limit > 0 && !l.limiterFor(userID).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (l *RateLimiter) limiterFor(id uuid.UUID) *rate.Limiter {
	now := l.now()
	if v, ok := l.limiters.Load(id); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Store(id, &cachedLimiter{limiter: limiter, expiresAt: now.Add(l.ttl)})
	return limiter
}
