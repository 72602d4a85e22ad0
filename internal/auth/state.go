package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultStateTTL bounds how long an OAuth consent flow may take.
const DefaultStateTTL = 10 * time.Minute

const maxPendingStates = 4096

// PendingAuth is what an OAuth state token stands for.
type PendingAuth struct {
	UserID     uuid.UUID
	LocationID uuid.UUID
}

// StateStore tracks single-use CSRF state tokens for OAuth redirects.
// Entries expire after the TTL and the oldest are evicted past capacity.
type StateStore struct {
	cache *expirable.LRU[string, PendingAuth]
}

// NewStateStore returns a store whose entries live for ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{cache: expirable.NewLRU[string, PendingAuth](maxPendingStates, nil, ttl)}
}

// Issue records p under a fresh random state token.
func (s *StateStore) Issue(p PendingAuth) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	s.cache.Add(state, p)
	return state, nil
}

// Consume returns the pending auth for state and invalidates it.
func (s *StateStore) Consume(state string) (PendingAuth, bool) {
	p, ok := s.cache.Get(state)
	if !ok {
		return PendingAuth{}, false
	}
	s.Invalidate(state)
	return p, true
}

// Invalidate drops a single state.
func (s *StateStore) Invalidate(state string) {
	s.cache.Remove(state)
}

// Purge drops every pending state.
func (s *StateStore) Purge() {
	s.cache.Purge()
}

// Len reports the number of unexpired states.
func (s *StateStore) Len() int {
	return s.cache.Len()
}
