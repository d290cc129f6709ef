package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStateTTL is the window within which a callback must present the
// state token issued at /auth/start.
const DefaultStateTTL = 10 * time.Minute

type stateEntry struct {
	shopDomain string
	expiry     time.Time
}

// StateRegistry issues and validates single-use OAuth state tokens. It is an
// in-process map: states live ten minutes and are meaningless across
// processes.
type StateRegistry struct {
	mu     sync.Mutex
	states map[string]stateEntry
	ttl    time.Duration
	now    func() time.Time
}

// NewStateRegistry creates a registry with the given TTL (DefaultStateTTL
// when zero).
func NewStateRegistry(ttl time.Duration) *StateRegistry {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateRegistry{
		states: make(map[string]stateEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a fresh state token bound to shopDomain.
func (r *StateRegistry) Issue(shopDomain string) string {
	token := uuid.New().String()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Opportunistic prune so abandoned flows don't accumulate.
	for k, e := range r.states {
		if now.After(e.expiry) {
			delete(r.states, k)
		}
	}
	r.states[token] = stateEntry{shopDomain: shopDomain, expiry: now.Add(r.ttl)}
	return token
}

// Consume validates and deletes a state token. A token is valid exactly once
// and only within its TTL; the bound shop domain is returned on success.
func (r *StateRegistry) Consume(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.states[token]
	if !ok {
		return "", false
	}
	delete(r.states, token)
	if r.now().After(e.expiry) {
		return "", false
	}
	return e.shopDomain, true
}
