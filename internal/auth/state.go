package auth

import (
	"sync"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/shared"
)

// DefaultStateTTL bounds how long an issued state nonce stays valid. A login
// redirect that has not come back within this window must be restarted.
const DefaultStateTTL = 10 * time.Minute

// StateRegistry tracks state nonces issued by the redirect initiator so the
// callback handler can verify the round trip. Nonces are single-use: Consume
// removes the entry whether or not it matched.
type StateRegistry struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]time.Time
	now    func() time.Time
}

// NewStateRegistry creates a registry with the given nonce lifetime.
// Non-positive lifetimes fall back to [DefaultStateTTL].
func NewStateRegistry(ttl time.Duration) *StateRegistry {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateRegistry{
		ttl:    ttl,
		issued: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue generates, records, and returns a fresh state nonce.
func (r *StateRegistry) Issue() string {
	state := shared.GenerateState(shared.MinStateLength)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.issued[state] = now.Add(r.ttl)
	r.sweep(now)

	return state
}

// Consume reports whether the state was issued here and is still within its
// lifetime. An empty or unknown state is a mismatch, never success by
// default. The entry is removed either way.
func (r *StateRegistry) Consume(state string) bool {
	if state == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deadline, ok := r.issued[state]
	if ok {
		delete(r.issued, state)
	}
	return ok && r.now().Before(deadline)
}

// Pending returns the number of outstanding nonces.
func (r *StateRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}

// sweep drops expired entries; callers hold the lock.
func (r *StateRegistry) sweep(now time.Time) {
	for state, deadline := range r.issued {
		if now.After(deadline) {
			delete(r.issued, state)
		}
	}
}
