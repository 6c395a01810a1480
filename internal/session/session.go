package session

import (
	"strconv"
	"sync"
	"time"
)

// Persisted credential keys. Each field is independently readable and
// removable; absence of the access-token key is the sole logged-out signal.
const (
	KeyAccessToken  = "spotify_access_token"
	KeyRefreshToken = "spotify_refresh_token"
	KeyExpiresAt    = "spotify_token_expires_at"
)

// Credentials is the persisted token triple. In steady state it is either
// fully present or fully absent; partial shapes only occur transiently while
// a write is in flight.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is an absolute epoch-millisecond timestamp. Zero means the
	// expiry is unknown.
	ExpiresAt int64
}

// Present reports whether all three fields are set.
func (c Credentials) Present() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.ExpiresAt > 0
}

// TimeUntilExpiry returns the remaining token lifetime relative to now.
// Negative when already expired, zero when the expiry is unknown.
func (c Credentials) TimeUntilExpiry(now time.Time) time.Duration {
	if c.ExpiresAt == 0 {
		return 0
	}
	return time.UnixMilli(c.ExpiresAt).Sub(now)
}

// Change describes a mutation of a persisted credential field. Delivered to
// subscribers so concurrent consumers (the cross-tab analog) re-run their
// session check.
type Change struct {
	Key string
}

// Store is the persistent key-value storage backing the session. Writes
// notify all subscribers; notifications are advisory, not locks.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Subscribe() (<-chan Change, func())
}

// Load reads the credential triple from a store. A malformed expiry value is
// treated as unknown rather than an error.
func Load(s Store) (Credentials, error) {
	var creds Credentials
	var err error

	if creds.AccessToken, err = s.Get(KeyAccessToken); err != nil {
		return Credentials{}, err
	}
	if creds.RefreshToken, err = s.Get(KeyRefreshToken); err != nil {
		return Credentials{}, err
	}

	raw, err := s.Get(KeyExpiresAt)
	if err != nil {
		return Credentials{}, err
	}
	if raw != "" {
		if ms, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			creds.ExpiresAt = ms
		}
	}

	return creds, nil
}

// Save writes the credential triple to a store.
func Save(s Store, creds Credentials) error {
	if err := s.Set(KeyAccessToken, creds.AccessToken); err != nil {
		return err
	}
	if err := s.Set(KeyRefreshToken, creds.RefreshToken); err != nil {
		return err
	}
	return s.Set(KeyExpiresAt, strconv.FormatInt(creds.ExpiresAt, 10))
}

// Clear removes all three credential fields.
func Clear(s Store) error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// notifier implements subscriber fan-out shared by the store implementations.
// Delivery is best-effort: a subscriber with a full buffer misses the event
// and catches up on its next scheduled check.
type notifier struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func (n *notifier) Subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan Change)
	}

	id := n.next
	n.next++
	ch := make(chan Change, 8)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (n *notifier) publish(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- Change{Key: key}:
		default:
		}
	}
}

// MemoryStore is an in-process Store used by tests and the CLI auth flow.
type MemoryStore struct {
	notifier
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.publish(key)
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()
	if existed {
		m.publish(key)
	}
	return nil
}
