package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/models"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/charmbracelet/log"
)

// State names the positions of the session lifecycle machine.
//
// Transitions:
//
//	Unknown    → LoggedOut            no access token stored
//	Unknown    → Refreshing           token near expiry
//	Unknown    → Validating           token present, not near expiry
//	Refreshing → Valid                refresh succeeded, tokens persisted
//	Refreshing → Validating           proactive refresh failed, token may still work
//	Validating → Valid                profile call succeeded
//	Validating → Refreshing           profile call failed, last-chance refresh
//	Refreshing → LoggedOut            refresh exhausted, credentials cleared
type State int

const (
	StateUnknown State = iota
	StateValidating
	StateRefreshing
	StateValid
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateRefreshing:
		return "refreshing"
	case StateValid:
		return "valid"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Refresher exchanges a refresh token for a new token set. Implemented by
// [auth.Exchanger].
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenSet, error)
}

// Validator checks an access token against the profile endpoint, returning
// the profile on success. Implemented by the services API client.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*models.UserProfile, error)
}

// Snapshot is the session state presented to callers. IsLoading true means
// "unknown", not "logged out".
type Snapshot struct {
	State      State               `json:"state"`
	IsLoggedIn bool                `json:"isLoggedIn"`
	IsLoading  bool                `json:"isLoading"`
	Profile    *models.UserProfile `json:"userProfile,omitempty"`
}

// Options tune the lifecycle manager. Zero values fall back to a 300s safety
// margin and a 60s fallback check interval.
type Options struct {
	Margin   time.Duration
	Interval time.Duration
	Logger   *log.Logger
	Clock    func() time.Time
}

// Manager owns the token lifecycle: it is the only component that validates,
// refreshes, and clears persisted credentials. Failures are absorbed into the
// LoggedOut terminal state rather than surfaced to presentation code.
type Manager struct {
	store     Store
	refresher Refresher
	validator Validator
	margin    time.Duration
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time

	// checkMu serializes the decision procedure so the timer, the on-start
	// check, and store notifications cannot interleave refreshes.
	checkMu sync.Mutex

	mu      sync.Mutex
	state   State
	loading bool
	profile *models.UserProfile
}

// NewManager wires the lifecycle manager to its collaborators.
func NewManager(store Store, refresher Refresher, validator Validator, opts Options) *Manager {
	if opts.Margin <= 0 {
		opts.Margin = 300 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	m := &Manager{
		store:     store,
		refresher: refresher,
		validator: validator,
		margin:    opts.Margin,
		interval:  opts.Interval,
		logger:    opts.Logger,
		now:       opts.Clock,
		state:     StateUnknown,
	}

	// Seed the snapshot from the cached profile so presentation code has a
	// display name while the first check is still in flight. The first
	// validation replaces or clears it.
	if cache, ok := store.(ProfileCache); ok {
		if profile, err := cache.LoadProfile(); err == nil && profile != nil {
			m.profile = profile
		}
	}

	return m
}

// Check runs the authoritative decision procedure once:
//
//	no stored token            → LoggedOut
//	near expiry                → refresh, fall back to validation on failure
//	otherwise                  → validate, fall back to refresh on failure
//	validation and refresh out → clear credentials, LoggedOut
//
// Proactive refresh near expiry avoids a doomed validation round-trip; the
// credentials are only cleared once both paths are exhausted, so a single
// transient network failure does not log the user out.
func (m *Manager) Check(ctx context.Context) State {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	creds, err := Load(m.store)
	if err != nil {
		// Store read failures are transient; keep the current state and let
		// the next scheduled check retry.
		m.logger.Warn("session store read failed", "error", err)
		return m.State()
	}

	if creds.AccessToken == "" {
		m.setProfile(nil)
		return m.transition(StateLoggedOut)
	}

	if creds.ExpiresAt > 0 && creds.TimeUntilExpiry(m.now()) < m.margin {
		m.transition(StateRefreshing)
		if m.refresh(ctx, creds) {
			return m.transition(StateValid)
		}
		m.logger.Debug("proactive refresh failed, validating existing token")
	}

	m.transition(StateValidating)
	profile, err := m.validator.Validate(ctx, creds.AccessToken)
	if err == nil {
		m.setProfile(profile)
		m.cacheProfile(profile)
		return m.transition(StateValid)
	}
	m.logger.Debug("token validation failed", "error", err)

	m.transition(StateRefreshing)
	if m.refresh(ctx, creds) {
		return m.transition(StateValid)
	}

	if err := Clear(m.store); err != nil {
		m.logger.Warn("failed to clear session credentials", "error", err)
	}
	m.setProfile(nil)
	return m.transition(StateLoggedOut)
}

// refresh performs one refresh attempt and persists the result. A refresh
// token is retained unless the upstream rotated it. The write is discarded
// when a concurrent writer already stored a token with a later expiry, so a
// slow refresh can never clobber a newer token.
func (m *Manager) refresh(ctx context.Context, creds Credentials) bool {
	if m.refresher == nil {
		m.logger.Debug("no refresher configured")
		return false
	}
	if creds.RefreshToken == "" {
		m.logger.Debug("no refresh token stored")
		return false
	}

	set, err := m.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil || set.AccessToken == "" {
		m.logger.Warn("token refresh failed", "error", err)
		return false
	}

	next := Credentials{
		AccessToken:  set.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    set.ExpiresAt(m.now()),
	}
	if set.RefreshToken != "" {
		next.RefreshToken = set.RefreshToken
	}

	stored, err := Load(m.store)
	if err == nil && stored.AccessToken != "" && stored.AccessToken != creds.AccessToken && stored.ExpiresAt >= next.ExpiresAt {
		m.logger.Debug("discarding stale refresh result, newer token already stored")
		return true
	}

	if err := Save(m.store, next); err != nil {
		m.logger.Warn("failed to persist refreshed credentials", "error", err)
		return false
	}

	m.logger.Info("access token refreshed", "expires_at", next.ExpiresAt)
	return true
}

// Run executes the on-start check, then keeps the session fresh until the
// context is canceled. A single-shot timer fires at expires_at minus the
// safety margin (rescheduled after every successful refresh); when no expiry
// is known the fallback interval applies. Store change notifications re-run
// the check so concurrent consumers converge.
func (m *Manager) Run(ctx context.Context) {
	changes, cancel := m.store.Subscribe()
	defer cancel()

	m.Check(ctx)

	for {
		timer := time.NewTimer(m.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case _, ok := <-changes:
			timer.Stop()
			if !ok {
				return
			}
			drain(changes)
			m.Check(ctx)
		case <-timer.C:
			m.Check(ctx)
		}
	}
}

// nextDelay computes the time until the next scheduled check.
func (m *Manager) nextDelay() time.Duration {
	creds, err := Load(m.store)
	if err != nil || creds.AccessToken == "" || creds.ExpiresAt == 0 {
		return m.interval
	}

	until := creds.TimeUntilExpiry(m.now()) - m.margin
	if until < time.Second {
		return time.Second
	}
	return until
}

// drain coalesces bursts of change notifications (a credential save touches
// three keys) into one re-check.
func drain(ch <-chan Change) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// Logout clears all persisted credential fields and moves to LoggedOut. Other
// consumers observe the store change and converge.
func (m *Manager) Logout() error {
	err := Clear(m.store)
	m.setProfile(nil)
	m.transition(StateLoggedOut)
	return err
}

// Snapshot returns the current session state for presentation code.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state,
		IsLoggedIn: m.state == StateValid,
		IsLoading:  m.loading,
		Profile:    m.profile,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns the cached user profile, nil unless the session is valid.
func (m *Manager) Profile() *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *Manager) transition(next State) State {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev != next {
		m.logger.Debug("session state transition", "from", prev.String(), "to", next.String())
	}
	return next
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	m.loading = loading
	m.mu.Unlock()
}

func (m *Manager) setProfile(profile *models.UserProfile) {
	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
}

func (m *Manager) cacheProfile(profile *models.UserProfile) {
	if profile == nil {
		return
	}
	if cache, ok := m.store.(ProfileCache); ok {
		if err := cache.SaveProfile(profile); err != nil {
			m.logger.Warn("failed to cache profile", "error", err)
		}
	}
}
