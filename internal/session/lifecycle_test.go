package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/models"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	fn    func(refreshToken string) (*auth.TokenSet, error)
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*auth.TokenSet, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(refreshToken)
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeValidator struct {
	mu    sync.Mutex
	calls int
	fn    func(accessToken string) (*models.UserProfile, error)
}

func (f *fakeValidator) Validate(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(accessToken)
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okValidator(id string) *fakeValidator {
	return &fakeValidator{fn: func(string) (*models.UserProfile, error) {
		return &models.UserProfile{ID: id, DisplayName: "Test User"}, nil
	}}
}

func failValidator() *fakeValidator {
	return &fakeValidator{fn: func(string) (*models.UserProfile, error) {
		return nil, errors.New("401 access token expired")
	}}
}

func okRefresher(access string, expiresIn int64) *fakeRefresher {
	return &fakeRefresher{fn: func(string) (*auth.TokenSet, error) {
		return &auth.TokenSet{AccessToken: access, ExpiresIn: expiresIn}, nil
	}}
}

func failRefresher() *fakeRefresher {
	return &fakeRefresher{fn: func(string) (*auth.TokenSet, error) {
		return nil, errors.New("invalid_grant")
	}}
}

func managerUnderTest(store Store, r Refresher, v Validator, now time.Time) *Manager {
	return NewManager(store, r, v, Options{
		Margin:   5 * time.Minute,
		Interval: time.Minute,
		Clock:    func() time.Time { return now },
	})
}

func TestManagerCheck(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	freshCreds := func() Credentials {
		return Credentials{
			AccessToken:  "current_access",
			RefreshToken: "current_refresh",
			ExpiresAt:    now.Add(time.Hour).UnixMilli(),
		}
	}
	nearExpiryCreds := func() Credentials {
		return Credentials{
			AccessToken:  "stale_access",
			RefreshToken: "current_refresh",
			ExpiresAt:    now.Add(time.Minute).UnixMilli(),
		}
	}

	t.Run("No Token Means Logged Out", func(t *testing.T) {
		store := NewMemoryStore()
		m := managerUnderTest(store, okRefresher("x", 3600), okValidator("u"), now)

		if state := m.Check(ctx); state != StateLoggedOut {
			t.Errorf("expected LoggedOut, got %s", state)
		}

		snap := m.Snapshot()
		if snap.IsLoggedIn || snap.Profile != nil {
			t.Errorf("expected signed-out snapshot, got %+v", snap)
		}
	})

	t.Run("Valid Token Validates Without Refresh", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, freshCreds())

		refresher := okRefresher("unused", 3600)
		validator := okValidator("user1")
		m := managerUnderTest(store, refresher, validator, now)

		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid, got %s", state)
		}
		if refresher.callCount() != 0 {
			t.Errorf("expected no refresh for healthy token, got %d calls", refresher.callCount())
		}
		if validator.callCount() != 1 {
			t.Errorf("expected one validation, got %d", validator.callCount())
		}

		snap := m.Snapshot()
		if !snap.IsLoggedIn || snap.Profile == nil || snap.Profile.ID != "user1" {
			t.Errorf("expected signed-in snapshot with profile, got %+v", snap)
		}
	})

	t.Run("Near Expiry Refreshes First", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, nearExpiryCreds())

		refresher := okRefresher("refreshed_access", 3600)
		validator := okValidator("user1")
		m := managerUnderTest(store, refresher, validator, now)

		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid, got %s", state)
		}
		if refresher.callCount() != 1 {
			t.Errorf("expected one refresh, got %d", refresher.callCount())
		}
		if validator.callCount() != 0 {
			t.Errorf("expected no validation after successful proactive refresh, got %d", validator.callCount())
		}

		creds, _ := Load(store)
		if creds.AccessToken != "refreshed_access" {
			t.Errorf("expected refreshed token persisted, got %q", creds.AccessToken)
		}
		if creds.RefreshToken != "current_refresh" {
			t.Errorf("expected refresh token retained, got %q", creds.RefreshToken)
		}
		if creds.ExpiresAt != now.Add(time.Hour).UnixMilli() {
			t.Errorf("expected expiry one hour out, got %d", creds.ExpiresAt)
		}
	})

	t.Run("Rotated Refresh Token Replaces Stored One", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, nearExpiryCreds())

		refresher := &fakeRefresher{fn: func(string) (*auth.TokenSet, error) {
			return &auth.TokenSet{
				AccessToken:  "refreshed_access",
				RefreshToken: "rotated_refresh",
				ExpiresIn:    3600,
			}, nil
		}}
		m := managerUnderTest(store, refresher, okValidator("u"), now)

		m.Check(ctx)

		creds, _ := Load(store)
		if creds.RefreshToken != "rotated_refresh" {
			t.Errorf("expected rotated refresh token persisted, got %q", creds.RefreshToken)
		}
	})

	t.Run("Failed Proactive Refresh Falls Back To Validation", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, nearExpiryCreds())

		refresher := failRefresher()
		validator := okValidator("user1")
		m := managerUnderTest(store, refresher, validator, now)

		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid via validation fallback, got %s", state)
		}
		if validator.callCount() != 1 {
			t.Errorf("expected validation fallback, got %d calls", validator.callCount())
		}

		// the still-working token must survive
		creds, _ := Load(store)
		if creds.AccessToken != "stale_access" {
			t.Errorf("expected stored token untouched, got %q", creds.AccessToken)
		}
	})

	t.Run("Failed Validation Falls Back To Refresh", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, freshCreds())

		refresher := okRefresher("recovered_access", 3600)
		m := managerUnderTest(store, refresher, failValidator(), now)

		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid via refresh fallback, got %s", state)
		}
		creds, _ := Load(store)
		if creds.AccessToken != "recovered_access" {
			t.Errorf("expected recovered token persisted, got %q", creds.AccessToken)
		}
	})

	t.Run("Both Paths Exhausted Clears Credentials", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, freshCreds())

		m := managerUnderTest(store, failRefresher(), failValidator(), now)

		if state := m.Check(ctx); state != StateLoggedOut {
			t.Errorf("expected LoggedOut, got %s", state)
		}

		creds, _ := Load(store)
		if creds.AccessToken != "" || creds.RefreshToken != "" || creds.ExpiresAt != 0 {
			t.Errorf("expected cleared store, got %+v", creds)
		}
	})

	t.Run("No Refresh Token Skips Refresh", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, Credentials{
			AccessToken: "orphan_access",
			ExpiresAt:   now.Add(time.Minute).UnixMilli(),
		})

		refresher := okRefresher("x", 3600)
		m := managerUnderTest(store, refresher, failValidator(), now)

		if state := m.Check(ctx); state != StateLoggedOut {
			t.Errorf("expected LoggedOut without refresh token, got %s", state)
		}
		if refresher.callCount() != 0 {
			t.Errorf("expected refresher never called, got %d", refresher.callCount())
		}
	})

	t.Run("Stale Refresh Result Is Discarded", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, nearExpiryCreds())

		newerExpiry := now.Add(2 * time.Hour).UnixMilli()
		refresher := &fakeRefresher{fn: func(string) (*auth.TokenSet, error) {
			// a concurrent consumer lands a newer token while this refresh is in flight
			Save(store, Credentials{
				AccessToken:  "winner_access",
				RefreshToken: "current_refresh",
				ExpiresAt:    newerExpiry,
			})
			return &auth.TokenSet{AccessToken: "loser_access", ExpiresIn: 3600}, nil
		}}

		m := managerUnderTest(store, refresher, okValidator("u"), now)
		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid, got %s", state)
		}

		creds, _ := Load(store)
		if creds.AccessToken != "winner_access" {
			t.Errorf("expected newer token to win, got %q", creds.AccessToken)
		}
		if creds.ExpiresAt != newerExpiry {
			t.Errorf("expected newer expiry preserved, got %d", creds.ExpiresAt)
		}
	})

	t.Run("Repeated Checks Do Not Duplicate Refreshes", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, freshCreds())

		refresher := okRefresher("x", 3600)
		validator := okValidator("u")
		m := managerUnderTest(store, refresher, validator, now)

		m.Check(ctx)
		m.Check(ctx)

		if refresher.callCount() != 0 {
			t.Errorf("expected zero refreshes for healthy token, got %d", refresher.callCount())
		}
		if validator.callCount() != 2 {
			t.Errorf("expected one validation per check, got %d", validator.callCount())
		}
	})

	t.Run("Nil Refresher Degrades To Validation", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, freshCreds())

		m := managerUnderTest(store, nil, okValidator("u"), now)
		if state := m.Check(ctx); state != StateValid {
			t.Errorf("expected Valid, got %s", state)
		}
	})
}

func TestManagerSeedsCachedProfile(t *testing.T) {
	store := sqliteStore(t)
	if err := store.SaveProfile(&models.UserProfile{ID: "user1", DisplayName: "User One"}); err != nil {
		t.Fatalf("save profile failed: %v", err)
	}

	m := managerUnderTest(store, nil, okValidator("user1"), time.Now())

	snap := m.Snapshot()
	if snap.Profile == nil || snap.Profile.DisplayName != "User One" {
		t.Errorf("expected cached profile in initial snapshot, got %+v", snap.Profile)
	}
	if snap.IsLoggedIn {
		t.Error("cached profile must not imply a valid session before the first check")
	}
	if snap.State != StateUnknown {
		t.Errorf("expected Unknown before the first check, got %s", snap.State)
	}
}

func TestManagerLogout(t *testing.T) {
	store := NewMemoryStore()
	Save(store, Credentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: 5})

	m := managerUnderTest(store, okRefresher("x", 3600), okValidator("u"), time.Now())
	if err := m.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if m.State() != StateLoggedOut {
		t.Errorf("expected LoggedOut, got %s", m.State())
	}
	creds, _ := Load(store)
	if creds.AccessToken != "" {
		t.Error("expected credentials cleared")
	}
}

func TestManagerRun(t *testing.T) {
	t.Run("Store Change Triggers Re-Check", func(t *testing.T) {
		store := NewMemoryStore()
		validated := make(chan struct{}, 8)
		validator := &fakeValidator{fn: func(string) (*models.UserProfile, error) {
			select {
			case validated <- struct{}{}:
			default:
			}
			return &models.UserProfile{ID: "u"}, nil
		}}

		m := NewManager(store, okRefresher("x", 3600), validator, Options{
			Margin:   time.Minute,
			Interval: time.Hour,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			m.Run(ctx)
			close(done)
		}()

		// another consumer signs in; the loop must converge on Valid
		Save(store, Credentials{
			AccessToken:  "fresh_access",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
		})

		select {
		case <-validated:
		case <-time.After(2 * time.Second):
			t.Fatal("expected the lifecycle loop to react to the store change")
		}

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected the lifecycle loop to stop on cancellation")
		}
	})
}

func TestNextDelay(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("Uses Expiry Minus Margin", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, Credentials{
			AccessToken:  "a",
			RefreshToken: "r",
			ExpiresAt:    now.Add(time.Hour).UnixMilli(),
		})

		m := managerUnderTest(store, nil, nil, now)
		if got := m.nextDelay(); got != 55*time.Minute {
			t.Errorf("expected 55m delay, got %s", got)
		}
	})

	t.Run("Falls Back To Interval Without Expiry", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, Credentials{AccessToken: "a", RefreshToken: "r"})

		m := managerUnderTest(store, nil, nil, now)
		if got := m.nextDelay(); got != time.Minute {
			t.Errorf("expected interval fallback, got %s", got)
		}
	})

	t.Run("Past Due Clamps To One Second", func(t *testing.T) {
		store := NewMemoryStore()
		Save(store, Credentials{
			AccessToken:  "a",
			RefreshToken: "r",
			ExpiresAt:    now.Add(time.Minute).UnixMilli(),
		})

		m := managerUnderTest(store, nil, nil, now)
		if got := m.nextDelay(); got != time.Second {
			t.Errorf("expected 1s clamp, got %s", got)
		}
	})
}
