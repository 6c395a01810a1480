package auth

import (
	"testing"
	"time"
)

func TestStateRegistry(t *testing.T) {
	t.Run("Issue And Consume", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)

		state := r.Issue()
		if len(state) < 16 {
			t.Errorf("expected nonce of at least 16 chars, got %d", len(state))
		}
		for _, c := range state {
			if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
				t.Errorf("expected alphanumeric nonce, found %q", c)
			}
		}

		if !r.Consume(state) {
			t.Error("expected issued state to be accepted")
		}
	})

	t.Run("Single Use", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)
		state := r.Issue()

		r.Consume(state)
		if r.Consume(state) {
			t.Error("expected replayed state to be rejected")
		}
	})

	t.Run("Unknown State", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)
		if r.Consume("never_issued_state") {
			t.Error("expected unknown state to be rejected")
		}
	})

	t.Run("Empty State", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)
		if r.Consume("") {
			t.Error("expected empty state to be rejected")
		}
	})

	t.Run("Expired State", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)

		base := time.Now()
		r.now = func() time.Time { return base }
		state := r.Issue()

		r.now = func() time.Time { return base.Add(2 * time.Minute) }
		if r.Consume(state) {
			t.Error("expected expired state to be rejected")
		}
	})

	t.Run("Sweep Drops Expired Entries", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)

		base := time.Now()
		r.now = func() time.Time { return base }
		r.Issue()
		r.Issue()

		r.now = func() time.Time { return base.Add(2 * time.Minute) }
		r.Issue()

		if got := r.Pending(); got != 1 {
			t.Errorf("expected 1 pending nonce after sweep, got %d", got)
		}
	})

	t.Run("Distinct Nonces", func(t *testing.T) {
		r := NewStateRegistry(time.Minute)
		if r.Issue() == r.Issue() {
			t.Error("expected each issued nonce to differ")
		}
	})
}
