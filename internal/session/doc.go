// Package session holds the persisted credential pair and the lifecycle
// manager that keeps it fresh.
//
// # Store
//
// [Store] is a small key-value interface over the three persisted fields
// (access token, refresh token, expiry). [SQLiteStore] backs the running
// service; [MemoryStore] backs tests and the CLI flow. Every write fans out a
// [Change] to subscribers, the in-process analog of a browser storage event:
// any consumer observing a credential change re-runs its session check so all
// of them converge on the same state.
//
// # Lifecycle manager
//
// [Manager] is an explicit state machine over {Unknown, Validating, Valid,
// Refreshing, LoggedOut}. One decision procedure ([Manager.Check]) is invoked
// on start, on a timer, and on store changes:
//
//   - token near expiry: refresh first, since validation would likely fail
//   - otherwise: validate, and refresh only when validation fails
//   - clear credentials only after both validation and refresh are exhausted
//
// The timer is single-shot, scheduled at expires_at minus the safety margin
// and rescheduled after every refresh; the fixed interval only applies when
// no expiry is known. Both margin and interval are configuration values.
//
// Concurrent refreshes (two consumers racing) are safe: the token endpoint is
// the serialization point, and a refresh result that is older than what the
// store already holds is discarded instead of written.
package session
