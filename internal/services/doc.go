// Package services implements the authenticated client for the Spotify
// resource API.
//
// # Access tokens
//
// [SpotifyService] reads the current access token from a [TokenSource] on
// every call. It attaches the bearer header and nothing more: no refresh, no
// retry. The session lifecycle manager (internal/session) owns recovery.
//
// # Error classification
//
// Failures are classified at the HTTP boundary:
//   - 401 → [TokenExpiredError] (caller refreshes and reissues)
//   - 429 → [RateLimitedError] with the upstream Retry-After value
//   - other non-2xx → [UpstreamError] carrying the upstream message
//   - 204 → success with no body
//
// A 2xx body that does not decode is also an [UpstreamError]: the client
// fails closed instead of passing malformed payloads into projection logic.
//
// All typed errors unwrap to the sentinels in internal/shared so callers can
// branch with errors.Is.
//
// # Accessors
//
// Typed accessors cover top items, recently played, playlists, playlist
// tracks, saved tracks, followed artists, and the profile endpoint. They
// return raw Spotify shapes; projection into the dashboard models is a pure
// transformation step in internal/stats so it can be tested without network
// behavior.
package services
