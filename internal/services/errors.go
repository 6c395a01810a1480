package services

import (
	"fmt"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/shared"
)

// TokenExpiredError is returned when the resource API rejects the bearer
// token with a 401. The client never retries on its own; recovery is the
// caller's responsibility (refresh, then reissue the request).
type TokenExpiredError struct{}

func (e *TokenExpiredError) Error() string { return "spotify: access token expired or revoked" }
func (e *TokenExpiredError) Unwrap() error { return shared.ErrTokenExpired }

// RateLimitedError is returned on a 429 response. RetryAfter carries the
// upstream's Retry-After value; callers should back off by at least that
// long. No automatic retry is performed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("spotify: rate limited, retry after %s", e.RetryAfter)
}
func (e *RateLimitedError) Unwrap() error { return shared.ErrRateLimited }

// UpstreamError is returned for any other non-2xx response, and for 2xx
// responses whose body does not match the expected shape (fail closed rather
// than propagating undefined fields into projection logic).
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify: upstream error (status %d): %s", e.Status, e.Message)
}
func (e *UpstreamError) Unwrap() error { return shared.ErrUpstream }
