package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/services"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
)

func statsHandlerUnderTest() *StatsHandler {
	return NewStatsHandler(nil, nil, shared.NewLogger(io.Discard))
}

func TestStatsHandlerMethodFilter(t *testing.T) {
	h := statsHandlerUnderTest()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stats/top-artists", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestAPIError(t *testing.T) {
	h := statsHandlerUnderTest()

	// errorBody decodes the JSON error envelope.
	errorBody := func(t *testing.T, rec *httptest.ResponseRecorder) string {
		t.Helper()
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("error response does not decode: %v", err)
		}
		return body["error"]
	}

	t.Run("Expired Token Maps To 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.apiError(rec, &services.TokenExpiredError{})

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
		if errorBody(t, rec) != "token_expired" {
			t.Errorf("expected token_expired code, got %q", errorBody(t, rec))
		}
	})

	t.Run("Missing Session Maps To 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.apiError(rec, fmt.Errorf("no stored token: %w", shared.ErrNotAuthenticated))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("Rate Limit Maps To 429 With Retry-After", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.apiError(rec, &services.RateLimitedError{RetryAfter: 7 * time.Second})

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "7" {
			t.Errorf("expected Retry-After 7, got %q", rec.Header().Get("Retry-After"))
		}
		if errorBody(t, rec) != "rate_limited" {
			t.Errorf("expected rate_limited code, got %q", errorBody(t, rec))
		}
	})

	t.Run("Upstream Failure Maps To 502", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.apiError(rec, &services.UpstreamError{Status: 500, Message: "server error"})

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("Unclassified Failure Maps To 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.apiError(rec, errors.New("dial tcp: connection refused"))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestRangeParams(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/stats/top-artists", nil)

		timeRange, limit, err := rangeParams(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if timeRange != services.MediumTerm {
			t.Errorf("expected medium_term default, got %q", timeRange)
		}
		if limit != 20 {
			t.Errorf("expected default limit 20, got %d", limit)
		}
	})

	t.Run("Explicit Values", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/stats/top-artists?time_range=short_term&limit=5", nil)

		timeRange, limit, err := rangeParams(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if timeRange != services.ShortTerm || limit != 5 {
			t.Errorf("got %q/%d, want short_term/5", timeRange, limit)
		}
	})

	t.Run("Invalid Range Rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/stats/top-artists?time_range=forever", nil)

		if _, _, err := rangeParams(r); err == nil {
			t.Error("expected error for unknown time range")
		}
	})
}

func TestIntParam(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"Missing Uses Fallback", "", 20},
		{"Valid Value", "limit=35", 35},
		{"Garbage Uses Fallback", "limit=abc", 20},
		{"Negative Uses Fallback", "limit=-3", 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/stats/recently-played?"+tc.query, nil)
			if got := intParam(r, "limit", 20); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}
