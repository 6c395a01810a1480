package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/shared"
	tu "github.com/ChristianVeneko/chartifydata/internal/testing"
)

// testService points a SpotifyService at a stub resource API.
func testService(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	svc := NewSpotifyService(StaticToken("test_token"), upstream.Client())
	svc.baseURL = upstream.URL
	return svc
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Attaches Bearer Token", func(t *testing.T) {
		var gotAuth string
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"id":"user1","display_name":"User One","followers":{"total":3}}`))
		})

		profile, err := svc.Validate(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer test_token" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
		if profile.ID != "user1" || profile.DisplayName != "User One" {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if profile.Followers != 3 {
			t.Errorf("expected 3 followers, got %d", profile.Followers)
		}
	})

	t.Run("Explicit Token Overrides Source", func(t *testing.T) {
		var gotAuth string
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"id":"user1"}`))
		})

		if _, err := svc.Validate(ctx, "other_token"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer other_token" {
			t.Errorf("expected explicit token in header, got %q", gotAuth)
		}
	})

	t.Run("Missing Token", func(t *testing.T) {
		svc := NewSpotifyService(StaticToken(""), nil)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Transport Failure Wraps ErrAPIRequest", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}
		svc := NewSpotifyService(StaticToken("tok"), client)

		_, err := svc.UserProfile(ctx)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Expired Token Is Not Retried", func(t *testing.T) {
		seq := &tu.SequenceRoundTripper{Responses: []*http.Response{
			tu.JSONResponse(http.StatusUnauthorized, `{"error":{"status":401,"message":"The access token expired"}}`),
			tu.JSONResponse(http.StatusOK, `{"items":[]}`),
		}}
		svc := NewSpotifyService(StaticToken("tok"), &http.Client{Transport: seq})

		_, err := svc.TopArtists(ctx, MediumTerm, 20)

		var expired *TokenExpiredError
		if !errors.As(err, &expired) {
			t.Fatalf("expected TokenExpiredError, got %v", err)
		}
		if len(seq.Requests) != 1 {
			t.Errorf("expected a single request with no automatic retry, got %d", len(seq.Requests))
		}
	})

	t.Run("Unreadable Body Fails Closed", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}}
		svc := NewSpotifyService(StaticToken("tok"), &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)})

		_, err := svc.UserProfile(ctx)

		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Errorf("expected UpstreamError for unreadable body, got %v", err)
		}
	})

	t.Run("Classifies 401", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		})

		_, err := svc.TopArtists(ctx, MediumTerm, 20)
		if err == nil {
			t.Fatal("expected error")
		}

		var expired *TokenExpiredError
		if !errors.As(err, &expired) {
			t.Errorf("expected TokenExpiredError, got %T", err)
		}
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Error("expected error to unwrap to ErrTokenExpired")
		}
	})

	t.Run("Classifies 429 With Retry-After", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := svc.TopTracks(ctx, ShortTerm, 20)

		var limited *RateLimitedError
		if !errors.As(err, &limited) {
			t.Fatalf("expected RateLimitedError, got %v", err)
		}
		if limited.RetryAfter != 7*time.Second {
			t.Errorf("expected 7s retry-after, got %s", limited.RetryAfter)
		}
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Error("expected error to unwrap to ErrRateLimited")
		}
	})

	t.Run("Missing Retry-After Defaults To One Second", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := svc.RecentlyPlayed(ctx, 10)

		var limited *RateLimitedError
		if !errors.As(err, &limited) {
			t.Fatalf("expected RateLimitedError, got %v", err)
		}
		if limited.RetryAfter != time.Second {
			t.Errorf("expected 1s default, got %s", limited.RetryAfter)
		}
	})

	t.Run("204 Is Empty Success", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		items, err := svc.RecentlyPlayed(ctx, 10)
		if err != nil {
			t.Fatalf("expected no error for 204, got %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected empty result, got %d items", len(items))
		}
	})

	t.Run("Other Non-2xx Is Upstream Error", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"status":500,"message":"server error"}}`))
		})

		_, err := svc.UserPlaylists(ctx, 20, 0)

		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Status != 500 || upstream.Message != "server error" {
			t.Errorf("unexpected upstream error: %+v", upstream)
		}
		if !errors.Is(err, shared.ErrUpstream) {
			t.Error("expected error to unwrap to ErrUpstream")
		}
	})

	t.Run("Malformed 2xx Body Fails Closed", func(t *testing.T) {
		svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items": not json`))
		})

		_, err := svc.TopArtists(ctx, LongTerm, 20)

		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError for undecodable body, got %v", err)
		}
	})

	t.Run("Endpoints", func(t *testing.T) {
		t.Run("TopArtists Query", func(t *testing.T) {
			var gotPath string
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.String()
				w.Write([]byte(`{"items":[{"id":"a1","name":"Artist"}]}`))
			})

			items, err := svc.TopArtists(ctx, ShortTerm, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotPath != "/me/top/artists?time_range=short_term&limit=10" {
				t.Errorf("unexpected path %q", gotPath)
			}
			if len(items) != 1 || items[0].Name != "Artist" {
				t.Errorf("unexpected items: %+v", items)
			}
		})

		t.Run("Limit Clamped To 50", func(t *testing.T) {
			var gotPath string
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.String()
				w.Write([]byte(`{"items":[]}`))
			})

			if _, err := svc.TopTracks(ctx, MediumTerm, 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotPath != "/me/top/tracks?time_range=medium_term&limit=50" {
				t.Errorf("expected clamped limit, got %q", gotPath)
			}
		})

		t.Run("Zero Limit Falls Back", func(t *testing.T) {
			var gotPath string
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.String()
				w.Write([]byte(`{"items":[]}`))
			})

			if _, err := svc.RecentlyPlayed(ctx, 0); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotPath != "/me/player/recently-played?limit=20" {
				t.Errorf("expected fallback limit, got %q", gotPath)
			}
		})

		t.Run("FollowedArtists Cursor", func(t *testing.T) {
			var gotPath string
			svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.String()
				w.Write([]byte(`{"artists":{"items":[{"id":"a2","name":"Next"}],"cursors":{"after":"a2"}}}`))
			})

			items, after, err := svc.FollowedArtists(ctx, 20, "a1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if gotPath != "/me/following?type=artist&limit=20&after=a1" {
				t.Errorf("unexpected path %q", gotPath)
			}
			if after != "a2" {
				t.Errorf("expected cursor a2, got %q", after)
			}
			if len(items) != 1 {
				t.Errorf("expected one artist, got %d", len(items))
			}
		})

		t.Run("PlaylistTracks Requires ID", func(t *testing.T) {
			svc := NewSpotifyService(StaticToken("tok"), nil)
			if _, err := svc.PlaylistTracks(ctx, "", 10, 0); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}

func TestParseTimeRange(t *testing.T) {
	for _, valid := range []string{"short_term", "medium_term", "long_term"} {
		if _, err := ParseTimeRange(valid); err != nil {
			t.Errorf("expected %q to parse, got %v", valid, err)
		}
	}

	if _, err := ParseTimeRange("last_week"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
