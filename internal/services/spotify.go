// Spotify resource API client.
//
// Every upstream call goes through doRequest, which attaches the bearer token
// and classifies failures into the typed errors in errors.go.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/models"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// TimeRange selects the aggregation window for top-item queries.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// ParseTimeRange validates a user-supplied time range string.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case ShortTerm, MediumTerm, LongTerm:
		return TimeRange(s), nil
	}
	return "", fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, s)
}

// TokenSource supplies the current access token for each request. The session
// store is the usual implementation; tests substitute a static token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the [TokenSource] interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}

// SpotifyService wraps all calls to the Spotify resource API.
//
// It does not refresh tokens: a 401 surfaces as [TokenExpiredError] and the
// session lifecycle manager decides what to do next.
type SpotifyService struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewSpotifyService creates a resource API client reading tokens from the
// given source. A nil client falls back to [http.DefaultClient].
func NewSpotifyService(tokens TokenSource, client *http.Client) *SpotifyService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		tokens:     tokens,
		httpClient: client,
	}
}

func (s *SpotifyService) Name() string { return "Spotify" }

// doRequest performs an authenticated GET against the resource API and
// decodes the JSON response into result.
//
// Classification contract: 401 → TokenExpiredError, 429 → RateLimitedError
// with the Retry-After value, other non-2xx → UpstreamError carrying the
// upstream message, 204 → success without touching result. A 2xx body that
// fails to decode is an UpstreamError as well.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, token string, result any) error {
	if token == "" {
		var err error
		if token, err = s.tokens.AccessToken(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		}
		if token == "" {
			return shared.ErrNotAuthenticated
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &TokenExpiredError{}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var body apiError
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response shape: %v", err)}
		}
	}

	return nil
}

// retryAfter reads the Retry-After header in seconds, defaulting to one
// second when absent or malformed.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*models.UserProfile, error) {
	return s.Validate(ctx, "")
}

// Validate checks an access token by calling the profile endpoint. An empty
// token falls back to the service's token source. On success the decoded
// profile is returned for caching.
func (s *SpotifyService) Validate(ctx context.Context, token string) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", token, &user); err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

// TopArtists retrieves the user's most listened artists for the given time range.
func (s *SpotifyService) TopArtists(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyArtist, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", timeRange, limit)

	var page struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopTracks retrieves the user's most listened tracks for the given time range.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", timeRange, limit)

	var page struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// RecentlyPlayed retrieves the user's play history, newest first.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]SpotifyPlayHistory, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)

	var page struct {
		Items []SpotifyPlayHistory `json:"items"`
	}
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var page SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistTracks retrieves the tracks of a playlist with pagination.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) ([]SpotifyPlaylistTrack, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	limit = clampLimit(limit, 100, 100)
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

	var page struct {
		Items []SpotifyPlaylistTrack `json:"items"`
	}
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var page SpotifyPaginatedTracks
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FollowedArtists retrieves artists the user follows. The returned cursor is
// the "after" value for the next page, empty when exhausted.
func (s *SpotifyService) FollowedArtists(ctx context.Context, limit int, after string) ([]SpotifyArtist, string, error) {
	limit = clampLimit(limit, 20, 50)
	endpoint := fmt.Sprintf("/me/following?type=artist&limit=%d", limit)
	if after != "" {
		endpoint += "&after=" + url.QueryEscape(after)
	}

	var page followedArtistsPage
	if err := s.doRequest(ctx, endpoint, "", &page); err != nil {
		return nil, "", err
	}
	return page.Artists.Items, page.Artists.Cursors.After, nil
}

// toProfile converts the raw user payload to the cached projection.
func toProfile(user SpotifyUser) *models.UserProfile {
	profile := &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Followers:   user.Followers.Total,
	}
	if len(user.Images) > 0 {
		url := user.Images[0].URL
		profile.Image = &url
	}
	return profile
}
