package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ChristianVeneko/chartifydata/internal/services"
	"github.com/ChristianVeneko/chartifydata/internal/session"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/ChristianVeneko/chartifydata/internal/stats"
	"github.com/charmbracelet/log"
)

// StatsHandler serves the derived-statistics endpoints backed by the
// authenticated API client. Each endpoint reads raw items, runs the pure
// projection step, and returns JSON.
type StatsHandler struct {
	spotify *services.SpotifyService
	manager *session.Manager
	logger  *log.Logger
}

// NewStatsHandler creates the stats endpoint group.
func NewStatsHandler(spotify *services.SpotifyService, manager *session.Manager, logger *log.Logger) *StatsHandler {
	return &StatsHandler{spotify: spotify, manager: manager, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatsHandler) Routes() []string {
	return []string{
		"/api/session",
		"/api/stats/top-artists",
		"/api/stats/top-tracks",
		"/api/stats/top-albums",
		"/api/stats/recently-played",
		"/api/stats/playlists",
		"/api/stats/saved-tracks",
		"/api/stats/followed",
	}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET requests are accepted.")
		return
	}

	switch r.URL.Path {
	case "/api/session":
		writeJSON(w, http.StatusOK, h.manager.Snapshot())
	case "/api/stats/top-artists":
		h.topArtists(w, r)
	case "/api/stats/top-tracks":
		h.topTracks(w, r, false)
	case "/api/stats/top-albums":
		h.topTracks(w, r, true)
	case "/api/stats/recently-played":
		h.recentlyPlayed(w, r)
	case "/api/stats/playlists":
		h.playlists(w, r)
	case "/api/stats/saved-tracks":
		h.savedTracks(w, r)
	case "/api/stats/followed":
		h.followed(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *StatsHandler) topArtists(w http.ResponseWriter, r *http.Request) {
	timeRange, limit, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.spotify.TopArtists(r.Context(), timeRange, limit)
	if err != nil {
		h.apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.TopArtists(items))
}

// topTracks serves both the track and the aggregated album view; the album
// projection is derived from the same top-tracks listing.
func (h *StatsHandler) topTracks(w http.ResponseWriter, r *http.Request, albums bool) {
	timeRange, limit, err := rangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.spotify.TopTracks(r.Context(), timeRange, limit)
	if err != nil {
		h.apiError(w, err)
		return
	}

	if albums {
		writeJSON(w, http.StatusOK, stats.TopAlbums(items))
		return
	}
	writeJSON(w, http.StatusOK, stats.TopTracks(items))
}

func (h *StatsHandler) recentlyPlayed(w http.ResponseWriter, r *http.Request) {
	items, err := h.spotify.RecentlyPlayed(r.Context(), intParam(r, "limit", 20))
	if err != nil {
		h.apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.RecentlyPlayed(items))
}

func (h *StatsHandler) playlists(w http.ResponseWriter, r *http.Request) {
	page, err := h.spotify.UserPlaylists(r.Context(), intParam(r, "limit", 20), intParam(r, "offset", 0))
	if err != nil {
		h.apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Playlists(page.Items))
}

func (h *StatsHandler) savedTracks(w http.ResponseWriter, r *http.Request) {
	offset := intParam(r, "offset", 0)
	page, err := h.spotify.SavedTracks(r.Context(), intParam(r, "limit", 20), offset)
	if err != nil {
		h.apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.SavedTracks(page.Items, offset))
}

func (h *StatsHandler) followed(w http.ResponseWriter, r *http.Request) {
	items, next, err := h.spotify.FollowedArtists(r.Context(), intParam(r, "limit", 20), r.URL.Query().Get("after"))
	if err != nil {
		h.apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": stats.TopArtists(items),
		"after": next,
	})
}

// apiError maps the API client's classification onto the local HTTP surface.
// TokenExpired is not recovered here: the lifecycle manager refreshes on its
// own schedule and the page retries.
func (h *StatsHandler) apiError(w http.ResponseWriter, err error) {
	var rateLimited *services.RateLimitedError
	var upstream *services.UpstreamError

	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "token_expired")
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.As(err, &upstream):
		h.logger.Error("upstream API error", "status", upstream.Status, "message", upstream.Message)
		writeError(w, http.StatusBadGateway, upstream.Message)
	default:
		h.logger.Error("stats request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func rangeParams(r *http.Request) (services.TimeRange, int, error) {
	raw := r.URL.Query().Get("time_range")
	if raw == "" {
		raw = string(services.MediumTerm)
	}
	timeRange, err := services.ParseTimeRange(raw)
	if err != nil {
		return "", 0, err
	}
	return timeRange, intParam(r, "limit", 20), nil
}

func intParam(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}
