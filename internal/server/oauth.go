package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/session"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/charmbracelet/log"
)

// appAuthRoute is the application route the callback redirects to, on success
// with the token parameters and on failure with the error parameters. The
// browser page at this route reads both.
const appAuthRoute = "/auth"

// Gateway is the slice of the auth exchanger the HTTP surface needs.
// Implemented by [auth.Exchanger].
type Gateway interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*auth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenSet, error)
}

// AuthHandler serves the authorization flow endpoints: login redirect,
// callback, token exchange, refresh, logout, and a redacted debug view.
//
// Failure policy: the redirect endpoints never surface raw errors to the
// browser; every failure path terminates in a redirect to the application
// error route with a machine-readable code. The JSON endpoints respond with
// an error object and an appropriate status instead.
type AuthHandler struct {
	config    *shared.Config
	exchanger Gateway
	states    *auth.StateRegistry
	store     session.Store
	logger    *log.Logger
}

// NewAuthHandler creates the auth endpoint group. exchanger may be nil when
// credentials are absent from configuration; every flow then terminates in a
// configuration error instead of reaching the upstream.
func NewAuthHandler(config *shared.Config, exchanger Gateway, states *auth.StateRegistry, store session.Store, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		config:    config,
		exchanger: exchanger,
		states:    states,
		store:     store,
		logger:    logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/api/login", "/api/callback", "/api/token", "/api/refresh", "/api/logout", "/api/debug"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/login":
		h.handleLogin(w, r)
	case "/api/callback":
		h.handleCallback(w, r)
	case "/api/token":
		h.handleToken(w, r)
	case "/api/refresh":
		h.handleRefresh(w, r)
	case "/api/logout":
		h.handleLogout(w, r)
	case "/api/debug":
		h.handleDebug(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleLogin issues the authorization redirect with a fresh state nonce.
// Missing client configuration redirects to the application error route,
// never upstream.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.config.ValidateAuth(); err != nil || h.exchanger == nil {
		h.logger.Error("login blocked by configuration", "error", err)
		h.redirectError(w, r, "missing_credentials", "")
		return
	}

	state := h.states.Issue()
	authURL := h.exchanger.AuthCodeURL(state)

	h.logger.Info("redirecting to authorization endpoint", "client_id", redact(h.config.Credentials.Spotify.ClientID))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback receives the redirect back from the authorization server.
// Three terminal outcomes: upstream error, missing code, or an attempted
// exchange.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("authorization denied upstream", "error", errCode)
		h.redirectError(w, r, errCode, "")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("callback without authorization code")
		h.redirectError(w, r, "no_code", "")
		return
	}

	if !h.states.Consume(query.Get("state")) {
		h.logger.Warn("callback state mismatch")
		h.redirectError(w, r, "state_mismatch", "")
		return
	}

	if h.exchanger == nil {
		h.redirectError(w, r, "missing_credentials", "")
		return
	}

	set, err := h.exchanger.ExchangeCode(r.Context(), code)
	if err != nil {
		code, desc := upstreamCode(err)
		h.logger.Error("code exchange failed", "error", err)
		h.redirectError(w, r, code, desc)
		return
	}

	h.persist(set, "")

	params := url.Values{}
	params.Set("access_token", set.AccessToken)
	params.Set("refresh_token", set.RefreshToken)
	params.Set("expires_in", strconv.FormatInt(set.ExpiresIn, 10))
	http.Redirect(w, r, h.config.App.BaseURL+appAuthRoute+"?"+params.Encode(), http.StatusFound)
}

type tokenRequest struct {
	Code         string `json:"code"`
	RefreshToken string `json:"refresh_token"`
}

// handleToken exchanges an authorization code for tokens over JSON, the
// non-redirect twin of the callback for clients that received the code
// themselves.
func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST requests are accepted.")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	if h.exchanger == nil {
		writeError(w, http.StatusInternalServerError, "Spotify credentials are missing in server configuration")
		return
	}

	set, err := h.exchanger.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	h.persist(set, "")
	writeJSON(w, http.StatusOK, set)
}

// handleRefresh exchanges a refresh token for a new access token over JSON.
// The response includes a refresh_token field only when the upstream rotated
// it; callers retain their existing one otherwise.
func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST requests are accepted.")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	if h.exchanger == nil {
		writeError(w, http.StatusInternalServerError, "Spotify credentials are missing in server configuration")
		return
	}

	set, err := h.exchanger.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	h.persist(set, req.RefreshToken)
	writeJSON(w, http.StatusOK, set)
}

// handleLogout clears every persisted credential field.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := session.Clear(h.store); err != nil {
			h.logger.Warn("failed to clear session on logout", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session cleared. Browser-persisted tokens should be removed as well.",
	})
}

// handleDebug reports redacted configuration state for troubleshooting.
func (h *AuthHandler) handleDebug(w http.ResponseWriter, r *http.Request) {
	spotify := h.config.Credentials.Spotify
	writeJSON(w, http.StatusOK, map[string]any{
		"clientId":     redact(spotify.ClientID),
		"clientSecret": redact(spotify.ClientSecret),
		"redirectUri":  spotify.RedirectURI,
		"baseUrl":      h.config.App.BaseURL,
		"pendingStates": func() int {
			if h.states == nil {
				return 0
			}
			return h.states.Pending()
		}(),
	})
}

// persist stores an exchanged token set as the current credential pair.
// previousRefresh fills the gap when the upstream did not rotate the refresh
// token on a refresh grant.
func (h *AuthHandler) persist(set *auth.TokenSet, previousRefresh string) {
	if h.store == nil {
		return
	}

	refresh := set.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	if refresh == "" {
		stored, err := session.Load(h.store)
		if err == nil {
			refresh = stored.RefreshToken
		}
	}

	creds := session.Credentials{
		AccessToken:  set.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    set.ExpiresAt(time.Now()),
	}
	if err := session.Save(h.store, creds); err != nil {
		h.logger.Warn("failed to persist credentials", "error", err)
	}
}

// redirectError sends the browser to the application error route with the
// machine-readable code and optional description preserved.
func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code, description string) {
	params := url.Values{}
	params.Set("error", code)
	if description != "" {
		params.Set("error_description", description)
	}
	http.Redirect(w, r, h.config.App.BaseURL+appAuthRoute+"?"+params.Encode(), http.StatusFound)
}

// writeExchangeError maps a gateway failure onto the JSON error surface.
func (h *AuthHandler) writeExchangeError(w http.ResponseWriter, err error) {
	var upstream *auth.UpstreamAuthError
	if errors.As(err, &upstream) {
		status := upstream.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		msg := upstream.Description
		if msg == "" {
			msg = upstream.Code
		}
		writeError(w, status, msg)
		return
	}

	h.logger.Error("token endpoint unreachable", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// upstreamCode extracts the redirect error code and description for a failed
// exchange.
func upstreamCode(err error) (string, string) {
	var upstream *auth.UpstreamAuthError
	if errors.As(err, &upstream) {
		return upstream.Code, upstream.Description
	}
	return "authentication_failed", ""
}

func redact(value string) string {
	if value == "" {
		return "undefined"
	}
	if len(value) <= 5 {
		return value + "..."
	}
	return value[:5] + "..."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
