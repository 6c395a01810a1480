// Package auth implements the trusted side of the authorization code flow:
// building the authorization URL, exchanging codes and refresh tokens at the
// Spotify accounts service, and tracking issued CSRF state nonces.
//
// The client secret never leaves this package's [Exchanger]; it is sent only
// to the upstream token endpoint as HTTP Basic credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes is the ordered scope set requested during authorization. The order
// is preserved in the space-joined scope parameter.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-top-read",
	"user-read-recently-played",
	"user-library-read",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-follow-read",
}

// TokenSet is the result of a code exchange or refresh.
//
// RefreshToken is empty when the upstream did not reissue one; the caller
// keeps whatever refresh token it already holds in that case.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExpiresAt converts the relative lifetime to an absolute epoch-millisecond
// timestamp from the given reference time.
func (t *TokenSet) ExpiresAt(now time.Time) int64 {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second).UnixMilli()
}

// UpstreamAuthError carries the error code and optional human-readable
// description the authorization server returned for a rejected exchange.
type UpstreamAuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *UpstreamAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization server rejected request: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization server rejected request: %s", e.Code)
}

func (e *UpstreamAuthError) Unwrap() error { return shared.ErrAuthFailed }

// Exchanger holds the OAuth client credentials and performs both grant types
// against the token endpoint.
type Exchanger struct {
	config *oauth2.Config
}

// NewExchanger builds an Exchanger from the Spotify credentials. Missing
// client id or secret is a configuration error surfaced immediately, never
// forwarded upstream.
func NewExchanger(spotify shared.SpotifyConfig) (*Exchanger, error) {
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if spotify.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrInvalidConfig)
	}

	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     spotify.ClientID,
			ClientSecret: spotify.ClientSecret,
			RedirectURL:  spotify.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
				// Spotify requires the client credentials as HTTP Basic auth
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}, nil
}

// AuthCodeURL composes the authorization URL for the given state nonce.
// show_dialog forces account re-selection on every login.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// RedirectURI returns the registered redirect URI.
func (e *Exchanger) RedirectURI() string { return e.config.RedirectURL }

// ExchangeCode swaps an authorization code for a token set
// (grant_type=authorization_code, Basic-authenticated form POST).
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return nil, classify(err)
	}
	return newTokenSet(tok, ""), nil
}

// Refresh swaps a refresh token for a fresh access token
// (grant_type=refresh_token). The returned set carries a refresh token only
// when the upstream rotated it.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classify(err)
	}
	return newTokenSet(tok, refreshToken), nil
}

// newTokenSet converts an oauth2 token, leaving RefreshToken empty when it
// matches the token sent with the request (no rotation).
func newTokenSet(tok *oauth2.Token, previousRefresh string) *TokenSet {
	set := &TokenSet{AccessToken: tok.AccessToken}

	if tok.RefreshToken != "" && tok.RefreshToken != previousRefresh {
		set.RefreshToken = tok.RefreshToken
	}

	if tok.Expiry.IsZero() {
		set.ExpiresIn = 3600
	} else {
		set.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}

	return set
}

// classify maps transport failures to the shared sentinels and upstream
// rejections to [UpstreamAuthError].
func classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		code := re.ErrorCode
		if code == "" {
			code = "invalid_response"
		}
		return &UpstreamAuthError{Code: code, Description: re.ErrorDescription, Status: status}
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}
