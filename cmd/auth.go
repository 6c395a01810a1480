package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/server"
	"github.com/ChristianVeneko/chartifydata/internal/session"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization code flow for the CLI.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// persists the exchanged tokens in the session store.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.ValidateAuth(); err != nil {
		return fmt.Errorf("set credentials in config.toml or the environment: %w", err)
	}
	if r.exchanger == nil {
		return fmt.Errorf("%w: auth gateway not initialized", shared.ErrMissingCredentials)
	}
	if err := r.ensure(ctx); err != nil {
		return err
	}

	set, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	creds := session.Credentials{
		AccessToken:  set.AccessToken,
		RefreshToken: set.RefreshToken,
		ExpiresAt:    set.ExpiresAt(time.Now()),
	}
	if err := session.Save(r.store, creds); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens stored in %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: chartify stats artists\n")

	return nil
}

// AuthStatus runs one session check and reports the resulting state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	state := r.manager.Check(ctx)
	snap := r.manager.Snapshot()

	r.writePlain("Session state: %s\n", state)
	if snap.Profile != nil {
		r.writePlain("Signed in as:  %s (%s)\n", snap.Profile.DisplayName, snap.Profile.ID)
		if snap.Profile.Product != "" {
			r.writePlain("Plan:          %s\n", snap.Profile.Product)
		}
	}

	if creds, err := session.Load(r.store); err == nil && creds.ExpiresAt > 0 {
		expiry := time.UnixMilli(creds.ExpiresAt)
		r.writePlain("Token expires: %s (%s)\n", expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))
	}

	return nil
}

// AuthLogout clears all persisted credential fields.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	if err := r.manager.Logout(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	r.writePlain("✓ Credentials cleared\n")
	return nil
}

// doOAuth executes the authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context) (*auth.TokenSet, error) {
	state := shared.GenerateState(shared.MinStateLength)
	authURL := r.exchanger.AuthCodeURL(state)

	relay := server.NewCallbackRelay(r.exchanger, state)
	router := server.NewBasicRouter()
	router.Handler(relay)

	httpServer := &http.Server{
		Addr:    r.config.Server.Addr(),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting callback server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-relay.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Tokens == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Tokens, nil
}
