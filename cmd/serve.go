package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the local dashboard API: the auth flow endpoints, the stats
// endpoints, and the background session lifecycle loop.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	states := auth.NewStateRegistry(auth.DefaultStateTTL)

	router := server.NewBasicRouter()
	router.Use(
		server.RequestLogger(r.logger),
		server.RateLimit(cmd.Float64("rate-limit"), 20),
	)
	// a typed nil must not leak into the interface field
	var gateway server.Gateway
	if r.exchanger != nil {
		gateway = r.exchanger
	}
	router.Handler(server.NewAuthHandler(r.config, gateway, states, r.store, r.logger))
	router.Handler(server.NewStatsHandler(r.spotify, r.manager, r.logger))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go r.manager.Run(runCtx)

	srv := server.NewServer(addr, router)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("dashboard API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-signalCh:
		r.logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// give the lifecycle loop a beat to observe cancellation
	time.Sleep(50 * time.Millisecond)
	return nil
}
