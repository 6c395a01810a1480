package main

import (
	"context"
	"os"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	var exchanger *auth.Exchanger
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if e, err := auth.NewExchanger(config.Credentials.Spotify); err == nil {
			exchanger = e
		} else {
			logger.Warn("auth gateway unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:    config,
		Exchanger: exchanger,
		Logger:    logger,
	})
	defer runner.close()

	app := &cli.Command{
		Name:     "chartify",
		Usage:    "Spotify listening statistics dashboard",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
