package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tu "github.com/ChristianVeneko/chartifydata/internal/testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.App.BaseURL != "http://localhost:3000" {
		t.Errorf("unexpected base url: %q", config.App.BaseURL)
	}
	if config.App.SafetyMarginSeconds != 300 {
		t.Errorf("expected 300s safety margin, got %d", config.App.SafetyMarginSeconds)
	}
	if config.App.CheckIntervalSeconds != 60 {
		t.Errorf("expected 60s check interval, got %d", config.App.CheckIntervalSeconds)
	}
	if config.Credentials.Spotify.RedirectURI != "http://localhost:3000/api/callback" {
		t.Errorf("unexpected redirect uri: %q", config.Credentials.Spotify.RedirectURI)
	}
	if config.Database.Path != "chartify.db" {
		t.Errorf("unexpected database path: %q", config.Database.Path)
	}
	if config.Server.Addr() != "localhost:3000" {
		t.Errorf("unexpected listen address: %q", config.Server.Addr())
	}
}

func TestDurationHelpers(t *testing.T) {
	app := AppConfig{SafetyMarginSeconds: 300, CheckIntervalSeconds: 60}

	if app.SafetyMargin() != 5*time.Minute {
		t.Errorf("expected 5m margin, got %s", app.SafetyMargin())
	}
	if app.CheckInterval() != time.Minute {
		t.Errorf("expected 1m interval, got %s", app.CheckInterval())
	}
	if (AppConfig{}).SafetyMargin() != 0 {
		t.Error("expected zero margin when unset")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env_client")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env_secret")
	t.Setenv("PUBLIC_BASE_URL", "https://stats.example.com")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("TOKEN_SAFETY_MARGIN", "120")

	config := DefaultConfig()
	config.ApplyEnv()

	if config.Credentials.Spotify.ClientID != "env_client" {
		t.Errorf("client id not overridden: %q", config.Credentials.Spotify.ClientID)
	}
	if config.App.BaseURL != "https://stats.example.com" {
		t.Errorf("base url not overridden: %q", config.App.BaseURL)
	}
	if config.Server.Port != 8080 {
		t.Errorf("port not overridden: %d", config.Server.Port)
	}
	if config.App.SafetyMarginSeconds != 120 {
		t.Errorf("safety margin not overridden: %d", config.App.SafetyMarginSeconds)
	}

	t.Run("Garbage Port Ignored", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "not-a-port")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Server.Port != 3000 {
			t.Errorf("expected default port retained, got %d", config.Server.Port)
		}
	})
}

func TestValidateAuth(t *testing.T) {
	valid := func() *Config {
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"
		return config
	}

	t.Run("Complete Configuration Passes", func(t *testing.T) {
		if err := valid().ValidateAuth(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		config := valid()
		config.Credentials.Spotify.ClientID = ""
		if err := config.ValidateAuth(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Client Secret", func(t *testing.T) {
		config := valid()
		config.Credentials.Spotify.ClientSecret = ""
		if err := config.ValidateAuth(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Missing Redirect URI", func(t *testing.T) {
		config := valid()
		config.Credentials.Spotify.RedirectURI = ""
		if err := config.ValidateAuth(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
		t.Error("expected embedded template content in created file")
	}
	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config file already exists")
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if config.App.SafetyMarginSeconds != 300 {
		t.Errorf("round trip lost defaults: %d", config.App.SafetyMarginSeconds)
	}

	config.Server.Port = 9999
	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Server.Port != 9999 {
		t.Errorf("expected saved port 9999, got %d", reloaded.Server.Port)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	_ = os.Remove(path)
}

func TestSpotifyConfigMap(t *testing.T) {
	m := SpotifyConfig{ClientID: "a", ClientSecret: "b", RedirectURI: "c"}.Map()
	if m["client_id"] != "a" || m["client_secret"] != "b" || m["redirect_uri"] != "c" {
		t.Errorf("unexpected map: %v", m)
	}
}
