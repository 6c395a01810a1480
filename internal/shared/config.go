package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file,
// with environment variables taking precedence (see [Config.ApplyEnv]).
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	App         AppConfig         `toml:"app"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// AppConfig contains settings for the browser-facing application surface.
type AppConfig struct {
	// BaseURL is the public URL the callback handler redirects back to.
	BaseURL string `toml:"base_url"`
	// SafetyMarginSeconds is subtracted from a token's lifetime to trigger
	// proactive refresh before true expiry.
	SafetyMarginSeconds int `toml:"safety_margin_seconds"`
	// CheckIntervalSeconds is the fallback interval between session checks
	// when no expiry timestamp is known.
	CheckIntervalSeconds int `toml:"check_interval_seconds"`
}

// SafetyMargin returns the proactive-refresh margin as a duration, zero when unset.
func (a AppConfig) SafetyMargin() time.Duration {
	return time.Duration(a.SafetyMarginSeconds) * time.Second
}

// CheckInterval returns the fallback check interval as a duration, zero when unset.
func (a AppConfig) CheckInterval() time.Duration {
	return time.Duration(a.CheckIntervalSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to a TOML file.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration. A .env file
// in the working directory is loaded first when present (ignored otherwise).
//
// Recognized variables: SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET,
// SPOTIFY_REDIRECT_URI, PUBLIC_BASE_URL, DATABASE_PATH, SERVER_HOST,
// SERVER_PORT, TOKEN_SAFETY_MARGIN.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		c.App.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TOKEN_SAFETY_MARGIN"); v != "" {
		if margin, err := strconv.Atoi(v); err == nil {
			c.App.SafetyMarginSeconds = margin
		}
	}
}

// ValidateAuth checks that every field the redirect initiator and callback
// handler require is present. A missing field is a configuration error, not a
// user-facing auth failure.
func (c *Config) ValidateAuth() error {
	spotify := c.Credentials.Spotify
	switch {
	case spotify.ClientID == "":
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	case spotify.ClientSecret == "":
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	case spotify.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri", ErrInvalidConfig)
	case c.App.BaseURL == "":
		return fmt.Errorf("%w: app base_url", ErrInvalidConfig)
	}
	return nil
}

// Map returns the Spotify credentials as a string map for service constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}
