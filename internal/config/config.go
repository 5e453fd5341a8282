package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete gentle configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DevServer DevServerConfig `mapstructure:"dev_server"`
}

// APIConfig controls how the client talks to the task backend
type APIConfig struct {
	// BaseURL is the backend origin; paths are appended under /v1 (default: "http://localhost:8000")
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds bounds every request, including reading the body (default: 15)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig controls the identity provider client
type AuthConfig struct {
	// URL is the identity provider base URL. Empty means {api.base_url}/auth/v1.
	URL string `mapstructure:"url"`
	// AnonKey is sent as the apikey header on identity provider calls
	AnonKey string `mapstructure:"anon_key"`
	// RedirectURL is passed along with one-time-password sign-in requests
	RedirectURL string `mapstructure:"redirect_url"`
	// SessionFile is where the session token is stored. Empty means {config dir}/session.json.
	SessionFile string `mapstructure:"session_file"`
}

// RealtimeConfig controls the celebration channel
type RealtimeConfig struct {
	// Enabled subscribes to celebration events after sign-in (default: true)
	Enabled bool `mapstructure:"enabled"`
	// URL is the websocket endpoint. Empty means it is derived from api.base_url.
	URL string `mapstructure:"url"`
	// BannerSeconds is how long a celebration banner stays visible (default: 5)
	BannerSeconds int `mapstructure:"banner_seconds"`
}

// CacheConfig controls the server-state cache
type CacheConfig struct {
	// StaleTimeSeconds is how long a fetched query is considered fresh (default: 300)
	StaleTimeSeconds int `mapstructure:"stale_time_seconds"`
}

// RetryConfig controls automatic retries of mutations
type RetryConfig struct {
	// MutationRetries is the number of automatic retries after the first attempt (default: 1)
	MutationRetries int `mapstructure:"mutation_retries"`
	// DelayMs is the pause before a retry (default: 1000)
	DelayMs int `mapstructure:"delay_ms"`
}

// DecomposeConfig controls the mood check-in
type DecomposeConfig struct {
	// DefaultEnergy is the preselected energy level, 0 (drained) to 5 (buzzing) (default: 2)
	DefaultEnergy int `mapstructure:"default_energy"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// ReducedMotion disables the spinner and celebration animation
	ReducedMotion bool `mapstructure:"reduced_motion"`
	// ShowRationale renders the rationale under each sub-step (default: true)
	ShowRationale bool `mapstructure:"show_rationale"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// DevServerConfig controls `gentle dev-server`
type DevServerConfig struct {
	// Addr is the listen address of the in-memory backend (default: ":8000")
	Addr string `mapstructure:"addr"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 15,
		},
		Auth: AuthConfig{
			URL:         "", // Derived from api.base_url
			AnonKey:     "",
			RedirectURL: "",
			SessionFile: "", // Derived from ConfigDir()
		},
		Realtime: RealtimeConfig{
			Enabled:       true,
			URL:           "",
			BannerSeconds: 5,
		},
		Cache: CacheConfig{
			StaleTimeSeconds: 300,
		},
		Retry: RetryConfig{
			MutationRetries: 1,
			DelayMs:         1000,
		},
		Decompose: DecomposeConfig{
			DefaultEnergy: 2,
		},
		TUI: TUIConfig{
			ReducedMotion: false,
			ShowRationale: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		DevServer: DevServerConfig{
			Addr: ":8000",
		},
	}
}

// Timeout returns the request timeout as a time.Duration
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StaleTime returns the cache freshness window as a time.Duration
func (c *CacheConfig) StaleTime() time.Duration {
	return time.Duration(c.StaleTimeSeconds) * time.Second
}

// Delay returns the retry delay as a time.Duration
func (c *RetryConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// BannerDuration returns how long a celebration banner is shown
func (c *RealtimeConfig) BannerDuration() time.Duration {
	return time.Duration(c.BannerSeconds) * time.Second
}

// AuthURL returns the identity provider base URL.
func (c *Config) AuthURL() string {
	if c.Auth.URL != "" {
		return strings.TrimRight(c.Auth.URL, "/")
	}
	return strings.TrimRight(c.API.BaseURL, "/") + "/auth/v1"
}

// SessionFile returns the resolved session file path, expanding ~.
func (c *Config) SessionFile() string {
	if c.Auth.SessionFile == "" {
		return filepath.Join(ConfigDir(), "session.json")
	}
	return expandHome(c.Auth.SessionFile)
}

// RealtimeURL returns the websocket endpoint. When realtime.url is unset the
// scheme of api.base_url is switched to ws/wss and /v1/realtime appended.
func (c *Config) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/realtime"
	return u.String()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// API defaults
	viper.SetDefault("api.base_url", defaults.API.BaseURL)
	viper.SetDefault("api.timeout_seconds", defaults.API.TimeoutSeconds)

	// Auth defaults
	viper.SetDefault("auth.url", defaults.Auth.URL)
	viper.SetDefault("auth.anon_key", defaults.Auth.AnonKey)
	viper.SetDefault("auth.redirect_url", defaults.Auth.RedirectURL)
	viper.SetDefault("auth.session_file", defaults.Auth.SessionFile)

	// Realtime defaults
	viper.SetDefault("realtime.enabled", defaults.Realtime.Enabled)
	viper.SetDefault("realtime.url", defaults.Realtime.URL)
	viper.SetDefault("realtime.banner_seconds", defaults.Realtime.BannerSeconds)

	viper.SetDefault("cache.stale_time_seconds", defaults.Cache.StaleTimeSeconds)

	viper.SetDefault("retry.mutation_retries", defaults.Retry.MutationRetries)
	viper.SetDefault("retry.delay_ms", defaults.Retry.DelayMs)

	viper.SetDefault("decompose.default_energy", defaults.Decompose.DefaultEnergy)

	// TUI defaults
	viper.SetDefault("tui.reduced_motion", defaults.TUI.ReducedMotion)
	viper.SetDefault("tui.show_rationale", defaults.TUI.ShowRationale)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("dev_server.addr", defaults.DevServer.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gentle")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gentle"
	}
	return filepath.Join(home, ".config", "gentle")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
