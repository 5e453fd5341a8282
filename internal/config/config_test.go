package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.API.TimeoutSeconds != 15 {
		t.Errorf("API.TimeoutSeconds = %d, want 15", cfg.API.TimeoutSeconds)
	}
	if !cfg.Realtime.Enabled {
		t.Error("Realtime.Enabled should be true by default")
	}
	if cfg.Realtime.BannerSeconds != 5 {
		t.Errorf("Realtime.BannerSeconds = %d, want 5", cfg.Realtime.BannerSeconds)
	}
	if cfg.Cache.StaleTimeSeconds != 300 {
		t.Errorf("Cache.StaleTimeSeconds = %d, want 300", cfg.Cache.StaleTimeSeconds)
	}
	if cfg.Retry.MutationRetries != 1 {
		t.Errorf("Retry.MutationRetries = %d, want 1", cfg.Retry.MutationRetries)
	}
	if cfg.Decompose.DefaultEnergy != 2 {
		t.Errorf("Decompose.DefaultEnergy = %d, want 2", cfg.Decompose.DefaultEnergy)
	}
	if !cfg.TUI.ShowRationale {
		t.Error("TUI.ShowRationale should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.DevServer.Addr != ":8000" {
		t.Errorf("DevServer.Addr = %q, want %q", cfg.DevServer.Addr, ":8000")
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	if got := cfg.API.Timeout(); got != 15*time.Second {
		t.Errorf("API.Timeout() = %v, want 15s", got)
	}
	if got := cfg.Cache.StaleTime(); got != 5*time.Minute {
		t.Errorf("Cache.StaleTime() = %v, want 5m", got)
	}
	if got := cfg.Retry.Delay(); got != time.Second {
		t.Errorf("Retry.Delay() = %v, want 1s", got)
	}
	if got := cfg.Realtime.BannerDuration(); got != 5*time.Second {
		t.Errorf("Realtime.BannerDuration() = %v, want 5s", got)
	}
}

func TestAuthURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		authURL string
		want    string
	}{
		{"derived", "http://localhost:8000", "", "http://localhost:8000/auth/v1"},
		{"derived trims slash", "https://api.example.com/", "", "https://api.example.com/auth/v1"},
		{"explicit", "http://localhost:8000", "https://id.example.com/auth/v1/", "https://id.example.com/auth/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.BaseURL = tt.baseURL
			cfg.Auth.URL = tt.authURL
			if got := cfg.AuthURL(); got != tt.want {
				t.Errorf("AuthURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRealtimeURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		url     string
		want    string
	}{
		{"http becomes ws", "http://localhost:8000", "", "ws://localhost:8000/v1/realtime"},
		{"https becomes wss", "https://api.example.com/base/", "", "wss://api.example.com/base/v1/realtime"},
		{"explicit wins", "http://localhost:8000", "wss://rt.example.com/socket", "wss://rt.example.com/socket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.BaseURL = tt.baseURL
			cfg.Realtime.URL = tt.url
			if got := cfg.RealtimeURL(); got != tt.want {
				t.Errorf("RealtimeURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	cfg := Default()
	if got, want := cfg.SessionFile(), "/custom/config/gentle/session.json"; got != want {
		t.Errorf("SessionFile() = %q, want %q", got, want)
	}

	cfg.Auth.SessionFile = "~/gentle-session.json"
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got, want := cfg.SessionFile(), filepath.Join(home, "gentle-session.json"); got != want {
		t.Errorf("SessionFile() = %q, want %q", got, want)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got, want := ConfigDir(), "/custom/config/gentle"; got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		if got, want := ConfigDir(), filepath.Join(home, ".config", "gentle"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := ConfigFile(), "/custom/config/gentle/config.yaml"; got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.API.TimeoutSeconds != 15 {
		t.Errorf("Get().API.TimeoutSeconds = %d, want 15", cfg.API.TimeoutSeconds)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("retry.mutation_retries", 9)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for retry.mutation_retries=9")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 1 || errs[0].Field != "retry.mutation_retries" {
		t.Errorf("errors = %v, want one retry.mutation_retries error", errs)
	}

	if Get().Retry.MutationRetries != 1 {
		t.Error("Get() should fall back to defaults when Load fails")
	}
}
