package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Iron-Ham/gentle/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify gentle configuration",
	Long: `View or modify gentle configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  gentle config set api.base_url https://gentle.example.com
  gentle config set tui.reduced_motion true
  gentle config set decompose.default_energy 3

Valid keys:
  api.base_url               - Backend origin
  api.timeout_seconds        - Request timeout (1-300)
  auth.url                   - Identity provider URL (default: {api.base_url}/auth/v1)
  auth.anon_key              - Identity provider public key
  auth.redirect_url          - Magic-link redirect sent with sign-in requests
  auth.session_file          - Where the session is stored
  realtime.enabled           - Show celebrations from other devices (true/false)
  realtime.url               - Celebration socket URL (default: derived from api.base_url)
  realtime.banner_seconds    - How long a celebration banner stays up (1-60)
  cache.stale_time_seconds   - How long fetched data counts as fresh
  retry.mutation_retries     - Automatic retries of failed changes (0-3)
  retry.delay_ms             - Pause before a retry
  decompose.default_energy   - Preselected energy level (0-5)
  tui.reduced_motion         - Turn off spinners and animation (true/false)
  tui.show_rationale         - Show why each smaller step helps (true/false)
  logging.enabled            - Write a debug log (true/false)
  logging.level              - debug, info, warn, error
  dev_server.addr            - Listen address of 'gentle dev-server'`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/gentle/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys maps every settable key to its value type.
var configKeys = map[string]string{
	"api.base_url":             "string",
	"api.timeout_seconds":      "int",
	"auth.url":                 "string",
	"auth.anon_key":            "string",
	"auth.redirect_url":        "string",
	"auth.session_file":        "string",
	"realtime.enabled":         "bool",
	"realtime.url":             "string",
	"realtime.banner_seconds":  "int",
	"cache.stale_time_seconds": "int",
	"retry.mutation_retries":   "int",
	"retry.delay_ms":           "int",
	"decompose.default_energy": "int",
	"tui.reduced_motion":       "bool",
	"tui.show_rationale":       "bool",
	"logging.enabled":          "bool",
	"logging.level":            "string",
	"dev_server.addr":          "string",
}

// effectiveConfig is the YAML shape printed by `config show`.
type effectiveConfig struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`
	Auth struct {
		URL         string `yaml:"url"`
		AnonKey     string `yaml:"anon_key"`
		RedirectURL string `yaml:"redirect_url"`
		SessionFile string `yaml:"session_file"`
	} `yaml:"auth"`
	Realtime struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		BannerSeconds int    `yaml:"banner_seconds"`
	} `yaml:"realtime"`
	Cache struct {
		StaleTimeSeconds int `yaml:"stale_time_seconds"`
	} `yaml:"cache"`
	Retry struct {
		MutationRetries int `yaml:"mutation_retries"`
		DelayMs         int `yaml:"delay_ms"`
	} `yaml:"retry"`
	Decompose struct {
		DefaultEnergy int `yaml:"default_energy"`
	} `yaml:"decompose"`
	TUI struct {
		ReducedMotion bool `yaml:"reduced_motion"`
		ShowRationale bool `yaml:"show_rationale"`
	} `yaml:"tui"`
	Logging struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
	DevServer struct {
		Addr string `yaml:"addr"`
	} `yaml:"dev_server"`
}

// newEffectiveConfig resolves the derived defaults so `config show` prints
// the values actually in use.
func newEffectiveConfig(cfg *config.Config) effectiveConfig {
	var e effectiveConfig
	e.API.BaseURL = cfg.API.BaseURL
	e.API.TimeoutSeconds = cfg.API.TimeoutSeconds
	e.Auth.URL = cfg.AuthURL()
	e.Auth.AnonKey = cfg.Auth.AnonKey
	e.Auth.RedirectURL = cfg.Auth.RedirectURL
	e.Auth.SessionFile = cfg.SessionFile()
	e.Realtime.Enabled = cfg.Realtime.Enabled
	e.Realtime.URL = cfg.RealtimeURL()
	e.Realtime.BannerSeconds = cfg.Realtime.BannerSeconds
	e.Cache.StaleTimeSeconds = cfg.Cache.StaleTimeSeconds
	e.Retry.MutationRetries = cfg.Retry.MutationRetries
	e.Retry.DelayMs = cfg.Retry.DelayMs
	e.Decompose.DefaultEnergy = cfg.Decompose.DefaultEnergy
	e.TUI.ReducedMotion = cfg.TUI.ReducedMotion
	e.TUI.ShowRationale = cfg.TUI.ShowRationale
	e.Logging.Enabled = cfg.Logging.Enabled
	e.Logging.Level = cfg.Logging.Level
	e.DevServer.Addr = cfg.DevServer.Addr
	return e
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(newEffectiveConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'gentle config set --help' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	}

	// Range and format checks live in config.Validate.
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'gentle config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigFile()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize gentle.")
	return nil
}

// defaultConfigFile renders a commented config file holding the defaults.
func defaultConfigFile() string {
	d := config.Default()
	var b strings.Builder
	b.WriteString("# gentle configuration\n\n")

	b.WriteString("api:\n")
	b.WriteString("  # Backend origin; requests go to {base_url}/v1/...\n")
	fmt.Fprintf(&b, "  base_url: %s\n", d.API.BaseURL)
	b.WriteString("  # Requests that take longer than this fail with a timeout\n")
	fmt.Fprintf(&b, "  timeout_seconds: %d\n\n", d.API.TimeoutSeconds)

	b.WriteString("auth:\n")
	b.WriteString("  # Identity provider; empty means {api.base_url}/auth/v1\n")
	b.WriteString("  url: \"\"\n")
	b.WriteString("  anon_key: \"\"\n")
	b.WriteString("  redirect_url: \"\"\n")
	b.WriteString("  # Empty means session.json next to this file\n")
	b.WriteString("  session_file: \"\"\n\n")

	b.WriteString("realtime:\n")
	b.WriteString("  # Celebrate steps finished on your other devices\n")
	fmt.Fprintf(&b, "  enabled: %t\n", d.Realtime.Enabled)
	b.WriteString("  url: \"\"\n")
	fmt.Fprintf(&b, "  banner_seconds: %d\n\n", d.Realtime.BannerSeconds)

	b.WriteString("cache:\n")
	fmt.Fprintf(&b, "  stale_time_seconds: %d\n\n", d.Cache.StaleTimeSeconds)

	b.WriteString("retry:\n")
	b.WriteString("  # Failed changes are retried this many times (0-3)\n")
	fmt.Fprintf(&b, "  mutation_retries: %d\n", d.Retry.MutationRetries)
	fmt.Fprintf(&b, "  delay_ms: %d\n\n", d.Retry.DelayMs)

	b.WriteString("decompose:\n")
	b.WriteString("  # 0 drained, 1 low, 2 okay, 3 good, 4 high, 5 buzzing\n")
	fmt.Fprintf(&b, "  default_energy: %d\n\n", d.Decompose.DefaultEnergy)

	b.WriteString("tui:\n")
	fmt.Fprintf(&b, "  reduced_motion: %t\n", d.TUI.ReducedMotion)
	fmt.Fprintf(&b, "  show_rationale: %t\n\n", d.TUI.ShowRationale)

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", d.Logging.Enabled)
	b.WriteString("  # debug, info, warn, error\n")
	fmt.Fprintf(&b, "  level: %s\n\n", d.Logging.Level)

	b.WriteString("dev_server:\n")
	fmt.Fprintf(&b, "  addr: %q\n", d.DevServer.Addr)
	return b.String()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. $HOME/.config/gentle/config.yaml")
	fmt.Fprintln(out, "\nEnvironment variables: GENTLE_* (e.g., GENTLE_API_BASE_URL)")
	return nil
}
