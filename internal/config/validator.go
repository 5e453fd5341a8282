package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "api.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Limits enforced by Validate.
const (
	MaxTimeoutSeconds  = 300
	MaxMutationRetries = 3
	MinEnergy          = 0
	MaxEnergy          = 5
	MaxBannerSeconds   = 60
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateAuth()...)
	errors = append(errors, c.validateRealtime()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateDecompose()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateHTTPURL reports an error unless raw is an absolute URL with one of
// the given schemes.
func validateHTTPURL(field, raw string, schemes ...string) []ValidationError {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !slices.Contains(schemes, u.Scheme) {
		return []ValidationError{{
			Field:   field,
			Value:   raw,
			Message: fmt.Sprintf("must be an absolute %s URL", strings.Join(schemes, "/")),
		}}
	}
	return nil
}

func (c *Config) validateAPI() []ValidationError {
	var errors []ValidationError

	if c.API.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Value:   c.API.BaseURL,
			Message: "must not be empty",
		})
	} else {
		errors = append(errors, validateHTTPURL("api.base_url", c.API.BaseURL, "http", "https")...)
	}

	if c.API.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.timeout_seconds",
			Value:   c.API.TimeoutSeconds,
			Message: "must be positive",
		})
	} else if c.API.TimeoutSeconds > MaxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "api.timeout_seconds",
			Value:   c.API.TimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d", MaxTimeoutSeconds),
		})
	}

	return errors
}

func (c *Config) validateAuth() []ValidationError {
	var errors []ValidationError

	if c.Auth.URL != "" {
		errors = append(errors, validateHTTPURL("auth.url", c.Auth.URL, "http", "https")...)
	}
	if c.Auth.RedirectURL != "" {
		if _, err := url.Parse(c.Auth.RedirectURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "auth.redirect_url",
				Value:   c.Auth.RedirectURL,
				Message: "must be a valid URL",
			})
		}
	}
	if strings.ContainsRune(c.Auth.SessionFile, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "auth.session_file",
			Value:   c.Auth.SessionFile,
			Message: "contains invalid null character",
		})
	}

	return errors
}

func (c *Config) validateRealtime() []ValidationError {
	var errors []ValidationError

	if c.Realtime.URL != "" {
		errors = append(errors, validateHTTPURL("realtime.url", c.Realtime.URL, "ws", "wss")...)
	}
	if c.Realtime.BannerSeconds <= 0 || c.Realtime.BannerSeconds > MaxBannerSeconds {
		errors = append(errors, ValidationError{
			Field:   "realtime.banner_seconds",
			Value:   c.Realtime.BannerSeconds,
			Message: fmt.Sprintf("must be between 1 and %d", MaxBannerSeconds),
		})
	}

	return errors
}

func (c *Config) validateCache() []ValidationError {
	if c.Cache.StaleTimeSeconds < 0 {
		return []ValidationError{{
			Field:   "cache.stale_time_seconds",
			Value:   c.Cache.StaleTimeSeconds,
			Message: "must be non-negative",
		}}
	}
	return nil
}

func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	if c.Retry.MutationRetries < 0 || c.Retry.MutationRetries > MaxMutationRetries {
		errors = append(errors, ValidationError{
			Field:   "retry.mutation_retries",
			Value:   c.Retry.MutationRetries,
			Message: fmt.Sprintf("must be between 0 and %d", MaxMutationRetries),
		})
	}
	if c.Retry.DelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.delay_ms",
			Value:   c.Retry.DelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateDecompose() []ValidationError {
	if c.Decompose.DefaultEnergy < MinEnergy || c.Decompose.DefaultEnergy > MaxEnergy {
		return []ValidationError{{
			Field:   "decompose.default_energy",
			Value:   c.Decompose.DefaultEnergy,
			Message: fmt.Sprintf("must be between %d and %d", MinEnergy, MaxEnergy),
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		return []ValidationError{{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		}}
	}
	return nil
}
