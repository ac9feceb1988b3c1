package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Twilio.AccountSID == "" {
		issues = append(issues, ValidationIssue{
			Path:    "twilio.accountSid",
			Message: "account SID is required",
		})
	}
	if cfg.Twilio.AuthToken == "" {
		issues = append(issues, ValidationIssue{
			Path:    "twilio.authToken",
			Message: "auth token is required",
		})
	}
	if cfg.Twilio.FromNumber == "" && cfg.Twilio.MessagingServiceSID == "" {
		issues = append(issues, ValidationIssue{
			Path:    "twilio",
			Message: "one of fromNumber or messagingServiceSid must be set",
		})
	}
	if cfg.Twilio.SendTimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "twilio.sendTimeoutSeconds",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Twilio.SendTimeoutSeconds),
		})
	}

	validDrivers := []string{"sqlite", "memory"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		issues = append(issues, ValidationIssue{
			Path:    "store.driver",
			Message: fmt.Sprintf("must be one of %v, got %q", validDrivers, cfg.Store.Driver),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
