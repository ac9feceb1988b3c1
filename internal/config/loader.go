package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} references in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with environment variable
// values. Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes ${ENV_VAR} references in credential
// fields so secrets never need to live in the config file itself.
func expandSensitiveFields(cfg *Config) {
	cfg.Twilio.AccountSID = expandEnvVars(cfg.Twilio.AccountSID)
	cfg.Twilio.AuthToken = expandEnvVars(cfg.Twilio.AuthToken)
	cfg.Server.FeedToken = expandEnvVars(cfg.Server.FeedToken)
}

// Load reads the config file, applies defaults and environment overrides,
// and returns the merged Config. A missing file yields defaults plus
// environment values only.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8787
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "127.0.0.1"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Twilio.SendTimeoutSeconds == 0 {
		cfg.Twilio.SendTimeoutSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads TWILIO_* and SMSBRIDGE_* environment variables
// and overrides config values. The TWILIO_* names match the ones the
// carrier's own tooling documents.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TWILIO_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM"); v != "" {
		cfg.Twilio.FromNumber = v
	}
	if v := os.Getenv("TWILIO_MESSAGING_SERVICE_SID"); v != "" {
		cfg.Twilio.MessagingServiceSID = v
	}
	if v := os.Getenv("SMSBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SMSBRIDGE_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SMSBRIDGE_FEED_TOKEN"); v != "" {
		cfg.Server.FeedToken = v
	}
	if v := os.Getenv("SMSBRIDGE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SMSBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
