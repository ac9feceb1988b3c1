// Package config loads and validates SMSBridge configuration.
package config

// Config is the root configuration for SMSBridge.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty"`
	Twilio  TwilioConfig  `yaml:"twilio,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP gateway that hosts the carrier webhook
// and the WebSocket event feed.
type ServerConfig struct {
	Port      int    `yaml:"port,omitempty"`
	Bind      string `yaml:"bind,omitempty"`      // listen address, defaults to 127.0.0.1
	FeedToken string `yaml:"feedToken,omitempty"` // bearer token for /ws; empty disables auth
}

// TwilioConfig holds the carrier credentials and routing identifiers.
// Exactly one of FromNumber and MessagingServiceSID should be set; when
// both are present the messaging service takes precedence.
type TwilioConfig struct {
	AccountSID          string `yaml:"accountSid"`
	AuthToken           string `yaml:"authToken"`
	FromNumber          string `yaml:"fromNumber,omitempty"`
	MessagingServiceSID string `yaml:"messagingServiceSid,omitempty"`
	SendTimeoutSeconds  int    `yaml:"sendTimeoutSeconds,omitempty"`
}

// StoreConfig selects the user/delivery store backend.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "memory"
	Path   string `yaml:"path,omitempty"`   // sqlite file path
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
