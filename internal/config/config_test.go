package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Twilio.SendTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
twilio:
  accountSid: AC123
  authToken: secret
  fromNumber: "+15550001111"
store:
  driver: memory
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
	assert.Equal(t, "secret", cfg.Twilio.AuthToken)
	assert.Equal(t, "+15550001111", cfg.Twilio.FromNumber)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_TWILIO_SECRET", "tok-from-env")
	path := writeConfig(t, `
twilio:
  accountSid: AC123
  authToken: ${TEST_TWILIO_SECRET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-from-env", cfg.Twilio.AuthToken)
}

func TestLoad_MissingFileStillExpandsEnvReferences(t *testing.T) {
	// Credentials supplied entirely through the environment can carry
	// ${VAR} indirection too; expansion applies whether or not a config
	// file exists.
	t.Setenv("TEST_TWILIO_SECRET", "tok-from-env")
	t.Setenv("TWILIO_TOKEN", "${TEST_TWILIO_SECRET}")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tok-from-env", cfg.Twilio.AuthToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TWILIO_SID", "AC999")
	t.Setenv("TWILIO_TOKEN", "tok999")
	t.Setenv("TWILIO_MESSAGING_SERVICE_SID", "MG42")
	t.Setenv("SMSBRIDGE_PORT", "7001")

	path := writeConfig(t, `
twilio:
  accountSid: AC123
  authToken: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "AC999", cfg.Twilio.AccountSID)
	assert.Equal(t, "tok999", cfg.Twilio.AuthToken)
	assert.Equal(t, "MG42", cfg.Twilio.MessagingServiceSID)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestValidate_RequiresCredentials(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	issues := Validate(&cfg)

	paths := make([]string, 0, len(issues))
	for _, issue := range issues {
		paths = append(paths, issue.Path)
	}
	assert.Contains(t, paths, "twilio.accountSid")
	assert.Contains(t, paths, "twilio.authToken")
	assert.Contains(t, paths, "twilio")
}

func TestValidate_RoutingIdentifierSatisfiedByEither(t *testing.T) {
	cfg := Config{Twilio: TwilioConfig{AccountSID: "AC1", AuthToken: "t", MessagingServiceSID: "MG1"}}
	applyDefaults(&cfg)
	assert.Empty(t, Validate(&cfg))

	cfg = Config{Twilio: TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+15550001111"}}
	applyDefaults(&cfg)
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_RejectsBadEnums(t *testing.T) {
	cfg := Config{
		Twilio:  TwilioConfig{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1"},
		Store:   StoreConfig{Driver: "postgres"},
		Logging: LoggingConfig{Level: "loud", ConsoleStyle: "neon"},
	}
	applyDefaults(&cfg)

	issues := Validate(&cfg)
	require.Len(t, issues, 3)
}
