package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "5m", 5 * time.Minute, false},
		{"complex", "1h30m", 90 * time.Minute, false},
		{"milliseconds", "100ms", 100 * time.Millisecond, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration)
		})
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.General.Environment)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, "text", cfg.General.Output)
	assert.Equal(t, "localhost:9300", cfg.Bank.Target)
	assert.Equal(t, "token-bank-id", cfg.Bank.IdentityKey)
	assert.Equal(t, "config/tls/trusted-certs.pem", cfg.TLS.TrustedCerts)
	assert.Equal(t, 50*time.Second, cfg.Channel.KeepaliveInterval.Duration)
	assert.Equal(t, 5*time.Second, cfg.Channel.ShutdownGrace.Duration)
	assert.Equal(t, 10, cfg.Fixtures.TxLimit)
	assert.Equal(t, "GBP", cfg.Fixtures.Currency)
}

func TestConfig_applyDefaults_PreservesValues(t *testing.T) {
	cfg := &Config{
		Bank:    BankConfig{Target: "fank.development:50051", IdentityKey: "x-bank"},
		Channel: ChannelConfig{KeepaliveInterval: Duration{10 * time.Second}},
	}
	cfg.applyDefaults()

	assert.Equal(t, "fank.development:50051", cfg.Bank.Target)
	assert.Equal(t, "x-bank", cfg.Bank.IdentityKey)
	assert.Equal(t, 10*time.Second, cfg.Channel.KeepaliveInterval.Duration)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bankprobe.toml")
	content := `
[general]
log_level = "debug"
output = "json"

[bank]
id = "coop"
target = "fank.development:50051"
operations = ["HealthCheck", "GetBalance"]

[tls]
trusted_certs = "/etc/bank/trusted.pem"
cert_chain = "/etc/bank/cert.pem"
private_key = "/etc/bank/key.pem"

[channel]
keepalive_interval = "30s"
shutdown_grace = "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, "json", cfg.General.Output)
	assert.Equal(t, "coop", cfg.Bank.ID)
	assert.Equal(t, []string{"HealthCheck", "GetBalance"}, cfg.Bank.Operations)
	assert.Equal(t, "/etc/bank/cert.pem", cfg.TLS.CertChain)
	assert.Equal(t, 30*time.Second, cfg.Channel.KeepaliveInterval.Duration)
	assert.Equal(t, 2*time.Second, cfg.Channel.ShutdownGrace.Duration)
	assert.Equal(t, 30*time.Second, cfg.Channel.CallTimeout.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ZeroCallTimeoutDisablesDeadline(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"bankprobe.toml": "[bank]\nid = \"coop\"\n\n[channel]\ncall_timeout = \"0s\"\n",
		"bankprobe.yaml": "bank:\n  id: coop\nchannel:\n  call_timeout: 0s\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, time.Duration(0), cfg.Channel.CallTimeout.Duration)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bankprobe.yaml")
	content := `
bank:
  id: ruby
  target: localhost:9300
tls:
  insecure: true
channel:
  keepalive_interval: 15s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ruby", cfg.Bank.ID)
	assert.True(t, cfg.TLS.Insecure)
	assert.Equal(t, 15*time.Second, cfg.Channel.KeepaliveInterval.Duration)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/bankprobe.toml")
	require.Error(t, err)
	assert.True(t, coreerrors.IsConfiguration(err))
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.toml")
	require.NoError(t, os.WriteFile(path, []byte("invalid toml [[["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, coreerrors.IsConfiguration(err))
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bankprobe.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bank]\nid = \"coop\"\n"), 0o644))

	t.Setenv("BANKPROBE_TARGET", "override:443")
	t.Setenv("BANKPROBE_BANK_ID", "bank-x")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override:443", cfg.Bank.Target)
	assert.Equal(t, "bank-x", cfg.Bank.ID)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("BANKPROBE_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("BANKPROBE_BANK_ID", "coop")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "coop", cfg.Bank.ID)
	assert.Equal(t, "localhost:9300", cfg.Bank.Target)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing bank id", func(c *Config) { c.Bank.ID = "" }, "bank.id"},
		{"blank target", func(c *Config) { c.Bank.Target = " " }, "bank.target"},
		{"missing key path", func(c *Config) { c.TLS.PrivateKey = "" }, "tls.private_key"},
		{"zero keepalive", func(c *Config) { c.Channel.KeepaliveInterval.Duration = 0 }, "channel.keepalive_interval"},
		{"bad output", func(c *Config) { c.General.Output = "xml" }, "general.output"},
		{"negative call timeout", func(c *Config) { c.Channel.CallTimeout.Duration = -time.Second }, "channel.call_timeout"},
		{"negative tx limit", func(c *Config) { c.Fixtures.TxLimit = -1 }, "fixtures.transactions_limit"},
		{"tx limit beyond int32", func(c *Config) { limit := int64(math.MaxInt32) + 1; c.Fixtures.TxLimit = int(limit) }, "fixtures.transactions_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Bank.ID = "coop"
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var ce *coreerrors.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidate_InsecureSkipsTLSPaths(t *testing.T) {
	cfg := Default()
	cfg.Bank.ID = "coop"
	cfg.TLS = TLSConfig{Insecure: true}

	assert.NoError(t, cfg.Validate())
}
