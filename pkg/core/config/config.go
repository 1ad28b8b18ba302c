package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
)

// Config holds the complete run configuration. It is built once at startup
// and passed by value into the channel and sequencer constructors.
type Config struct {
	General   GeneralConfig   `toml:"general" yaml:"general"`
	Bank      BankConfig      `toml:"bank" yaml:"bank"`
	TLS       TLSConfig       `toml:"tls" yaml:"tls"`
	Channel   ChannelConfig   `toml:"channel" yaml:"channel"`
	Fixtures  FixturesConfig  `toml:"fixtures" yaml:"fixtures"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Environment string `toml:"environment" yaml:"environment"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
	LogFormat   string `toml:"log_format" yaml:"log_format"`
	LogFile     string `toml:"log_file" yaml:"log_file"`
	Output      string `toml:"output" yaml:"output"`
}

// BankConfig identifies the counterparty and the caller institution
type BankConfig struct {
	ID          string   `toml:"id" yaml:"id"`
	Target      string   `toml:"target" yaml:"target"`
	IdentityKey string   `toml:"identity_key" yaml:"identity_key"`
	Operations  []string `toml:"operations" yaml:"operations"`
}

// TLSConfig holds the mutual-TLS file paths
type TLSConfig struct {
	Insecure     bool   `toml:"insecure" yaml:"insecure"`
	TrustedCerts string `toml:"trusted_certs" yaml:"trusted_certs"`
	CertChain    string `toml:"cert_chain" yaml:"cert_chain"`
	PrivateKey   string `toml:"private_key" yaml:"private_key"`
	ServerName   string `toml:"server_name" yaml:"server_name"`
}

// ChannelConfig holds connection lifecycle settings
type ChannelConfig struct {
	KeepaliveInterval Duration `toml:"keepalive_interval" yaml:"keepalive_interval"`
	KeepaliveTimeout  Duration `toml:"keepalive_timeout" yaml:"keepalive_timeout"`
	ShutdownGrace     Duration `toml:"shutdown_grace" yaml:"shutdown_grace"`
	CallTimeout       Duration `toml:"call_timeout" yaml:"call_timeout"` // 0 disables
	MaxMsgSize        int      `toml:"max_msg_size" yaml:"max_msg_size"`
}

// FixturesConfig holds the literal values used to build example requests
type FixturesConfig struct {
	ConsentID      string `toml:"consent_id" yaml:"consent_id"`
	AccountBankID  string `toml:"account_bank_id" yaml:"account_bank_id"`
	AccountPayload string `toml:"account_payload" yaml:"account_payload"`
	TransferID     string `toml:"transfer_id" yaml:"transfer_id"`
	Currency       string `toml:"currency" yaml:"currency"`
	Amount         string `toml:"amount" yaml:"amount"`
	TxLimit        int    `toml:"transactions_limit" yaml:"transactions_limit"`
	// StripedTransfer omits the Transfer fields that repeat the instructions
	StripedTransfer bool `toml:"striped_transfer" yaml:"striped_transfer"`
}

// TelemetryConfig holds optional metrics and tracing export settings
type TelemetryConfig struct {
	PushgatewayURL string `toml:"pushgateway_url" yaml:"pushgateway_url"`
	OTLPEndpoint   string `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `toml:"otlp_insecure" yaml:"otlp_insecure"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// defaultCallTimeout is seeded before decoding, so an explicit "0s" in a
// file survives and disables the per-call deadline
const defaultCallTimeout = 30 * time.Second

func newConfig() Config {
	var cfg Config
	cfg.Channel.CallTimeout.Duration = defaultCallTimeout
	return cfg
}

// Default returns a configuration with every default applied
func Default() Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, coreerrors.NewConfigurationError("config", fmt.Sprintf("config file not found: %s", path), err)
	}

	cfg := newConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, coreerrors.NewConfigurationError("config", "failed to read config", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, coreerrors.NewConfigurationError("config", "failed to parse config", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, coreerrors.NewConfigurationError("config", "failed to parse config", err)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	cfg.applyEnvOverrides()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the BANKPROBE_CONFIG environment
// variable or the default locations. When no file exists the defaults plus
// environment overrides are returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("BANKPROBE_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/bankprobe.toml",
			"./bankprobe.toml",
			"./bankprobe.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/bankprobe/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		cfg := Default()
		cfg.applyEnvOverrides()
		return &cfg, nil
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}
	if c.General.Output == "" {
		c.General.Output = "text"
	}

	if c.Bank.Target == "" {
		c.Bank.Target = "localhost:9300"
	}
	if c.Bank.IdentityKey == "" {
		c.Bank.IdentityKey = "token-bank-id"
	}

	if c.TLS.TrustedCerts == "" {
		c.TLS.TrustedCerts = "config/tls/trusted-certs.pem"
	}
	if c.TLS.CertChain == "" {
		c.TLS.CertChain = "config/tls/cert.pem"
	}
	if c.TLS.PrivateKey == "" {
		c.TLS.PrivateKey = "config/tls/key.pem"
	}

	if c.Channel.KeepaliveInterval.Duration == 0 {
		c.Channel.KeepaliveInterval.Duration = 50 * time.Second
	}
	if c.Channel.KeepaliveTimeout.Duration == 0 {
		c.Channel.KeepaliveTimeout.Duration = 20 * time.Second
	}
	if c.Channel.ShutdownGrace.Duration == 0 {
		c.Channel.ShutdownGrace.Duration = 5 * time.Second
	}
	if c.Channel.MaxMsgSize == 0 {
		c.Channel.MaxMsgSize = 16 * 1024 * 1024 // 16MB
	}

	if c.Fixtures.ConsentID == "" {
		c.Fixtures.ConsentID = "ta:9tJNYhJ1a4NxPhtgsCqWcLiVGpXJTYjyBUZcr3bNwu9A:5zKtXEAq"
	}
	if c.Fixtures.AccountPayload == "" {
		c.Fixtures.AccountPayload = "a-valid-account-identifier"
	}
	if c.Fixtures.Currency == "" {
		c.Fixtures.Currency = "GBP"
	}
	if c.Fixtures.Amount == "" {
		c.Fixtures.Amount = "1.99"
	}
	if c.Fixtures.TxLimit == 0 {
		c.Fixtures.TxLimit = 10
	}
}

// expandEnvVars expands environment variables in path-like values
func (c *Config) expandEnvVars() {
	c.TLS.TrustedCerts = os.ExpandEnv(c.TLS.TrustedCerts)
	c.TLS.CertChain = os.ExpandEnv(c.TLS.CertChain)
	c.TLS.PrivateKey = os.ExpandEnv(c.TLS.PrivateKey)
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
}

// applyEnvOverrides lets the environment override the file
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BANKPROBE_TARGET"); v != "" {
		c.Bank.Target = v
	}
	if v := os.Getenv("BANKPROBE_BANK_ID"); v != "" {
		c.Bank.ID = v
	}
	if v := os.Getenv("BANKPROBE_LOG_LEVEL"); v != "" {
		c.General.LogLevel = v
	}
}

// Validate reports the first problem that makes the configuration unusable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bank.ID) == "" {
		return coreerrors.NewConfigurationError("bank.id", "institution identifier is required", nil)
	}
	if strings.TrimSpace(c.Bank.Target) == "" {
		return coreerrors.NewConfigurationError("bank.target", "target address is required", nil)
	}
	if strings.TrimSpace(c.Bank.IdentityKey) == "" {
		return coreerrors.NewConfigurationError("bank.identity_key", "metadata key is required", nil)
	}
	if !c.TLS.Insecure {
		for field, path := range map[string]string{
			"tls.trusted_certs": c.TLS.TrustedCerts,
			"tls.cert_chain":    c.TLS.CertChain,
			"tls.private_key":   c.TLS.PrivateKey,
		} {
			if path == "" {
				return coreerrors.NewConfigurationError(field, "path is required unless tls.insecure is set", nil)
			}
		}
	}
	if c.Channel.KeepaliveInterval.Duration <= 0 {
		return coreerrors.NewConfigurationError("channel.keepalive_interval", "must be positive", nil)
	}
	if c.Channel.ShutdownGrace.Duration < 0 {
		return coreerrors.NewConfigurationError("channel.shutdown_grace", "must not be negative", nil)
	}
	if c.Channel.CallTimeout.Duration < 0 {
		return coreerrors.NewConfigurationError("channel.call_timeout", "must not be negative", nil)
	}
	if c.Fixtures.TxLimit < 1 || c.Fixtures.TxLimit > math.MaxInt32 {
		return coreerrors.NewConfigurationError("fixtures.transactions_limit",
			fmt.Sprintf("must be between 1 and %d", math.MaxInt32), nil)
	}
	switch c.General.Output {
	case "text", "json", "yaml":
	default:
		return coreerrors.NewConfigurationError("general.output", fmt.Sprintf("unsupported output %q", c.General.Output), nil)
	}
	return nil
}
