// Package config loads feedd runtime configuration from YAML or TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoints is the built-in node list used when the operator
// configures none.
var DefaultEndpoints = []string{
	"https://rpc1.feed.example.net",
	"https://rpc2.feed.example.net",
	"https://rpc3.feed.example.net",
}

// Duration wraps time.Duration to support human-readable strings in both
// YAML and TOML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings such as "30s" or "5m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string")
	}
	return d.parse(value.Value)
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.parse(string(text))
}

func (d *Duration) parse(raw string) error {
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the full runtime configuration for feedd.
type Config struct {
	ListenAddress string `yaml:"listen" toml:"Listen"`
	LogFile       string `yaml:"log_file" toml:"LogFile"`

	// FeedAccount is the principal identifier authorized to publish.
	FeedAccount string `yaml:"feed_account" toml:"FeedAccount"`
	ChainID     string `yaml:"chain_id" toml:"ChainID"`

	// SignerSecret optionally inlines the hex signing secret; SignerSecretEnv
	// names an environment variable consulted when the inline value is empty.
	// The secret is only needed the first time the wallet is bootstrapped.
	SignerSecret    string `yaml:"signer_secret" toml:"SignerSecret"`
	SignerSecretEnv string `yaml:"signer_secret_env" toml:"SignerSecretEnv"`

	Wallet WalletConfig `yaml:"wallet" toml:"Wallet"`

	Endpoints      []string `yaml:"endpoints" toml:"Endpoints"`
	AttemptTimeout Duration `yaml:"attempt_timeout" toml:"AttemptTimeout"`
	MaxAttempts    int      `yaml:"max_attempts" toml:"MaxAttempts"`

	FeedInterval Duration     `yaml:"feed_interval" toml:"FeedInterval"`
	Pair         PairConfig   `yaml:"pair" toml:"Pair"`
	Oracle       OracleConfig `yaml:"oracle" toml:"Oracle"`
	Sources      []Source     `yaml:"sources" toml:"Sources"`
}

// WalletConfig locates the keystore-backed credential store.
type WalletConfig struct {
	Dir           string `yaml:"dir" toml:"Dir"`
	SessionName   string `yaml:"session" toml:"Session"`
	WalletName    string `yaml:"name" toml:"Name"`
	PassphraseEnv string `yaml:"passphrase_env" toml:"PassphraseEnv"`
}

// PairConfig names the published pair and the fixed unit quantity.
type PairConfig struct {
	Base       string `yaml:"base" toml:"Base"`
	Quote      string `yaml:"quote" toml:"Quote"`
	UnitAmount string `yaml:"unit_amount" toml:"UnitAmount"`
}

// OracleConfig tunes the aggregation collaborator.
type OracleConfig struct {
	MaxAge   Duration `yaml:"max_age" toml:"MaxAge"`
	MinFeeds int      `yaml:"min_feeds" toml:"MinFeeds"`
}

// Source describes an upstream price feed.
type Source struct {
	Name     string            `yaml:"name" toml:"Name"`
	Type     string            `yaml:"type" toml:"Type"`
	Endpoint string            `yaml:"endpoint" toml:"Endpoint"`
	APIKey   string            `yaml:"api_key" toml:"APIKey"`
	Rate     string            `yaml:"rate" toml:"Rate"`
	Assets   map[string]string `yaml:"assets" toml:"Assets"`
}

// Load reads the configuration at path, decoding TOML for .toml files and
// YAML otherwise, then applies defaults and validates.
func Load(path string) (Config, error) {
	cfg := Config{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7085"
	}
	if strings.TrimSpace(cfg.ChainID) == "" {
		cfg.ChainID = "feed-mainnet"
	}
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = append([]string{}, DefaultEndpoints...)
	}
	if cfg.AttemptTimeout.Duration <= 0 {
		cfg.AttemptTimeout.Duration = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2 * len(cfg.Endpoints)
	}
	if cfg.FeedInterval.Duration <= 0 {
		cfg.FeedInterval.Duration = 5 * time.Minute
	}
	if cfg.Wallet.Dir == "" {
		cfg.Wallet.Dir = "/var/lib/feedd/wallet"
	}
	if cfg.Wallet.SessionName == "" {
		cfg.Wallet.SessionName = "feedd"
	}
	if cfg.Wallet.WalletName == "" {
		cfg.Wallet.WalletName = "publisher"
	}
	if cfg.Wallet.PassphraseEnv == "" {
		cfg.Wallet.PassphraseEnv = "FEEDD_WALLET_PASSPHRASE"
	}
	if cfg.SignerSecretEnv == "" {
		cfg.SignerSecretEnv = "FEEDD_SIGNER_SECRET"
	}
	if cfg.Pair.Base == "" {
		cfg.Pair.Base = "NHB"
	}
	if cfg.Pair.Quote == "" {
		cfg.Pair.Quote = "USD"
	}
	if cfg.Pair.UnitAmount == "" {
		cfg.Pair.UnitAmount = "1"
	}
	if cfg.Oracle.MaxAge.Duration <= 0 {
		cfg.Oracle.MaxAge.Duration = 2 * time.Minute
	}
	if cfg.Oracle.MinFeeds <= 0 {
		cfg.Oracle.MinFeeds = 1
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []Source{{Name: "coingecko", Type: "coingecko"}}
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.FeedAccount) == "" {
		return fmt.Errorf("config: feed_account is required")
	}
	for _, ep := range cfg.Endpoints {
		if strings.TrimSpace(ep) == "" {
			return fmt.Errorf("config: empty endpoint entry")
		}
	}
	for _, src := range cfg.Sources {
		if strings.TrimSpace(src.Type) == "" {
			return fmt.Errorf("config: source %q missing type", src.Name)
		}
	}
	return nil
}

// ResolveSignerSecret returns the inline secret when present, otherwise the
// value of the configured environment variable. Empty means the wallet must
// already be bootstrapped.
func (c Config) ResolveSignerSecret() string {
	if secret := strings.TrimSpace(c.SignerSecret); secret != "" {
		return secret
	}
	return strings.TrimSpace(os.Getenv(c.SignerSecretEnv))
}
