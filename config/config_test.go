package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
feed_account: feedwitness
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":7085", cfg.ListenAddress)
	require.Equal(t, "feed-mainnet", cfg.ChainID)
	require.Equal(t, DefaultEndpoints, cfg.Endpoints)
	require.Equal(t, 10*time.Second, cfg.AttemptTimeout.Duration)
	require.Equal(t, 2*len(cfg.Endpoints), cfg.MaxAttempts)
	require.Equal(t, 5*time.Minute, cfg.FeedInterval.Duration)
	require.Equal(t, "feedd", cfg.Wallet.SessionName)
	require.Equal(t, "publisher", cfg.Wallet.WalletName)
	require.Equal(t, "FEEDD_WALLET_PASSPHRASE", cfg.Wallet.PassphraseEnv)
	require.Equal(t, "FEEDD_SIGNER_SECRET", cfg.SignerSecretEnv)
	require.Equal(t, "NHB", cfg.Pair.Base)
	require.Equal(t, "USD", cfg.Pair.Quote)
	require.Equal(t, "1", cfg.Pair.UnitAmount)
	require.Equal(t, 1, cfg.Oracle.MinFeeds)
	require.Len(t, cfg.Sources, 1)
	require.Equal(t, "coingecko", cfg.Sources[0].Type)
}

func TestLoadYAMLFullDocument(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
listen: ":9090"
feed_account: feedwitness
chain_id: feed-test
endpoints:
  - https://a.example.net
  - https://b.example.net
attempt_timeout: 3s
max_attempts: 7
feed_interval: 30s
wallet:
  dir: /tmp/wallet
  session: night
  name: signer
  passphrase_env: WALLET_PASS
pair:
  base: znhb
  quote: usd
  unit_amount: "2.5"
oracle:
  max_age: 45s
  min_feeds: 2
sources:
  - name: primary
    type: coingecko
    endpoint: https://prices.example.net
    assets:
      NHB: nhbcoin
  - name: pin
    type: static
    rate: "0.5"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, "feed-test", cfg.ChainID)
	require.Equal(t, []string{"https://a.example.net", "https://b.example.net"}, cfg.Endpoints)
	require.Equal(t, 3*time.Second, cfg.AttemptTimeout.Duration)
	require.Equal(t, 7, cfg.MaxAttempts)
	require.Equal(t, 30*time.Second, cfg.FeedInterval.Duration)
	require.Equal(t, "/tmp/wallet", cfg.Wallet.Dir)
	require.Equal(t, "night", cfg.Wallet.SessionName)
	require.Equal(t, "signer", cfg.Wallet.WalletName)
	require.Equal(t, "WALLET_PASS", cfg.Wallet.PassphraseEnv)
	require.Equal(t, "2.5", cfg.Pair.UnitAmount)
	require.Equal(t, 45*time.Second, cfg.Oracle.MaxAge.Duration)
	require.Equal(t, 2, cfg.Oracle.MinFeeds)
	require.Len(t, cfg.Sources, 2)
	require.Equal(t, "nhbcoin", cfg.Sources[0].Assets["NHB"])
	require.Equal(t, "0.5", cfg.Sources[1].Rate)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
Listen = ":8088"
FeedAccount = "feedwitness"
ChainID = "feed-test"
Endpoints = ["https://a.example.net"]
AttemptTimeout = "4s"
MaxAttempts = 3

[Wallet]
Dir = "/tmp/wallet"

[[Sources]]
Name = "pin"
Type = "static"
Rate = "1.0"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":8088", cfg.ListenAddress)
	require.Equal(t, []string{"https://a.example.net"}, cfg.Endpoints)
	require.Equal(t, 4*time.Second, cfg.AttemptTimeout.Duration)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, "/tmp/wallet", cfg.Wallet.Dir)
	require.Equal(t, "static", cfg.Sources[0].Type)
}

func TestLoadRejectsMissingFeedAccount(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
chain_id: feed-test
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "feed_account")
}

func TestLoadRejectsBlankEndpointAndUntypedSource(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
feed_account: feedwitness
endpoints:
  - "   "
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "empty endpoint")

	path = writeConfig(t, "config.yaml", `
feed_account: feedwitness
sources:
  - name: mystery
`)
	_, err = Load(path)
	require.ErrorContains(t, err, "missing type")
}

func TestResolveSignerSecret(t *testing.T) {
	cfg := Config{SignerSecret: " aa11 ", SignerSecretEnv: "FEEDD_TEST_SECRET"}
	require.Equal(t, "aa11", cfg.ResolveSignerSecret())

	cfg.SignerSecret = ""
	t.Setenv("FEEDD_TEST_SECRET", "bb22")
	require.Equal(t, "bb22", cfg.ResolveSignerSecret())

	t.Setenv("FEEDD_TEST_SECRET", "")
	require.Empty(t, cfg.ResolveSignerSecret())
}
