package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const vaultHex = "0x00000000000000000000000000000000000000fe"

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadParsesTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `ListenAddress = "0.0.0.0:9000"
DataDir = "./data"
Environment = "staging"
VaultAddress = "`+vaultHex+`"

[logging]
Level = "debug"
File = "/var/log/swapd.log"

[auth]
HMACSecret = "secret"
Issuer = "swapd"
ClockSkew = "30s"

[rate_limit]
RequestsPerMinute = 120

[telemetry]
Endpoint = "otel:4318"
Traces = true

[[genesis]]
Address = "0x000000000000000000000000000000000000000a"
Asset = "native"
Amount = "1000"

[[genesis]]
Address = "0x000000000000000000000000000000000000000b"
Asset = "0x00000000000000000000000000000000000000b0"
Amount = "250"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 100, cfg.Logging.MaxSizeMB)
	require.Equal(t, 30*time.Second, cfg.Auth.ClockSkew)
	require.Equal(t, 120, cfg.RateLimit.Burst)
	require.True(t, cfg.Telemetry.Traces)

	vault, err := cfg.Vault()
	require.NoError(t, err)
	require.Equal(t, byte(0xfe), vault[19])

	allocs, err := cfg.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	require.Equal(t, [20]byte{}, allocs[0].Asset)
	require.Equal(t, int64(1000), allocs[0].Amount.Int64())
	require.Equal(t, byte(0xb0), allocs[1].Asset[19])
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `listen: ":8545"
dataDir: /tmp/swap
vaultAddress: "`+vaultHex+`"
auth:
  hmacSecret: secret
  allowAnonymousReads: false
rateLimit:
  requestsPerMinute: 30
  burst: 5
genesis:
  - address: "0x000000000000000000000000000000000000000a"
    amount: "42"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8545", cfg.ListenAddress)
	require.False(t, cfg.Auth.AllowAnonymousReads)
	require.Equal(t, 5, cfg.RateLimit.Burst)
	require.Equal(t, "dev", cfg.Environment)

	allocs, err := cfg.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	require.Equal(t, int64(42), allocs[0].Amount.Int64())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", `ListenAddress = ":1"
DataDir = "d"
VaultAddress = "`+vaultHex+`"
Bootnodes = ["x"]

[auth]
HMACSecret = "secret"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "Bootnodes")
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrVaultRequired)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.VaultAddress = vaultHex
		cfg.Auth.HMACSecret = "secret"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing secret":  func(c *Config) { c.Auth.HMACSecret = " " },
		"zero vault":      func(c *Config) { c.VaultAddress = "0x0000000000000000000000000000000000000000" },
		"bad vault":       func(c *Config) { c.VaultAddress = "vault" },
		"no listen":       func(c *Config) { c.ListenAddress = "" },
		"negative limit":  func(c *Config) { c.RateLimit.RequestsPerMinute = -1 },
		"bad genesis":     func(c *Config) { c.Genesis = []GenesisEntry{{Address: "0x01", Amount: "1"}} },
		"zero allocation": func(c *Config) { c.Genesis = []GenesisEntry{{Address: vaultHex, Amount: "0"}} },
		"bad amount":      func(c *Config) { c.Genesis = []GenesisEntry{{Address: vaultHex, Amount: "1.5"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
