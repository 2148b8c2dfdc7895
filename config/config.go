package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the swapd node configuration.
type Config struct {
	ListenAddress string         `toml:"ListenAddress" yaml:"listen"`
	DataDir       string         `toml:"DataDir" yaml:"dataDir"`
	Environment   string         `toml:"Environment" yaml:"environment"`
	VaultAddress  string         `toml:"VaultAddress" yaml:"vaultAddress"`
	Logging       Logging        `toml:"logging" yaml:"logging"`
	Auth          Auth           `toml:"auth" yaml:"auth"`
	RateLimit     RateLimit      `toml:"rate_limit" yaml:"rateLimit"`
	Telemetry     Telemetry      `toml:"telemetry" yaml:"telemetry"`
	Genesis       []GenesisEntry `toml:"genesis" yaml:"genesis"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		ListenAddress: "127.0.0.1:8545",
		DataDir:       "./swap-data",
		Environment:   "dev",
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Auth: Auth{
			AllowAnonymousReads: true,
			ClockSkew:           2 * time.Minute,
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 600,
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
		},
	}
}

// Load reads the configuration at path. TOML is assumed unless the file
// ends in .yaml or .yml. A missing file is created with defaults, which
// fail validation until a vault address and auth secret are filled in.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := persist(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := Default()
	if isYAML(path) {
		if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else {
		meta, err := toml.Decode(string(raw), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.RequestsPerMinute
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}
