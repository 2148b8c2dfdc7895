package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrVaultRequired  = errors.New("config: VaultAddress required")
	ErrSecretRequired = errors.New("config: auth.HMACSecret required")
)

// Allocation is a parsed genesis entry.
type Allocation struct {
	Asset   [20]byte
	Address [20]byte
	Amount  *big.Int
}

// Validate checks the fields the node cannot start without.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if _, err := cfg.Vault(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return ErrSecretRequired
	}
	if cfg.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("config: rate_limit.RequestsPerMinute must not be negative")
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("config: logging rotation limits must not be negative")
	}
	if _, err := cfg.Allocations(); err != nil {
		return err
	}
	return nil
}

// Vault parses VaultAddress.
func (cfg *Config) Vault() ([20]byte, error) {
	raw := strings.TrimSpace(cfg.VaultAddress)
	if raw == "" {
		return [20]byte{}, ErrVaultRequired
	}
	if !common.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("config: VaultAddress %q is not a hex address", raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return [20]byte{}, ErrVaultRequired
	}
	return addr, nil
}

// Allocations parses the genesis entries.
func (cfg *Config) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0, len(cfg.Genesis))
	for i, entry := range cfg.Genesis {
		addr := strings.TrimSpace(entry.Address)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("config: genesis[%d].Address %q is not a hex address", i, entry.Address)
		}
		var asset [20]byte
		rawAsset := strings.TrimSpace(entry.Asset)
		if rawAsset != "" && !strings.EqualFold(rawAsset, "native") {
			if !common.IsHexAddress(rawAsset) {
				return nil, fmt.Errorf("config: genesis[%d].Asset %q is not a hex address", i, entry.Asset)
			}
			asset = common.HexToAddress(rawAsset)
		}
		amount, err := parseUintAmount(entry.Amount)
		if err != nil {
			return nil, fmt.Errorf("config: genesis[%d].Amount: %w", i, err)
		}
		if amount.Sign() == 0 {
			return nil, fmt.Errorf("config: genesis[%d].Amount must be positive", i)
		}
		out = append(out, Allocation{Asset: asset, Address: common.HexToAddress(addr), Amount: amount})
	}
	return out, nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return v, nil
}
