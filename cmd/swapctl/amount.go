package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// toBaseUnits converts a human amount such as "1.25" into integer base
// units scaled by 10^decimals. Fractions finer than the scale are rejected.
func toBaseUnits(raw string, decimals int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount %q must not be negative", raw)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimal places", raw, decimals)
	}
	return scaled.BigInt().String(), nil
}

// fromBaseUnits renders base units as a decimal string scaled down by
// 10^decimals.
func fromBaseUnits(raw string, decimals int) (string, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return "", fmt.Errorf("invalid base amount %q", raw)
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String(), nil
}

// counterAmount mirrors the engine's fixed-rate derivation
// floor(take * amountToBuy / initialAmountToSell).
func counterAmount(take, amountToBuy, initial string) (string, error) {
	values := make([]*big.Int, 0, 3)
	for _, raw := range []string{take, amountToBuy, initial} {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return "", fmt.Errorf("invalid amount %q", raw)
		}
		values = append(values, v)
	}
	if values[2].Sign() == 0 {
		return "", fmt.Errorf("order has no initial amount")
	}
	out := new(big.Int).Mul(values[0], values[1])
	return out.Quo(out, values[2]).String(), nil
}
