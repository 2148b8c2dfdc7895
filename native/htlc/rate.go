package htlc

import (
	"math/big"

	"github.com/holiman/uint256"
)

// toUint256 converts a non-negative amount into 256-bit form, reporting false
// when the value is negative or does not fit.
func toUint256(v *big.Int) (*uint256.Int, bool) {
	if v == nil || v.Sign() < 0 {
		return nil, false
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, false
	}
	return out, true
}

// inRange reports whether v is a representable non-negative amount.
func inRange(v *big.Int) bool {
	_, ok := toUint256(v)
	return ok
}

// counterAmount returns floor(take * amountToBuy / amountToSell). Callers pass
// the order's initial sell amount, so the rate is fixed at creation. Truncation
// favours the maker by at most one base unit. The intermediate product is
// computed at 512-bit width; false is returned when the quotient overflows
// 256 bits or the divisor is zero.
func counterAmount(take, amountToBuy, amountToSell *big.Int) (*big.Int, bool) {
	x, ok := toUint256(take)
	if !ok {
		return nil, false
	}
	y, ok := toUint256(amountToBuy)
	if !ok {
		return nil, false
	}
	d, ok := toUint256(amountToSell)
	if !ok || d.IsZero() {
		return nil, false
	}
	quo, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, false
	}
	return quo.ToBig(), true
}
