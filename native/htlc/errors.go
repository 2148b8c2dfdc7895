package htlc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimelock          = errors.New("htlc: invalid timelock")
	ErrInvalidAmounts           = errors.New("htlc: invalid amounts")
	ErrInvalidTradeLimits       = errors.New("htlc: invalid trade limits")
	ErrTransferFailed           = errors.New("htlc: transfer failed")
	ErrOrderNotActive           = errors.New("htlc: order not active")
	ErrOrderExpired             = errors.New("htlc: order expired")
	ErrSwapTimelockExceedsOrder = errors.New("htlc: swap timelock exceeds order")
	ErrBelowMinTrade            = errors.New("htlc: below min trade")
	ErrAboveMaxTrade            = errors.New("htlc: above max trade")
	ErrInsufficientLiquidity    = errors.New("htlc: insufficient liquidity")
	ErrSelfTrade                = errors.New("htlc: maker cannot take own order")
	ErrSwapNotFound             = errors.New("htlc: swap not found")
	ErrNotOrderMaker            = errors.New("htlc: not order maker")
	ErrInvalidSwapStatus        = errors.New("htlc: invalid swap status")
	ErrSwapExpired              = errors.New("htlc: swap expired")
	ErrInvalidPreimage          = errors.New("htlc: invalid preimage")
	ErrTimelockNotExpired       = errors.New("htlc: timelock not expired")
	ErrHasActiveSwaps           = errors.New("htlc: order has active swaps")
	ErrReentrantCall            = errors.New("htlc: reentrant call")
	ErrOrderNotFound            = errors.New("htlc: order not found")

	errNilState  = errors.New("htlc engine: state not configured")
	errNilLedger = errors.New("htlc engine: asset ledger not configured")
)

// named maps every precondition failure to its stable name.
var named = []struct {
	err  error
	name string
}{
	{ErrInvalidTimelock, "InvalidTimelock"},
	{ErrInvalidAmounts, "InvalidAmounts"},
	{ErrInvalidTradeLimits, "InvalidTradeLimits"},
	{ErrTransferFailed, "TransferFailed"},
	{ErrOrderNotActive, "OrderNotActive"},
	{ErrOrderExpired, "OrderExpired"},
	{ErrSwapTimelockExceedsOrder, "SwapTimelockExceedsOrder"},
	{ErrBelowMinTrade, "BelowMinTrade"},
	{ErrAboveMaxTrade, "AboveMaxTrade"},
	{ErrInsufficientLiquidity, "InsufficientLiquidity"},
	{ErrSelfTrade, "SelfTrade"},
	{ErrSwapNotFound, "SwapNotFound"},
	{ErrNotOrderMaker, "NotOrderMaker"},
	{ErrInvalidSwapStatus, "InvalidSwapStatus"},
	{ErrSwapExpired, "SwapExpired"},
	{ErrInvalidPreimage, "InvalidPreimage"},
	{ErrTimelockNotExpired, "TimelockNotExpired"},
	{ErrHasActiveSwaps, "HasActiveSwaps"},
	{ErrReentrantCall, "ReentrantCall"},
	{ErrOrderNotFound, "OrderNotFound"},
}

// ErrorName returns the stable failure name for engine errors and "" for
// anything else (storage faults, misconfiguration).
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range named {
		if errors.Is(err, entry.err) {
			return entry.name
		}
	}
	return ""
}

// transferFailed wraps a ledger failure so callers can match both
// ErrTransferFailed and the ledger's own error.
func transferFailed(err error) error {
	if err == nil || errors.Is(err, ErrTransferFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}
