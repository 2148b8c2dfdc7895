package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hashswap/core"
	"hashswap/native/htlc"
	"hashswap/storage/eventlog"
)

// OrderResult is the JSON form of an order.
type OrderResult struct {
	ID                  uint64   `json:"id"`
	Maker               string   `json:"maker"`
	SellAsset           string   `json:"sellAsset"`
	BuyAsset            string   `json:"buyAsset"`
	AmountToSell        string   `json:"amountToSell"`
	InitialAmountToSell string   `json:"initialAmountToSell"`
	AmountToBuy         string   `json:"amountToBuy"`
	MinTradeAmount      string   `json:"minTradeAmount"`
	MaxTradeAmount      string   `json:"maxTradeAmount"`
	Reserved            string   `json:"reserved"`
	Available           string   `json:"available"`
	HashLock            string   `json:"hashLock"`
	Timelock            int64    `json:"timelock"`
	CreatedAt           int64    `json:"createdAt"`
	PartialFillAllowed  bool     `json:"partialFillAllowed"`
	Active              bool     `json:"active"`
	Cancelled           bool     `json:"cancelled"`
	ActiveSwaps         []uint64 `json:"activeSwaps"`
}

// SwapResult is the JSON form of a swap. Status is the stored status and
// EffectiveStatus reports expiry as of the node clock.
type SwapResult struct {
	ID                uint64 `json:"id"`
	OrderID           uint64 `json:"orderId"`
	Initiator         string `json:"initiator"`
	Participant       string `json:"participant"`
	InitiatorAsset    string `json:"initiatorAsset"`
	InitiatorAmount   string `json:"initiatorAmount"`
	ParticipantAsset  string `json:"participantAsset"`
	ParticipantAmount string `json:"participantAmount"`
	HashLock          string `json:"hashLock"`
	Timelock          int64  `json:"timelock"`
	CreatedAt         int64  `json:"createdAt"`
	Status            string `json:"status"`
	EffectiveStatus   string `json:"effectiveStatus"`
	Preimage          string `json:"preimage,omitempty"`
}

// EventResult is one committed event log record.
type EventResult struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Time       int64             `json:"time"`
}

func formatOrder(o *htlc.Order) OrderResult {
	active := o.ActiveSwaps
	if active == nil {
		active = []uint64{}
	}
	return OrderResult{
		ID:                  o.ID,
		Maker:               common.Address(o.Maker).Hex(),
		SellAsset:           formatAsset(o.SellAsset),
		BuyAsset:            formatAsset(o.BuyAsset),
		AmountToSell:        formatAmount(o.AmountToSell),
		InitialAmountToSell: formatAmount(o.InitialAmountToSell),
		AmountToBuy:         formatAmount(o.AmountToBuy),
		MinTradeAmount:      formatAmount(o.MinTradeAmount),
		MaxTradeAmount:      formatAmount(o.MaxTradeAmount),
		Reserved:            formatAmount(o.Reserved),
		Available:           formatAmount(o.Available()),
		HashLock:            common.Hash(o.HashLock).Hex(),
		Timelock:            o.Timelock,
		CreatedAt:           o.CreatedAt,
		PartialFillAllowed:  o.PartialFillAllowed,
		Active:              o.Active,
		Cancelled:           o.Cancelled,
		ActiveSwaps:         active,
	}
}

func formatSwap(view *core.SwapView) SwapResult {
	s := view.Swap
	out := SwapResult{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Initiator:         common.Address(s.Initiator).Hex(),
		Participant:       common.Address(s.Participant).Hex(),
		InitiatorAsset:    formatAsset(s.InitiatorAsset),
		InitiatorAmount:   formatAmount(s.InitiatorAmount),
		ParticipantAsset:  formatAsset(s.ParticipantAsset),
		ParticipantAmount: formatAmount(s.ParticipantAmount),
		HashLock:          common.Hash(s.HashLock).Hex(),
		Timelock:          s.Timelock,
		CreatedAt:         s.CreatedAt,
		Status:            s.Status.String(),
		EffectiveStatus:   view.EffectiveStatus.String(),
	}
	if len(s.Preimage) > 0 {
		out.Preimage = hexutil.Encode(s.Preimage)
	}
	return out
}

func formatRecord(rec eventlog.Record) EventResult {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return EventResult{Sequence: rec.Sequence, Type: rec.Type, Attributes: attrs, Time: rec.Time.Unix()}
}

func formatAsset(a htlc.Asset) string {
	if a.IsNative() {
		return "native"
	}
	return common.Address(a).Hex()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAddress(raw, field string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("%s must be a hex address", field)
	}
	return common.HexToAddress(trimmed), nil
}

// parseAsset accepts "native" (or empty) for the native asset and a hex
// token address otherwise.
func parseAsset(raw, field string) (htlc.Asset, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "native") {
		return htlc.NativeAsset, nil
	}
	addr, err := parseAddress(trimmed, field)
	if err != nil {
		return htlc.Asset{}, err
	}
	return htlc.Asset(addr), nil
}

// parseAmount accepts decimal or 0x-prefixed hex integers. Empty input
// yields nil so optional amounts stay unset.
func parseAmount(raw, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(trimmed, 0)
	if !ok {
		return nil, fmt.Errorf("%s must be an integer", field)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", field)
	}
	return v, nil
}

func parseBytes(raw, field string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		trimmed = "0x" + trimmed
	}
	out, err := hexutil.Decode(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex: %w", field, err)
	}
	return out, nil
}

func parseHash(raw, field string) ([32]byte, error) {
	b, err := parseBytes(raw, field)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) == 0 {
		return [32]byte{}, nil
	}
	if len(b) != 32 {
		return [32]byte{}, fmt.Errorf("%s must be 32 bytes", field)
	}
	return common.BytesToHash(b), nil
}

// StatsResult is the JSON form of core.Stats.
type StatsResult struct {
	Orders uint64 `json:"orders"`
	Swaps  uint64 `json:"swaps"`
	Events uint64 `json:"events"`
}
