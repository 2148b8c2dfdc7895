package events

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"hashswap/core/types"
)

const (
	TypeOrderCreated   = "htlc.order.created"
	TypeOrderCancelled = "htlc.order.cancelled"
	TypeOrderUpdated   = "htlc.order.updated"
	TypeSwapInitiated  = "htlc.swap.initiated"
	TypeSwapCompleted  = "htlc.swap.completed"
	TypeSwapRefunded   = "htlc.swap.refunded"
)

type OrderCreated struct {
	OrderID      uint64
	Maker        [20]byte
	SellAsset    [20]byte
	BuyAsset     [20]byte
	AmountToSell *big.Int
	AmountToBuy  *big.Int
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

func (e OrderCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderCreated,
		Attributes: map[string]string{
			"orderId":      uintToString(e.OrderID),
			"maker":        formatAddress(e.Maker),
			"sellAsset":    formatAddress(e.SellAsset),
			"buyAsset":     formatAddress(e.BuyAsset),
			"amountToSell": formatAmount(e.AmountToSell),
			"amountToBuy":  formatAmount(e.AmountToBuy),
		},
	}
}

// ParseOrderCreated decodes the wire form produced by OrderCreated.Event.
func ParseOrderCreated(evt *types.Event) (OrderCreated, error) {
	var out OrderCreated
	if evt == nil || evt.Type != TypeOrderCreated {
		return out, fmt.Errorf("events: not an %s event", TypeOrderCreated)
	}
	var err error
	if out.OrderID, err = parseUint(evt, "orderId"); err != nil {
		return out, err
	}
	if out.Maker, err = parseAddress(evt, "maker"); err != nil {
		return out, err
	}
	if out.SellAsset, err = parseAddress(evt, "sellAsset"); err != nil {
		return out, err
	}
	if out.BuyAsset, err = parseAddress(evt, "buyAsset"); err != nil {
		return out, err
	}
	if out.AmountToSell, err = parseAmount(evt, "amountToSell"); err != nil {
		return out, err
	}
	if out.AmountToBuy, err = parseAmount(evt, "amountToBuy"); err != nil {
		return out, err
	}
	return out, nil
}

type OrderCancelled struct {
	OrderID uint64
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	return &types.Event{
		Type:       TypeOrderCancelled,
		Attributes: map[string]string{"orderId": uintToString(e.OrderID)},
	}
}

// ParseOrderCancelled decodes the wire form produced by OrderCancelled.Event.
func ParseOrderCancelled(evt *types.Event) (OrderCancelled, error) {
	if evt == nil || evt.Type != TypeOrderCancelled {
		return OrderCancelled{}, fmt.Errorf("events: not an %s event", TypeOrderCancelled)
	}
	id, err := parseUint(evt, "orderId")
	if err != nil {
		return OrderCancelled{}, err
	}
	return OrderCancelled{OrderID: id}, nil
}

// OrderUpdated records order changes that no other event covers, such as the
// unreserved balance swept back to the maker when an order is deactivated.
type OrderUpdated struct {
	OrderID  uint64
	Reason   string
	Released *big.Int
}

func (OrderUpdated) EventType() string { return TypeOrderUpdated }

func (e OrderUpdated) Event() *types.Event {
	attrs := map[string]string{"orderId": uintToString(e.OrderID)}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	if e.Released != nil {
		attrs["released"] = formatAmount(e.Released)
	}
	return &types.Event{Type: TypeOrderUpdated, Attributes: attrs}
}

type SwapInitiated struct {
	SwapID            uint64
	OrderID           uint64
	Participant       [20]byte
	InitiatorAmount   *big.Int
	ParticipantAmount *big.Int
	HashLock          [32]byte
	Timelock          int64
}

func (SwapInitiated) EventType() string { return TypeSwapInitiated }

func (e SwapInitiated) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapInitiated,
		Attributes: map[string]string{
			"swapId":            uintToString(e.SwapID),
			"orderId":           uintToString(e.OrderID),
			"participant":       formatAddress(e.Participant),
			"initiatorAmount":   formatAmount(e.InitiatorAmount),
			"participantAmount": formatAmount(e.ParticipantAmount),
			"hashlock":          hex.EncodeToString(e.HashLock[:]),
			"timelock":          strconv.FormatInt(e.Timelock, 10),
		},
	}
}

type SwapCompleted struct {
	SwapID   uint64
	OrderID  uint64
	Preimage []byte
}

func (SwapCompleted) EventType() string { return TypeSwapCompleted }

func (e SwapCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapCompleted,
		Attributes: map[string]string{
			"swapId":   uintToString(e.SwapID),
			"orderId":  uintToString(e.OrderID),
			"preimage": hex.EncodeToString(e.Preimage),
		},
	}
}

type SwapRefunded struct {
	SwapID  uint64
	OrderID uint64
}

func (SwapRefunded) EventType() string { return TypeSwapRefunded }

func (e SwapRefunded) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapRefunded,
		Attributes: map[string]string{
			"swapId":  uintToString(e.SwapID),
			"orderId": uintToString(e.OrderID),
		},
	}
}

func formatAddress(addr [20]byte) string {
	return common.Address(addr).Hex()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(evt *types.Event, key string) (uint64, error) {
	v, err := strconv.ParseUint(evt.Attr(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("events: %s: invalid %s: %w", evt.Type, key, err)
	}
	return v, nil
}

func parseAddress(evt *types.Event, key string) ([20]byte, error) {
	raw := evt.Attr(key)
	if !common.IsHexAddress(raw) {
		return [20]byte{}, fmt.Errorf("events: %s: invalid %s %q", evt.Type, key, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(evt *types.Event, key string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(evt.Attr(key), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("events: %s: invalid %s", evt.Type, key)
	}
	return v, nil
}
