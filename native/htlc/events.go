package htlc

import (
	"math/big"

	"hashswap/core/events"
)

// Reasons attached to OrderUpdated when an order stops accepting swaps.
const (
	ReasonSingleFill = "single_fill"
	ReasonFilled     = "filled"
	ReasonExhausted  = "below_min_trade"
)

// NewOrderCreatedEvent constructs an order creation event.
func NewOrderCreatedEvent(o *Order) events.OrderCreated {
	if o == nil {
		return events.OrderCreated{}
	}
	return events.OrderCreated{
		OrderID:      o.ID,
		Maker:        o.Maker,
		SellAsset:    o.SellAsset,
		BuyAsset:     o.BuyAsset,
		AmountToSell: cloneBigInt(o.InitialAmountToSell),
		AmountToBuy:  cloneBigInt(o.AmountToBuy),
	}
}

func NewOrderCancelledEvent(o *Order) events.OrderCancelled {
	if o == nil {
		return events.OrderCancelled{}
	}
	return events.OrderCancelled{OrderID: o.ID}
}

// NewOrderUpdatedEvent constructs an order update event carrying the amount
// swept back to the maker.
func NewOrderUpdatedEvent(o *Order, reason string, released *big.Int) events.OrderUpdated {
	if o == nil {
		return events.OrderUpdated{}
	}
	return events.OrderUpdated{OrderID: o.ID, Reason: reason, Released: cloneBigInt(released)}
}

func NewSwapInitiatedEvent(s *Swap) events.SwapInitiated {
	if s == nil {
		return events.SwapInitiated{}
	}
	return events.SwapInitiated{
		SwapID:            s.ID,
		OrderID:           s.OrderID,
		Participant:       s.Participant,
		InitiatorAmount:   cloneBigInt(s.InitiatorAmount),
		ParticipantAmount: cloneBigInt(s.ParticipantAmount),
		HashLock:          s.HashLock,
		Timelock:          s.Timelock,
	}
}

func NewSwapCompletedEvent(s *Swap) events.SwapCompleted {
	if s == nil {
		return events.SwapCompleted{}
	}
	return events.SwapCompleted{SwapID: s.ID, OrderID: s.OrderID, Preimage: append([]byte(nil), s.Preimage...)}
}

func NewSwapRefundedEvent(s *Swap) events.SwapRefunded {
	if s == nil {
		return events.SwapRefunded{}
	}
	return events.SwapRefunded{SwapID: s.ID, OrderID: s.OrderID}
}
