package htlc

import (
	"fmt"

	"hashswap/core/events"
	"hashswap/core/types"
)

// Indexes is the derived order-book and user-order state.
type Indexes struct {
	OrderBook  map[PairKey][]uint64
	UserOrders map[[20]byte][]uint64
}

// ProjectIndexes rebuilds both indices by replaying the event log from
// genesis. Replaying the full log must reproduce the stored indices
// exactly, including the ordering produced by swap-removal on cancel.
func ProjectIndexes(log []*types.Event) (*Indexes, error) {
	idx := &Indexes{
		OrderBook:  make(map[PairKey][]uint64),
		UserOrders: make(map[[20]byte][]uint64),
	}
	pairs := make(map[uint64]PairKey)
	for i, evt := range log {
		if evt == nil {
			continue
		}
		switch evt.Type {
		case events.TypeOrderCreated:
			created, err := events.ParseOrderCreated(evt)
			if err != nil {
				return nil, fmt.Errorf("htlc: replay event %d: %w", i, err)
			}
			pair := PairKey{Sell: Asset(created.SellAsset), Buy: Asset(created.BuyAsset)}
			pairs[created.OrderID] = pair
			idx.OrderBook[pair] = append(idx.OrderBook[pair], created.OrderID)
			idx.UserOrders[created.Maker] = append(idx.UserOrders[created.Maker], created.OrderID)
		case events.TypeOrderCancelled:
			cancelled, err := events.ParseOrderCancelled(evt)
			if err != nil {
				return nil, fmt.Errorf("htlc: replay event %d: %w", i, err)
			}
			pair, ok := pairs[cancelled.OrderID]
			if !ok {
				return nil, fmt.Errorf("htlc: replay event %d: cancel of unknown order %d", i, cancelled.OrderID)
			}
			idx.OrderBook[pair] = SwapRemove(idx.OrderBook[pair], cancelled.OrderID)
		}
	}
	return idx, nil
}

// SwapRemove deletes id by moving the last element into its slot and
// shrinking the list. Order is not preserved. The list is returned unchanged
// when id is absent.
func SwapRemove(list []uint64, id uint64) []uint64 {
	for i, v := range list {
		if v != id {
			continue
		}
		last := len(list) - 1
		list[i] = list[last]
		return list[:last]
	}
	return list
}
