package core

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"hashswap/native/htlc"
	"hashswap/storage/eventlog"
)

// SwapView is a swap together with its status as of the node clock.
type SwapView struct {
	*htlc.Swap
	EffectiveStatus htlc.SwapStatus
}

// Order returns the order with the given id.
func (n *Node) Order(id uint64) (*htlc.Order, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.GetOrder(id)
}

// Swap returns the swap with the given id.
func (n *Node) Swap(id uint64) (*SwapView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	swap, err := n.engine.GetSwap(id)
	if err != nil {
		return nil, err
	}
	return &SwapView{Swap: swap, EffectiveStatus: swap.EffectiveStatus(n.engine.Now())}, nil
}

// SwapsOf lists the unresolved swaps of an order.
func (n *Node) SwapsOf(orderID uint64) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.SwapsOf(orderID)
}

// OrderBook lists order ids offering sell for buy.
func (n *Node) OrderBook(sell, buy htlc.Asset) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.GetOrderBook(sell, buy)
}

// UserOrders lists every order created by owner.
func (n *Node) UserOrders(owner [20]byte) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.GetUserOrders(owner)
}

// Balance returns the ledger balance of asset held by addr.
func (n *Node) Balance(asset htlc.Asset, addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Balance(asset, addr)
}

// Custody returns the amount of asset held by the engine vault.
func (n *Node) Custody(asset htlc.Asset) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Custody(asset)
}

// Events returns up to limit committed events starting at sequence from.
func (n *Node) Events(from uint64, limit int) ([]eventlog.Record, error) {
	return n.log.Range(from, limit)
}

// Stats summarises engine activity.
type Stats struct {
	Orders uint64
	Swaps  uint64
	Events uint64
}

// Stats returns the number of orders and swaps ever created and the number
// of committed events.
func (n *Node) Stats() (*Stats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	orders, err := n.state.OrderCount()
	if err != nil {
		return nil, err
	}
	swaps, err := n.state.SwapCount()
	if err != nil {
		return nil, err
	}
	count, err := n.log.Len()
	if err != nil {
		return nil, err
	}
	return &Stats{Orders: orders, Swaps: swaps, Events: uint64(count)}, nil
}

// ErrIndexMismatch reports that the stored indices disagree with a replay
// of the event log.
var ErrIndexMismatch = errors.New("core: stored indexes diverge from event log")

// VerifyIndexes replays the event log and compares the projected order-book
// and user-order indices with the stored ones.
func (n *Node) VerifyIndexes() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	log, err := n.log.Events()
	if err != nil {
		return err
	}
	projected, err := htlc.ProjectIndexes(log)
	if err != nil {
		return err
	}

	pairs, err := n.state.OrderBookPairs()
	if err != nil {
		return err
	}
	if len(pairs) != len(projected.OrderBook) {
		return fmt.Errorf("%w: %d stored pairs, %d replayed", ErrIndexMismatch, len(pairs), len(projected.OrderBook))
	}
	for _, pair := range pairs {
		stored, err := n.state.OrderBook(pair)
		if err != nil {
			return err
		}
		if !sameIDs(stored, projected.OrderBook[pair]) {
			return fmt.Errorf("%w: book %s/%s stored %v, replayed %v", ErrIndexMismatch, pair.Sell, pair.Buy, stored, projected.OrderBook[pair])
		}
	}

	makers, err := n.state.Makers()
	if err != nil {
		return err
	}
	if len(makers) != len(projected.UserOrders) {
		return fmt.Errorf("%w: %d stored makers, %d replayed", ErrIndexMismatch, len(makers), len(projected.UserOrders))
	}
	for _, maker := range makers {
		stored, err := n.state.UserOrders(maker)
		if err != nil {
			return err
		}
		if !sameIDs(stored, projected.UserOrders[maker]) {
			return fmt.Errorf("%w: user %x stored %v, replayed %v", ErrIndexMismatch, maker, stored, projected.UserOrders[maker])
		}
	}
	return nil
}

func sameIDs(a, b []uint64) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
