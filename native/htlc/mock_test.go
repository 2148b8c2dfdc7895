package htlc

import (
	"errors"
	"fmt"
	"math/big"

	"hashswap/core/events"
)

type stateCopy struct {
	orders     map[uint64]*Order
	swaps      map[uint64]*Swap
	book       map[PairKey][]uint64
	userOrders map[[20]byte][]uint64
	orderSeq   uint64
	swapSeq    uint64
}

type mockState struct {
	stateCopy
	snapshots []stateCopy
}

func newMockState() *mockState {
	return &mockState{stateCopy: stateCopy{
		orders:     make(map[uint64]*Order),
		swaps:      make(map[uint64]*Swap),
		book:       make(map[PairKey][]uint64),
		userOrders: make(map[[20]byte][]uint64),
	}}
}

func (c stateCopy) clone() stateCopy {
	out := stateCopy{
		orders:     make(map[uint64]*Order, len(c.orders)),
		swaps:      make(map[uint64]*Swap, len(c.swaps)),
		book:       make(map[PairKey][]uint64, len(c.book)),
		userOrders: make(map[[20]byte][]uint64, len(c.userOrders)),
		orderSeq:   c.orderSeq,
		swapSeq:    c.swapSeq,
	}
	for k, v := range c.orders {
		out.orders[k] = v.Clone()
	}
	for k, v := range c.swaps {
		out.swaps[k] = v.Clone()
	}
	for k, v := range c.book {
		out.book[k] = append([]uint64(nil), v...)
	}
	for k, v := range c.userOrders {
		out.userOrders[k] = append([]uint64(nil), v...)
	}
	return out
}

func (m *mockState) Snapshot() int {
	m.snapshots = append(m.snapshots, m.stateCopy.clone())
	return len(m.snapshots) - 1
}

func (m *mockState) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	m.stateCopy = m.snapshots[id].clone()
	m.snapshots = m.snapshots[:id]
}

func (m *mockState) OrderGet(id uint64) (*Order, bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	return o.Clone(), true, nil
}

func (m *mockState) OrderPut(o *Order) error {
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *mockState) SwapGet(id uint64) (*Swap, bool, error) {
	s, ok := m.swaps[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) SwapPut(s *Swap) error {
	if !s.Status.Valid() {
		return fmt.Errorf("invalid status %s", s.Status)
	}
	m.swaps[s.ID] = s.Clone()
	return nil
}

func (m *mockState) NextOrderID() (uint64, error) {
	m.orderSeq++
	return m.orderSeq, nil
}

func (m *mockState) NextSwapID() (uint64, error) {
	m.swapSeq++
	return m.swapSeq, nil
}

func (m *mockState) OrderBookAppend(pair PairKey, id uint64) error {
	m.book[pair] = append(m.book[pair], id)
	return nil
}

func (m *mockState) OrderBookRemove(pair PairKey, id uint64) error {
	m.book[pair] = SwapRemove(m.book[pair], id)
	return nil
}

func (m *mockState) OrderBook(pair PairKey) ([]uint64, error) {
	return append([]uint64(nil), m.book[pair]...), nil
}

func (m *mockState) UserOrdersAppend(owner [20]byte, id uint64) error {
	m.userOrders[owner] = append(m.userOrders[owner], id)
	return nil
}

func (m *mockState) UserOrders(owner [20]byte) ([]uint64, error) {
	return append([]uint64(nil), m.userOrders[owner]...), nil
}

var errLedgerDown = errors.New("ledger down")

// mockLedger keeps balances outside the engine state so failed calls must be
// undone by compensation rather than by the state snapshot.
type mockLedger struct {
	balances map[[20]byte]map[[20]byte]*big.Int
	custody  map[[20]byte]*big.Int

	calls      int
	failOn     int
	onTransfer func()
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances: make(map[[20]byte]map[[20]byte]*big.Int),
		custody:  make(map[[20]byte]*big.Int),
	}
}

func (l *mockLedger) credit(asset Asset, addr [20]byte, amount int64) {
	l.add(asset, addr, big.NewInt(amount))
}

func (l *mockLedger) balance(asset Asset, addr [20]byte) *big.Int {
	if l.balances[asset] == nil || l.balances[asset][addr] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(l.balances[asset][addr])
}

func (l *mockLedger) held(asset Asset) *big.Int {
	if l.custody[asset] == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(l.custody[asset])
}

func (l *mockLedger) add(asset [20]byte, addr [20]byte, amount *big.Int) {
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[[20]byte]*big.Int)
	}
	cur := l.balances[asset][addr]
	if cur == nil {
		cur = big.NewInt(0)
	}
	l.balances[asset][addr] = new(big.Int).Add(cur, amount)
}

func (l *mockLedger) hook() error {
	l.calls++
	if l.onTransfer != nil {
		l.onTransfer()
	}
	if l.failOn > 0 && l.calls == l.failOn {
		return errLedgerDown
	}
	return nil
}

func (l *mockLedger) Lock(asset [20]byte, from [20]byte, amount, attached *big.Int) error {
	if err := l.hook(); err != nil {
		return err
	}
	if asset == NativeAsset && attached.Cmp(amount) != 0 {
		return fmt.Errorf("attached %s != amount %s", attached, amount)
	}
	if asset != NativeAsset && attached.Sign() != 0 {
		return fmt.Errorf("token lock with attached value")
	}
	bal := l.balance(asset, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance")
	}
	l.add(asset, from, new(big.Int).Neg(amount))
	l.custody[asset] = new(big.Int).Add(l.held(asset), amount)
	return nil
}

func (l *mockLedger) Release(asset [20]byte, to [20]byte, amount *big.Int) error {
	if err := l.hook(); err != nil {
		return err
	}
	if l.held(asset).Cmp(amount) < 0 {
		return fmt.Errorf("custody underflow")
	}
	l.custody[asset] = new(big.Int).Sub(l.held(asset), amount)
	l.add(asset, to, amount)
	return nil
}

type collector struct {
	events []events.Event
}

func (c *collector) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *collector) types() []string {
	out := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType())
	}
	return out
}
