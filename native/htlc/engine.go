package htlc

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"hashswap/core/events"
)

type engineState interface {
	OrderGet(id uint64) (*Order, bool, error)
	OrderPut(*Order) error
	SwapGet(id uint64) (*Swap, bool, error)
	SwapPut(*Swap) error
	NextOrderID() (uint64, error)
	NextSwapID() (uint64, error)
	OrderBookAppend(pair PairKey, id uint64) error
	OrderBookRemove(pair PairKey, id uint64) error
	OrderBook(pair PairKey) ([]uint64, error)
	UserOrdersAppend(owner [20]byte, id uint64) error
	UserOrders(owner [20]byte) ([]uint64, error)
	Snapshot() int
	RevertToSnapshot(id int)
}

// AssetLedger moves value in and out of engine custody. Lock pulls amount of
// asset from the owner; for the native asset attached must equal amount.
// Release pushes amount out of custody to the recipient.
type AssetLedger interface {
	Lock(asset [20]byte, from [20]byte, amount, attached *big.Int) error
	Release(asset [20]byte, to [20]byte, amount *big.Int) error
}

// OrderParams describes a new order.
type OrderParams struct {
	SellAsset          Asset
	BuyAsset           Asset
	AmountToSell       *big.Int
	AmountToBuy        *big.Int
	MinTradeAmount     *big.Int
	MaxTradeAmount     *big.Int
	PartialFillAllowed bool
	Timelock           int64
	Secret             []byte
}

// SwapParams describes a swap initiation against an order. A zero HashLock
// inherits the order's hashlock.
type SwapParams struct {
	OrderID    uint64
	TakeAmount *big.Int
	HashLock   [32]byte
	Timelock   int64
}

// Engine implements the order and swap transitions. It is the only writer of
// orders, swaps and their indices. Engine is not safe for concurrent use; the
// caller serializes mutating calls.
type Engine struct {
	state   engineState
	ledger  AssetLedger
	emitter events.Emitter
	nowFn   func() int64
	guard   callGuard
}

// NewEngine creates an engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the asset ledger holding custody.
func (e *Engine) SetLedger(ledger AssetLedger) { e.ledger = ledger }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// CreateOrder locks AmountToSell of SellAsset from maker and lists the order.
func (e *Engine) CreateOrder(maker [20]byte, value *big.Int, p OrderParams) (id uint64, err error) {
	c, err := e.begin()
	if err != nil {
		return 0, err
	}
	defer func() { err = c.finish(err) }()

	if maker == ([20]byte{}) {
		return 0, ErrNotOrderMaker
	}
	now := e.now()
	if p.Timelock <= now {
		return 0, ErrInvalidTimelock
	}
	if !positive(p.AmountToSell) || !positive(p.AmountToBuy) {
		return 0, ErrInvalidAmounts
	}
	if !inRange(p.AmountToSell) || !inRange(p.AmountToBuy) {
		return 0, ErrInvalidAmounts
	}
	if p.MinTradeAmount == nil || p.MaxTradeAmount == nil {
		return 0, ErrInvalidTradeLimits
	}
	if p.MinTradeAmount.Sign() < 0 || p.MaxTradeAmount.Sign() <= 0 {
		return 0, ErrInvalidTradeLimits
	}
	if p.MinTradeAmount.Cmp(p.MaxTradeAmount) > 0 || p.MaxTradeAmount.Cmp(p.AmountToSell) > 0 {
		return 0, ErrInvalidTradeLimits
	}

	if err := c.lock(p.SellAsset, maker, p.AmountToSell, value); err != nil {
		return 0, err
	}
	id, err = e.state.NextOrderID()
	if err != nil {
		return 0, err
	}
	order := &Order{
		ID:                  id,
		Maker:               maker,
		SellAsset:           p.SellAsset,
		BuyAsset:            p.BuyAsset,
		AmountToSell:        cloneBigInt(p.AmountToSell),
		InitialAmountToSell: cloneBigInt(p.AmountToSell),
		AmountToBuy:         cloneBigInt(p.AmountToBuy),
		MinTradeAmount:      cloneBigInt(p.MinTradeAmount),
		MaxTradeAmount:      cloneBigInt(p.MaxTradeAmount),
		Reserved:            big.NewInt(0),
		HashLock:            HashSecret(p.Secret),
		Timelock:            p.Timelock,
		CreatedAt:           now,
		PartialFillAllowed:  p.PartialFillAllowed,
		Active:              true,
	}
	if err := e.state.OrderPut(order); err != nil {
		return 0, err
	}
	if err := e.state.OrderBookAppend(PairKey{Sell: order.SellAsset, Buy: order.BuyAsset}, id); err != nil {
		return 0, err
	}
	if err := e.state.UserOrdersAppend(maker, id); err != nil {
		return 0, err
	}
	c.emit(NewOrderCreatedEvent(order))
	return id, nil
}

// InitiateSwap locks the proportional counter-amount from caller and opens a
// swap against the order. The maker becomes the swap initiator.
func (e *Engine) InitiateSwap(caller [20]byte, value *big.Int, p SwapParams) (id uint64, err error) {
	c, err := e.begin()
	if err != nil {
		return 0, err
	}
	defer func() { err = c.finish(err) }()

	order, err := e.loadOrder(p.OrderID)
	if err != nil {
		return 0, err
	}
	if !order.Exists() || !order.Active {
		return 0, ErrOrderNotActive
	}
	now := e.now()
	if now >= order.Timelock {
		return 0, ErrOrderExpired
	}
	if caller == order.Maker {
		return 0, ErrSelfTrade
	}
	if p.Timelock >= order.Timelock {
		return 0, ErrSwapTimelockExceedsOrder
	}
	if p.Timelock <= now {
		return 0, ErrInvalidTimelock
	}
	if !positive(p.TakeAmount) {
		return 0, ErrInvalidAmounts
	}
	if p.TakeAmount.Cmp(order.MinTradeAmount) < 0 {
		return 0, ErrBelowMinTrade
	}
	if p.TakeAmount.Cmp(order.MaxTradeAmount) > 0 {
		return 0, ErrAboveMaxTrade
	}
	available := order.Available()
	if p.TakeAmount.Cmp(available) > 0 {
		return 0, ErrInsufficientLiquidity
	}
	give, ok := counterAmount(p.TakeAmount, order.AmountToBuy, order.InitialAmountToSell)
	if !ok || give.Sign() == 0 {
		return 0, ErrInvalidAmounts
	}

	if err := c.lock(order.BuyAsset, caller, give, value); err != nil {
		return 0, err
	}
	id, err = e.state.NextSwapID()
	if err != nil {
		return 0, err
	}
	hashLock := p.HashLock
	if hashLock == ([32]byte{}) {
		hashLock = order.HashLock
	}
	swap := &Swap{
		ID:                id,
		OrderID:           order.ID,
		Initiator:         order.Maker,
		Participant:       caller,
		InitiatorAsset:    order.SellAsset,
		InitiatorAmount:   cloneBigInt(p.TakeAmount),
		ParticipantAsset:  order.BuyAsset,
		ParticipantAmount: give,
		HashLock:          hashLock,
		Timelock:          p.Timelock,
		CreatedAt:         now,
		Status:            SwapActive,
	}
	if err := e.state.SwapPut(swap); err != nil {
		return 0, err
	}
	order.ActiveSwaps = append(order.ActiveSwaps, id)
	order.Reserved = new(big.Int).Add(order.Reserved, p.TakeAmount)
	c.emit(NewSwapInitiatedEvent(swap))

	switch {
	case !order.PartialFillAllowed:
		err = c.deactivate(order, ReasonSingleFill)
	case p.TakeAmount.Cmp(available) == 0:
		err = c.deactivate(order, ReasonFilled)
	}
	if err != nil {
		return 0, err
	}
	if err := e.state.OrderPut(order); err != nil {
		return 0, err
	}
	return id, nil
}

// CompleteSwap settles both legs once the initiator reveals the preimage
// before the swap timelock.
func (e *Engine) CompleteSwap(caller [20]byte, swapID uint64, preimage []byte) (err error) {
	c, err := e.begin()
	if err != nil {
		return err
	}
	defer func() { err = c.finish(err) }()

	swap, err := e.loadSwap(swapID)
	if err != nil {
		return err
	}
	if caller != swap.Initiator {
		return ErrNotOrderMaker
	}
	if swap.Status != SwapActive {
		return ErrInvalidSwapStatus
	}
	if e.now() >= swap.Timelock {
		return ErrSwapExpired
	}
	if HashSecret(preimage) != swap.HashLock {
		return ErrInvalidPreimage
	}
	order, err := e.loadOrder(swap.OrderID)
	if err != nil {
		return err
	}
	if !order.Exists() {
		return fmt.Errorf("htlc: swap %d references missing order %d", swap.ID, swap.OrderID)
	}

	if err := c.release(swap.InitiatorAsset, swap.Participant, swap.InitiatorAmount); err != nil {
		return err
	}
	if err := c.release(swap.ParticipantAsset, swap.Initiator, swap.ParticipantAmount); err != nil {
		return err
	}
	swap.Status = SwapCompleted
	swap.Preimage = append([]byte(nil), preimage...)
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	c.emit(NewSwapCompletedEvent(swap))
	if err := c.settleOrder(order, swap); err != nil {
		return err
	}
	return nil
}

// RefundSwap returns each leg to the party that locked it once the swap
// timelock has passed. Anyone may call it.
func (e *Engine) RefundSwap(caller [20]byte, swapID uint64) (err error) {
	c, err := e.begin()
	if err != nil {
		return err
	}
	defer func() { err = c.finish(err) }()

	swap, err := e.loadSwap(swapID)
	if err != nil {
		return err
	}
	if swap.Status != SwapActive {
		return ErrInvalidSwapStatus
	}
	if e.now() < swap.Timelock {
		return ErrTimelockNotExpired
	}
	order, err := e.loadOrder(swap.OrderID)
	if err != nil {
		return err
	}
	if !order.Exists() {
		return fmt.Errorf("htlc: swap %d references missing order %d", swap.ID, swap.OrderID)
	}

	if err := c.release(swap.InitiatorAsset, swap.Initiator, swap.InitiatorAmount); err != nil {
		return err
	}
	if err := c.release(swap.ParticipantAsset, swap.Participant, swap.ParticipantAmount); err != nil {
		return err
	}
	swap.Status = SwapRefunded
	if err := e.state.SwapPut(swap); err != nil {
		return err
	}
	c.emit(NewSwapRefundedEvent(swap))
	return c.settleOrder(order, swap)
}

// CancelOrder returns the remaining sell amount to the maker and delists the
// order. It is rejected while any spawned swap is unresolved.
func (e *Engine) CancelOrder(caller [20]byte, orderID uint64) (err error) {
	c, err := e.begin()
	if err != nil {
		return err
	}
	defer func() { err = c.finish(err) }()

	order, err := e.loadOrder(orderID)
	if err != nil {
		return err
	}
	if !order.Exists() || caller != order.Maker {
		return ErrNotOrderMaker
	}
	if !order.Active {
		return ErrOrderNotActive
	}
	if len(order.ActiveSwaps) > 0 {
		return ErrHasActiveSwaps
	}

	if order.AmountToSell.Sign() > 0 {
		if err := c.release(order.SellAsset, order.Maker, order.AmountToSell); err != nil {
			return err
		}
	}
	order.Active = false
	order.Cancelled = true
	order.AmountToSell = big.NewInt(0)
	if err := e.state.OrderPut(order); err != nil {
		return err
	}
	if err := e.state.OrderBookRemove(PairKey{Sell: order.SellAsset, Buy: order.BuyAsset}, order.ID); err != nil {
		return err
	}
	c.emit(NewOrderCancelledEvent(order))
	return nil
}

// GetOrder returns a copy of the stored order.
func (e *Engine) GetOrder(id uint64) (*Order, error) {
	order, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if !order.Exists() {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetSwap returns a copy of the stored swap.
func (e *Engine) GetSwap(id uint64) (*Swap, error) {
	return e.loadSwap(id)
}

// SwapsOf lists the unresolved swaps spawned from an order.
func (e *Engine) SwapsOf(orderID uint64) ([]uint64, error) {
	order, err := e.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), order.ActiveSwaps...), nil
}

// GetOrderBook lists order ids offering sell for buy. Order is insertion
// order except where cancellations swapped entries.
func (e *Engine) GetOrderBook(sell, buy Asset) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.OrderBook(PairKey{Sell: sell, Buy: buy})
}

// GetUserOrders lists every order created by owner in creation order.
func (e *Engine) GetUserOrders(owner [20]byte) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.UserOrders(owner)
}

// Now exposes the engine clock to read-side callers.
func (e *Engine) Now() int64 { return e.now() }

func (e *Engine) loadOrder(id uint64) (*Order, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	order, ok, err := e.state.OrderGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Order{ID: id}, nil
	}
	return order, nil
}

func (e *Engine) loadSwap(id uint64) (*Swap, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	swap, ok, err := e.state.SwapGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || !swap.Exists() {
		return nil, ErrSwapNotFound
	}
	return swap, nil
}

// call tracks one mutating entry point: the guard, the state snapshot to
// revert to, compensations for ledger calls that already succeeded, and the
// events to publish once the call succeeds.
type call struct {
	e       *Engine
	unguard func()
	snap    int
	undo    []func() error
	pending []events.Event
}

func (e *Engine) begin() (*call, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	unguard, err := e.guard.acquire()
	if err != nil {
		return nil, err
	}
	return &call{e: e, unguard: unguard, snap: e.state.Snapshot()}, nil
}

func (c *call) finish(err error) error {
	defer c.releaseGuard()
	if err == nil {
		for _, evt := range c.pending {
			c.e.emitter.Emit(evt)
		}
		return nil
	}
	var undoErrs []error
	for i := len(c.undo) - 1; i >= 0; i-- {
		if undoErr := c.undo[i](); undoErr != nil {
			undoErrs = append(undoErrs, undoErr)
		}
	}
	c.e.state.RevertToSnapshot(c.snap)
	if len(undoErrs) > 0 {
		return errors.Join(append([]error{err}, undoErrs...)...)
	}
	return err
}

func (c *call) releaseGuard() {
	if c.unguard != nil {
		c.unguard()
	}
}

func (c *call) emit(evt events.Event) {
	c.pending = append(c.pending, evt)
}

func (c *call) lock(asset Asset, from [20]byte, amount, attached *big.Int) error {
	if attached == nil {
		attached = big.NewInt(0)
	}
	if err := c.e.ledger.Lock(asset, from, amount, attached); err != nil {
		return transferFailed(err)
	}
	amt := cloneBigInt(amount)
	c.undo = append(c.undo, func() error {
		return c.e.ledger.Release(asset, from, amt)
	})
	return nil
}

func (c *call) release(asset Asset, to [20]byte, amount *big.Int) error {
	if err := c.e.ledger.Release(asset, to, amount); err != nil {
		return transferFailed(err)
	}
	amt := cloneBigInt(amount)
	c.undo = append(c.undo, func() error {
		attached := big.NewInt(0)
		if asset.IsNative() {
			attached = amt
		}
		return c.e.ledger.Lock(asset, to, amt, attached)
	})
	return nil
}

// settleOrder removes a resolved swap from its order and deactivates the
// order once the remaining quantity can no longer satisfy a trade.
func (c *call) settleOrder(order *Order, swap *Swap) error {
	order.AmountToSell = new(big.Int).Sub(order.AmountToSell, swap.InitiatorAmount)
	order.Reserved = new(big.Int).Sub(order.Reserved, swap.InitiatorAmount)
	if order.AmountToSell.Sign() < 0 || order.Reserved.Sign() < 0 {
		return fmt.Errorf("htlc: order %d custody underflow", order.ID)
	}
	order.ActiveSwaps = removeID(order.ActiveSwaps, swap.ID)
	if order.Active && (order.AmountToSell.Sign() == 0 || order.AmountToSell.Cmp(order.MinTradeAmount) < 0) {
		if err := c.deactivate(order, ReasonExhausted); err != nil {
			return err
		}
	}
	return c.e.state.OrderPut(order)
}

// deactivate closes the order to new swaps and returns any value not held
// by an active swap to the maker.
func (c *call) deactivate(order *Order, reason string) error {
	order.Active = false
	surplus := order.Available()
	if surplus.Sign() > 0 {
		if err := c.release(order.SellAsset, order.Maker, surplus); err != nil {
			return err
		}
		order.AmountToSell = cloneBigInt(order.Reserved)
	}
	c.emit(NewOrderUpdatedEvent(order, reason, surplus))
	return nil
}

func removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
