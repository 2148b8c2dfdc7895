package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"hashswap/native/htlc"
)

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func orderKey(id uint64) []byte { return prefixed(orderRecordPrefix, idBytes(id)) }

func swapKey(id uint64) []byte { return prefixed(swapRecordPrefix, idBytes(id)) }

func orderBookKey(pair htlc.PairKey) []byte {
	return prefixed(orderBookPrefix, pair.Sell[:], pair.Buy[:])
}

func userOrdersKey(owner [20]byte) []byte {
	return prefixed(userOrdersPrefix, owner[:])
}

type storedOrder struct {
	ID                  uint64
	Maker               [20]byte
	SellAsset           [20]byte
	BuyAsset            [20]byte
	AmountToSell        *big.Int
	InitialAmountToSell *big.Int
	AmountToBuy         *big.Int
	MinTradeAmount      *big.Int
	MaxTradeAmount      *big.Int
	Reserved            *big.Int
	HashLock            [32]byte
	Timelock            *big.Int
	CreatedAt           *big.Int
	PartialFillAllowed  bool
	Active              bool
	Cancelled           bool
	ActiveSwaps         []uint64
}

func newStoredOrder(o *htlc.Order) *storedOrder {
	c := o.Clone()
	return &storedOrder{
		ID:                  c.ID,
		Maker:               c.Maker,
		SellAsset:           c.SellAsset,
		BuyAsset:            c.BuyAsset,
		AmountToSell:        c.AmountToSell,
		InitialAmountToSell: c.InitialAmountToSell,
		AmountToBuy:         c.AmountToBuy,
		MinTradeAmount:      c.MinTradeAmount,
		MaxTradeAmount:      c.MaxTradeAmount,
		Reserved:            c.Reserved,
		HashLock:            c.HashLock,
		Timelock:            big.NewInt(c.Timelock),
		CreatedAt:           big.NewInt(c.CreatedAt),
		PartialFillAllowed:  c.PartialFillAllowed,
		Active:              c.Active,
		Cancelled:           c.Cancelled,
		ActiveSwaps:         c.ActiveSwaps,
	}
}

func (s *storedOrder) toOrder() *htlc.Order {
	out := &htlc.Order{
		ID:                  s.ID,
		Maker:               s.Maker,
		SellAsset:           s.SellAsset,
		BuyAsset:            s.BuyAsset,
		AmountToSell:        s.AmountToSell,
		InitialAmountToSell: s.InitialAmountToSell,
		AmountToBuy:         s.AmountToBuy,
		MinTradeAmount:      s.MinTradeAmount,
		MaxTradeAmount:      s.MaxTradeAmount,
		Reserved:            s.Reserved,
		HashLock:            s.HashLock,
		PartialFillAllowed:  s.PartialFillAllowed,
		Active:              s.Active,
		Cancelled:           s.Cancelled,
	}
	if s.Timelock != nil {
		out.Timelock = s.Timelock.Int64()
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	if len(s.ActiveSwaps) > 0 {
		out.ActiveSwaps = s.ActiveSwaps
	}
	return out.Clone()
}

type storedSwap struct {
	ID                uint64
	OrderID           uint64
	Initiator         [20]byte
	Participant       [20]byte
	InitiatorAsset    [20]byte
	InitiatorAmount   *big.Int
	ParticipantAsset  [20]byte
	ParticipantAmount *big.Int
	HashLock          [32]byte
	Timelock          *big.Int
	CreatedAt         *big.Int
	Status            uint8
	Preimage          []byte
}

func newStoredSwap(s *htlc.Swap) *storedSwap {
	c := s.Clone()
	return &storedSwap{
		ID:                c.ID,
		OrderID:           c.OrderID,
		Initiator:         c.Initiator,
		Participant:       c.Participant,
		InitiatorAsset:    c.InitiatorAsset,
		InitiatorAmount:   c.InitiatorAmount,
		ParticipantAsset:  c.ParticipantAsset,
		ParticipantAmount: c.ParticipantAmount,
		HashLock:          c.HashLock,
		Timelock:          big.NewInt(c.Timelock),
		CreatedAt:         big.NewInt(c.CreatedAt),
		Status:            uint8(c.Status),
		Preimage:          c.Preimage,
	}
}

func (s *storedSwap) toSwap() (*htlc.Swap, error) {
	out := &htlc.Swap{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Initiator:         s.Initiator,
		Participant:       s.Participant,
		InitiatorAsset:    s.InitiatorAsset,
		InitiatorAmount:   s.InitiatorAmount,
		ParticipantAsset:  s.ParticipantAsset,
		ParticipantAmount: s.ParticipantAmount,
		HashLock:          s.HashLock,
		Status:            htlc.SwapStatus(s.Status),
	}
	if s.Timelock != nil {
		out.Timelock = s.Timelock.Int64()
	}
	if s.CreatedAt != nil {
		out.CreatedAt = s.CreatedAt.Int64()
	}
	if len(s.Preimage) > 0 {
		out.Preimage = s.Preimage
	}
	if !out.Status.Valid() {
		return nil, fmt.Errorf("htlc: swap %d has invalid stored status %d", s.ID, s.Status)
	}
	return out.Clone(), nil
}

// OrderGet loads the order with the given id.
func (m *Manager) OrderGet(id uint64) (*htlc.Order, bool, error) {
	var rec storedOrder
	ok, err := m.KVGet(orderKey(id), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec.toOrder(), true, nil
}

// OrderPut persists the order.
func (m *Manager) OrderPut(order *htlc.Order) error {
	if order == nil {
		return fmt.Errorf("htlc: nil order")
	}
	return m.KVPut(orderKey(order.ID), newStoredOrder(order))
}

// SwapGet loads the swap with the given id.
func (m *Manager) SwapGet(id uint64) (*htlc.Swap, bool, error) {
	var rec storedSwap
	ok, err := m.KVGet(swapKey(id), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	swap, err := rec.toSwap()
	if err != nil {
		return nil, false, err
	}
	return swap, true, nil
}

// SwapPut persists the swap.
func (m *Manager) SwapPut(swap *htlc.Swap) error {
	if swap == nil {
		return fmt.Errorf("htlc: nil swap")
	}
	if !swap.Status.Valid() {
		return fmt.Errorf("htlc: refusing to store swap %d with status %s", swap.ID, swap.Status)
	}
	return m.KVPut(swapKey(swap.ID), newStoredSwap(swap))
}

// NextOrderID allocates the next order id. Ids start at 1.
func (m *Manager) NextOrderID() (uint64, error) { return m.nextSeq(orderSeqKey) }

// NextSwapID allocates the next swap id. Ids start at 1.
func (m *Manager) NextSwapID() (uint64, error) { return m.nextSeq(swapSeqKey) }

// OrderCount returns the number of orders ever created.
func (m *Manager) OrderCount() (uint64, error) { return m.seq(orderSeqKey) }

// SwapCount returns the number of swaps ever initiated.
func (m *Manager) SwapCount() (uint64, error) { return m.seq(swapSeqKey) }

func (m *Manager) seq(key []byte) (uint64, error) {
	current, err := m.loadBigInt(key)
	if err != nil {
		return 0, err
	}
	if !current.IsUint64() {
		return 0, fmt.Errorf("state: sequence %s out of range", key)
	}
	return current.Uint64(), nil
}

func (m *Manager) nextSeq(key []byte) (uint64, error) {
	current, err := m.seq(key)
	if err != nil {
		return 0, err
	}
	if current == ^uint64(0) {
		return 0, fmt.Errorf("state: sequence %s exhausted", key)
	}
	next := current + 1
	if err := m.writeBigInt(key, new(big.Int).SetUint64(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// OrderBook lists the order ids indexed under pair.
func (m *Manager) OrderBook(pair htlc.PairKey) ([]uint64, error) {
	var ids []uint64
	if err := m.KVGetList(orderBookKey(pair), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// OrderBookAppend adds id to the end of the pair's list.
func (m *Manager) OrderBookAppend(pair htlc.PairKey, id uint64) error {
	ids, err := m.OrderBook(pair)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if err := m.registerPair(pair); err != nil {
			return err
		}
	}
	return m.KVPut(orderBookKey(pair), append(ids, id))
}

// OrderBookRemove deletes id from the pair's list by moving the last entry
// into its slot.
func (m *Manager) OrderBookRemove(pair htlc.PairKey, id uint64) error {
	ids, err := m.OrderBook(pair)
	if err != nil {
		return err
	}
	before := len(ids)
	ids = htlc.SwapRemove(ids, id)
	if len(ids) == before {
		return fmt.Errorf("htlc: order %d missing from book %s/%s", id, pair.Sell, pair.Buy)
	}
	return m.KVPut(orderBookKey(pair), ids)
}

// UserOrders lists every order id created by owner.
func (m *Manager) UserOrders(owner [20]byte) ([]uint64, error) {
	var ids []uint64
	if err := m.KVGetList(userOrdersKey(owner), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// UserOrdersAppend records id against owner. Entries are never removed.
func (m *Manager) UserOrdersAppend(owner [20]byte, id uint64) error {
	ids, err := m.UserOrders(owner)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if err := m.registerMaker(owner); err != nil {
			return err
		}
	}
	return m.KVPut(userOrdersKey(owner), append(ids, id))
}

// OrderBookPairs lists every pair that has ever held an order, in first-use
// order.
func (m *Manager) OrderBookPairs() ([]htlc.PairKey, error) {
	var raw [][40]byte
	if err := m.KVGetList(bookPairsKey, &raw); err != nil {
		return nil, err
	}
	out := make([]htlc.PairKey, 0, len(raw))
	for _, entry := range raw {
		var pair htlc.PairKey
		copy(pair.Sell[:], entry[:20])
		copy(pair.Buy[:], entry[20:])
		out = append(out, pair)
	}
	return out, nil
}

// Makers lists every address that has created an order.
func (m *Manager) Makers() ([][20]byte, error) {
	var makers [][20]byte
	if err := m.KVGetList(orderMakersKey, &makers); err != nil {
		return nil, err
	}
	return makers, nil
}

func (m *Manager) registerPair(pair htlc.PairKey) error {
	var raw [][40]byte
	if err := m.KVGetList(bookPairsKey, &raw); err != nil {
		return err
	}
	var entry [40]byte
	copy(entry[:20], pair.Sell[:])
	copy(entry[20:], pair.Buy[:])
	for _, existing := range raw {
		if existing == entry {
			return nil
		}
	}
	return m.KVPut(bookPairsKey, append(raw, entry))
}

func (m *Manager) registerMaker(owner [20]byte) error {
	makers, err := m.Makers()
	if err != nil {
		return err
	}
	for _, existing := range makers {
		if existing == owner {
			return nil
		}
	}
	return m.KVPut(orderMakersKey, append(makers, owner))
}
