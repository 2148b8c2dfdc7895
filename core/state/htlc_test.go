package state

import (
	"math/big"
	"reflect"
	"testing"

	"hashswap/native/htlc"
)

func sampleOrder(id uint64) *htlc.Order {
	return &htlc.Order{
		ID:                  id,
		Maker:               [20]byte{0xaa},
		SellAsset:           htlc.Asset{0x01},
		BuyAsset:            htlc.NativeAsset,
		AmountToSell:        big.NewInt(60),
		InitialAmountToSell: big.NewInt(100),
		AmountToBuy:         big.NewInt(50),
		MinTradeAmount:      big.NewInt(10),
		MaxTradeAmount:      big.NewInt(50),
		Reserved:            big.NewInt(20),
		HashLock:            htlc.HashSecret([]byte("abc")),
		Timelock:            2000,
		CreatedAt:           1000,
		PartialFillAllowed:  true,
		Active:              true,
		ActiveSwaps:         []uint64{3, 7},
	}
}

func TestOrderRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	order := sampleOrder(1)
	if err := mgr.OrderPut(order); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := mgr.OrderGet(1)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(order, loaded) {
		t.Fatalf("round trip mismatch:\nwant %#v\ngot  %#v", order, loaded)
	}

	if _, ok, err := mgr.OrderGet(2); err != nil || ok {
		t.Fatalf("expected missing order, ok=%v err=%v", ok, err)
	}
}

func TestSwapRoundTripAndStatusValidation(t *testing.T) {
	mgr, _ := newTestManager(t)
	swap := &htlc.Swap{
		ID:                4,
		OrderID:           1,
		Initiator:         [20]byte{0xaa},
		Participant:       [20]byte{0xbb},
		InitiatorAsset:    htlc.Asset{0x01},
		InitiatorAmount:   big.NewInt(40),
		ParticipantAsset:  htlc.NativeAsset,
		ParticipantAmount: big.NewInt(20),
		HashLock:          htlc.HashSecret([]byte("abc")),
		Timelock:          1500,
		CreatedAt:         1000,
		Status:            htlc.SwapCompleted,
		Preimage:          []byte("abc"),
	}
	if err := mgr.SwapPut(swap); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok, err := mgr.SwapGet(4)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(swap, loaded) {
		t.Fatalf("round trip mismatch:\nwant %#v\ngot  %#v", swap, loaded)
	}

	swap.Status = htlc.SwapExpired
	if err := mgr.SwapPut(swap); err == nil {
		t.Fatalf("expected derived status to be rejected")
	}
}

func TestSequencesStartAtOne(t *testing.T) {
	mgr, _ := newTestManager(t)
	for want := uint64(1); want <= 3; want++ {
		got, err := mgr.NextOrderID()
		if err != nil {
			t.Fatalf("next order id: %v", err)
		}
		if got != want {
			t.Fatalf("expected order id %d, got %d", want, got)
		}
	}
	swapID, err := mgr.NextSwapID()
	if err != nil || swapID != 1 {
		t.Fatalf("expected first swap id 1, got %d (%v)", swapID, err)
	}
	count, _ := mgr.OrderCount()
	if count != 3 {
		t.Fatalf("expected order count 3, got %d", count)
	}
}

func TestOrderBookSwapRemove(t *testing.T) {
	mgr, _ := newTestManager(t)
	pair := htlc.PairKey{Sell: htlc.Asset{0x01}, Buy: htlc.NativeAsset}
	for _, id := range []uint64{1, 2, 3, 4} {
		if err := mgr.OrderBookAppend(pair, id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := mgr.OrderBookRemove(pair, 2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ids, err := mgr.OrderBook(pair)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint64{1, 4, 3}) {
		t.Fatalf("unexpected book order: %v", ids)
	}
	if err := mgr.OrderBookRemove(pair, 2); err == nil {
		t.Fatalf("expected error removing absent id")
	}

	pairs, err := mgr.OrderBookPairs()
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != pair {
		t.Fatalf("unexpected pair registry: %v", pairs)
	}
}

func TestUserOrdersAppendOnly(t *testing.T) {
	mgr, _ := newTestManager(t)
	owner := [20]byte{0xaa}
	for _, id := range []uint64{5, 9} {
		if err := mgr.UserOrdersAppend(owner, id); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	ids, err := mgr.UserOrders(owner)
	if err != nil {
		t.Fatalf("user orders: %v", err)
	}
	if !reflect.DeepEqual(ids, []uint64{5, 9}) {
		t.Fatalf("unexpected user orders: %v", ids)
	}
	makers, err := mgr.Makers()
	if err != nil {
		t.Fatalf("makers: %v", err)
	}
	if len(makers) != 1 || makers[0] != owner {
		t.Fatalf("unexpected makers: %v", makers)
	}
}
