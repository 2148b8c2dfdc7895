package events

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(b byte) [20]byte {
	var out [20]byte
	copy(out[:], bytes.Repeat([]byte{b}, 20))
	return out
}

func TestOrderCreatedRoundTrip(t *testing.T) {
	created := OrderCreated{
		OrderID:      7,
		Maker:        fill(0xAB),
		SellAsset:    [20]byte{},
		BuyAsset:     fill(0x01),
		AmountToSell: big.NewInt(100),
		AmountToBuy:  big.NewInt(50),
	}
	evt := created.Event()
	require.Equal(t, TypeOrderCreated, evt.Type)
	require.Equal(t, "0x0000000000000000000000000000000000000000", evt.Attr("sellAsset"))
	require.Equal(t, "100", evt.Attr("amountToSell"))

	parsed, err := ParseOrderCreated(evt)
	require.NoError(t, err)
	require.Equal(t, created.OrderID, parsed.OrderID)
	require.Equal(t, created.Maker, parsed.Maker)
	require.Equal(t, created.BuyAsset, parsed.BuyAsset)
	require.Zero(t, parsed.AmountToSell.Cmp(created.AmountToSell))
	require.Zero(t, parsed.AmountToBuy.Cmp(created.AmountToBuy))
}

func TestParseRejectsWrongType(t *testing.T) {
	_, err := ParseOrderCreated(OrderCancelled{OrderID: 1}.Event())
	require.Error(t, err)

	evt := OrderCancelled{OrderID: 3}.Event()
	parsed, err := ParseOrderCancelled(evt)
	require.NoError(t, err)
	require.Equal(t, uint64(3), parsed.OrderID)

	evt.Attributes["orderId"] = "x"
	_, err = ParseOrderCancelled(evt)
	require.Error(t, err)
}

func TestOrderUpdatedOptionalAttributes(t *testing.T) {
	evt := OrderUpdated{OrderID: 2}.Event()
	require.NotContains(t, evt.Attributes, "reason")
	require.NotContains(t, evt.Attributes, "released")

	evt = OrderUpdated{OrderID: 2, Reason: "deactivated", Released: big.NewInt(9)}.Event()
	require.Equal(t, "deactivated", evt.Attr("reason"))
	require.Equal(t, "9", evt.Attr("released"))
}

func TestBufferDrainsInOrder(t *testing.T) {
	buf := &Buffer{}
	buf.Emit(SwapCompleted{SwapID: 1})
	buf.Emit(SwapRefunded{SwapID: 2})
	buf.Emit(nil)

	drained := buf.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, TypeSwapCompleted, drained[0].EventType())
	require.Equal(t, TypeSwapRefunded, drained[1].EventType())
	require.Empty(t, buf.Drain())

	buf.Emit(SwapCompleted{SwapID: 3})
	buf.Reset()
	require.Empty(t, buf.Drain())
}

func TestFanoutForwardsToEveryEmitter(t *testing.T) {
	a, b := &Buffer{}, &Buffer{}
	Fanout{a, nil, b}.Emit(OrderCancelled{OrderID: 4})
	require.Len(t, a.Drain(), 1)
	require.Len(t, b.Drain(), 1)
}
