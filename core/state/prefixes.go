package state

var (
	orderRecordPrefix = []byte("htlc/order/")
	swapRecordPrefix  = []byte("htlc/swap/")
	orderBookPrefix   = []byte("htlc/book/")
	userOrdersPrefix  = []byte("htlc/user/")
	balancePrefix     = []byte("balance:")
	supplyPrefix      = []byte("supply:")

	orderSeqKey    = []byte("htlc/order-seq")
	swapSeqKey     = []byte("htlc/swap-seq")
	bookPairsKey   = []byte("htlc/book-pairs")
	orderMakersKey = []byte("htlc/makers")
)

func prefixed(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
