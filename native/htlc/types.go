package htlc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Asset identifies a lockable asset. The zero value is the native-value
// sentinel; every other value names a token.
type Asset [20]byte

// NativeAsset denotes native value attached to a call.
var NativeAsset = Asset{}

// IsNative reports whether the asset is the native-value sentinel.
func (a Asset) IsNative() bool { return a == NativeAsset }

func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return common.Address(a).Hex()
}

// SwapStatus enumerates the lifecycle of a Swap. SwapInvalid marks a swap
// that does not exist. SwapExpired is never stored; see Swap.EffectiveStatus.
type SwapStatus uint8

const (
	SwapInvalid SwapStatus = iota
	SwapActive
	SwapCompleted
	SwapRefunded
	SwapExpired
)

// Valid reports whether the status is one the engine may persist.
func (s SwapStatus) Valid() bool {
	switch s {
	case SwapActive, SwapCompleted, SwapRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s SwapStatus) Terminal() bool {
	return s == SwapCompleted || s == SwapRefunded
}

func (s SwapStatus) String() string {
	switch s {
	case SwapInvalid:
		return "invalid"
	case SwapActive:
		return "active"
	case SwapCompleted:
		return "completed"
	case SwapRefunded:
		return "refunded"
	case SwapExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Order is a standing offer to sell AmountToSell of SellAsset for BuyAsset at
// the fixed rate AmountToBuy / InitialAmountToSell, filled by one or more
// swaps.
type Order struct {
	ID                  uint64
	Maker               [20]byte
	SellAsset           Asset
	BuyAsset            Asset
	AmountToSell        *big.Int // remaining, decreases as swaps resolve
	InitialAmountToSell *big.Int
	AmountToBuy         *big.Int
	MinTradeAmount      *big.Int
	MaxTradeAmount      *big.Int
	Reserved            *big.Int // sum of InitiatorAmount over active swaps
	HashLock            [32]byte
	Timelock            int64
	CreatedAt           int64
	PartialFillAllowed  bool
	Active              bool
	Cancelled           bool
	ActiveSwaps         []uint64
}

// Exists reports whether the order has been created.
func (o *Order) Exists() bool {
	return o != nil && o.Maker != ([20]byte{})
}

// Available returns the remaining quantity not yet committed to a swap.
func (o *Order) Available() *big.Int {
	if o == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Sub(bigOrZero(o.AmountToSell), bigOrZero(o.Reserved))
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// Clone returns a deep copy of the order so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.AmountToSell = cloneBigInt(o.AmountToSell)
	clone.InitialAmountToSell = cloneBigInt(o.InitialAmountToSell)
	clone.AmountToBuy = cloneBigInt(o.AmountToBuy)
	clone.MinTradeAmount = cloneBigInt(o.MinTradeAmount)
	clone.MaxTradeAmount = cloneBigInt(o.MaxTradeAmount)
	clone.Reserved = cloneBigInt(o.Reserved)
	clone.ActiveSwaps = append([]uint64(nil), o.ActiveSwaps...)
	return &clone
}

// Swap is one hashlock-secured exchange spawned from an order. The initiator
// is the order maker and must reveal the preimage; the participant is the
// taker that locked the counter-asset.
type Swap struct {
	ID                uint64
	OrderID           uint64
	Initiator         [20]byte
	Participant       [20]byte
	InitiatorAsset    Asset
	InitiatorAmount   *big.Int
	ParticipantAsset  Asset
	ParticipantAmount *big.Int
	HashLock          [32]byte
	Timelock          int64
	CreatedAt         int64
	Status            SwapStatus
	Preimage          []byte
}

// Exists reports whether the swap has been initiated.
func (s *Swap) Exists() bool {
	return s != nil && s.Status != SwapInvalid
}

// EffectiveStatus reports SwapExpired for an active swap whose timelock has
// passed. The stored status is unchanged until RefundSwap runs.
func (s *Swap) EffectiveStatus(now int64) SwapStatus {
	if s == nil {
		return SwapInvalid
	}
	if s.Status == SwapActive && now >= s.Timelock {
		return SwapExpired
	}
	return s.Status
}

// Clone returns a deep copy of the swap.
func (s *Swap) Clone() *Swap {
	if s == nil {
		return nil
	}
	clone := *s
	clone.InitiatorAmount = cloneBigInt(s.InitiatorAmount)
	clone.ParticipantAmount = cloneBigInt(s.ParticipantAmount)
	clone.Preimage = append([]byte(nil), s.Preimage...)
	return &clone
}

// HashSecret derives the hashlock committing to secret.
func HashSecret(secret []byte) [32]byte {
	return ethcrypto.Keccak256Hash(secret)
}

// PairKey identifies an order book entry by exchange direction.
type PairKey struct {
	Sell Asset
	Buy  Asset
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
