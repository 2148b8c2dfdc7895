package bank

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrValueMismatch       = errors.New("bank: attached value must equal locked amount")
	ErrUnexpectedValue     = errors.New("bank: token lock must not attach native value")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrVaultNotConfigured  = errors.New("bank: vault address not configured")
)

type ledgerState interface {
	Balance(asset, addr [20]byte) (*big.Int, error)
	SetBalance(asset, addr [20]byte, amount *big.Int) error
	Supply(asset [20]byte) (*big.Int, error)
	SetSupply(asset [20]byte, amount *big.Int) error
}

// Ledger keeps per-asset account balances and holds swap custody in a vault
// account. The zero asset is native value.
type Ledger struct {
	state ledgerState
	vault [20]byte
}

// NewLedger creates a ledger whose custody is held by vault.
func NewLedger(state ledgerState, vault [20]byte) *Ledger {
	return &Ledger{state: state, vault: vault}
}

// Vault returns the custody account.
func (l *Ledger) Vault() [20]byte { return l.vault }

// Lock moves amount of asset from owner into the vault. Native locks require
// attached to equal amount; token locks are pull transfers and must not
// attach native value.
func (l *Ledger) Lock(asset [20]byte, from [20]byte, amount, attached *big.Int) error {
	if attached == nil {
		attached = big.NewInt(0)
	}
	if asset == ([20]byte{}) {
		if amount == nil || attached.Cmp(amount) != 0 {
			return ErrValueMismatch
		}
	} else if attached.Sign() != 0 {
		return ErrUnexpectedValue
	}
	return l.Transfer(asset, from, l.vault, amount)
}

// Release moves amount of asset from the vault to the recipient.
func (l *Ledger) Release(asset [20]byte, to [20]byte, amount *big.Int) error {
	return l.Transfer(asset, l.vault, to, amount)
}

// Transfer moves amount of asset between two accounts.
func (l *Ledger) Transfer(asset, from, to [20]byte, amount *big.Int) error {
	if err := l.check(amount); err != nil {
		return err
	}
	fromBal, err := l.state.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := l.state.Balance(asset, to)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(asset, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.state.SetBalance(asset, to, new(big.Int).Add(toBal, amount))
}

// Mint credits amount of asset to addr and grows the asset supply. It is
// used to seed balances from genesis.
func (l *Ledger) Mint(asset, to [20]byte, amount *big.Int) error {
	if err := l.check(amount); err != nil {
		return err
	}
	bal, err := l.state.Balance(asset, to)
	if err != nil {
		return err
	}
	supply, err := l.state.Supply(asset)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(asset, to, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	return l.state.SetSupply(asset, new(big.Int).Add(supply, amount))
}

// Balance returns the balance of asset held by addr.
func (l *Ledger) Balance(asset, addr [20]byte) (*big.Int, error) {
	return l.state.Balance(asset, addr)
}

// Custody returns the balance of asset held by the vault.
func (l *Ledger) Custody(asset [20]byte) (*big.Int, error) {
	return l.state.Balance(asset, l.vault)
}

func (l *Ledger) check(amount *big.Int) error {
	if l == nil || l.state == nil {
		return fmt.Errorf("bank: state not configured")
	}
	if l.vault == ([20]byte{}) {
		return ErrVaultNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
