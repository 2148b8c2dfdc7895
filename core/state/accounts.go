package state

import (
	"fmt"
	"math/big"
)

func balanceKey(asset, addr [20]byte) []byte {
	return prefixed(balancePrefix, asset[:], []byte{':'}, addr[:])
}

func supplyKey(asset [20]byte) []byte {
	return prefixed(supplyPrefix, asset[:])
}

// Balance returns the balance of asset held by addr.
func (m *Manager) Balance(asset, addr [20]byte) (*big.Int, error) {
	return m.loadBigInt(balanceKey(asset, addr))
}

// SetBalance stores the balance of asset held by addr.
func (m *Manager) SetBalance(asset, addr [20]byte, amount *big.Int) error {
	if amount != nil && amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	return m.writeBigInt(balanceKey(asset, addr), amount)
}

// Supply returns the total amount of asset ever minted.
func (m *Manager) Supply(asset [20]byte) (*big.Int, error) {
	return m.loadBigInt(supplyKey(asset))
}

// SetSupply stores the total amount of asset ever minted.
func (m *Manager) SetSupply(asset [20]byte, amount *big.Int) error {
	return m.writeBigInt(supplyKey(asset), amount)
}
