package core

import (
	"fmt"
	"math/big"
)

var genesisAppliedKey = []byte("genesis/applied")

// GenesisAlloc seeds an account balance when the node first starts.
type GenesisAlloc struct {
	Asset   [20]byte
	Address [20]byte
	Amount  *big.Int
}

// ApplyGenesis mints the allocations once. Later calls are no-ops, so the
// same configuration can be passed on every start.
func (n *Node) ApplyGenesis(allocs []GenesisAlloc) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var applied bool
	found, err := n.state.KVGet(genesisAppliedKey, &applied)
	if err != nil {
		return false, err
	}
	if found && applied {
		return false, nil
	}
	for i, alloc := range allocs {
		if err := n.ledger.Mint(alloc.Asset, alloc.Address, alloc.Amount); err != nil {
			n.state.Discard()
			return false, fmt.Errorf("core: genesis allocation %d: %w", i, err)
		}
	}
	if err := n.state.KVPut(genesisAppliedKey, true); err != nil {
		n.state.Discard()
		return false, err
	}
	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		return false, err
	}
	n.logger.Info("genesis applied", "allocations", len(allocs))
	return true, nil
}
