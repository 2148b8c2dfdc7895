package htlc

import "sync/atomic"

// callGuard rejects re-entry into the engine while a mutating call is in
// flight, e.g. a ledger transfer hook calling back into the engine.
type callGuard struct {
	held atomic.Bool
}

// acquire claims the guard. The returned release func must run on every exit
// path; it is idempotent.
func (g *callGuard) acquire() (release func(), err error) {
	if !g.held.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.held.Store(false)
		}
	}, nil
}
