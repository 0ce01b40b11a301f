package stm

import "github.com/retrylab/stm/freshid"

// defaultIDs backs NewTVar when a transaction's engine was not given an
// explicit id source. Kept as a package-level default the way
// github.com/lukechampine/stm keeps its globalLock/globalCond at package
// scope.
var defaultIDs = freshid.NewSource()

// cell is the shared, mutable storage a TVar points at. It outlives every
// individual transaction attempt and is mutated only during a successful
// commit, which is non-yielding — so under the cooperative scheduler this
// package targets, no lock is needed: only one goroutine is ever
// unblocked at a time, and every handoff between goroutines crosses a
// channel operation, which is a Go memory-model synchronization point.
type cell struct {
	value int
}

// A TVar is a transactional variable: a shared integer cell identified by
// a process-wide unique id. Two TVars are equal iff their ids are equal;
// comparing the *TVar pointers directly also works for values obtained
// from this package, but id equality is the contract this package defines.
type TVar struct {
	id   uint64
	cell *cell
}

// ID returns the TVar's identity.
func (t *TVar) ID() uint64 {
	return t.id
}
