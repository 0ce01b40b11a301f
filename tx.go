package stm

// A Yielder is anything that can suspend the calling task and let other
// work run. *scheduler.Task satisfies this; the engine depends on nothing
// else from the scheduler package, so any cooperative scheduler offering
// Yield can host an Atomic block.
type Yielder interface {
	Yield()
}

// A Tx is the transaction context a running atomic/orElse block operates
// through: it carries the current attempt's Log and the Yielder used to
// wait out a retry. User blocks never construct a Tx themselves; Atomic
// and OrElse hand one in.
type Tx struct {
	log *Log
	y   Yielder
}

// NewTVar allocates a transactional variable inside the current attempt,
// seeded with init, and logs it as fresh.
func NewTVar(tx *Tx, init int) *TVar {
	return tx.log.newLocalTVar(init)
}

// ReadTVar returns t's value as of this point in the attempt.
func ReadTVar(tx *Tx, t *TVar) int {
	return tx.log.read(t)
}

// WriteTVar records v as the tentative value for t.
func WriteTVar(tx *Tx, t *TVar, v int) {
	tx.log.write(t, v)
}

// retrySignal is panicked by Retry to abandon the current attempt. Unlike
// github.com/lukechampine/stm's single Retry constant, propagation needs to
// carry which log was in flight when retry was called, because orElse's second
// alternative retrying must propagate the *parent* log (not either
// alternative's working log) to the enclosing atomic — see orelse.go.
type retrySignal struct {
	log *Log
}

// Retry abandons the current attempt. It never returns. It has no result
// value, so it is called as a statement and cannot stand in for an
// expression of another type.
func Retry(tx *Tx) {
	panic(retrySignal{log: tx.log})
}

// Read is a method synonym for ReadTVar, mirroring lukechampine/stm's
// Tx.Get.
func (tx *Tx) Read(t *TVar) int {
	return ReadTVar(tx, t)
}

// Write is a method synonym for WriteTVar, mirroring lukechampine/stm's
// Tx.Set.
func (tx *Tx) Write(t *TVar, v int) {
	WriteTVar(tx, t, v)
}

// Retry is a method synonym for Retry(tx), mirroring lukechampine/stm's
// Tx.Retry.
func (tx *Tx) Retry() {
	Retry(tx)
}

// Assert retries unless p holds, mirroring lukechampine/stm's Tx.Assert.
func (tx *Tx) Assert(p bool) {
	if !p {
		tx.Retry()
	}
}

// NewTVar is a method synonym for NewTVar(tx, init).
func (tx *Tx) NewTVar(init int) *TVar {
	return NewTVar(tx, init)
}
