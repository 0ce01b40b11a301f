package stm

// IDSource allocates the ids NewTVar uses. *freshid.Source satisfies it;
// Atomic uses a package-wide default unless WithIDSource overrides it,
// which tests use to keep each test's TVar ids independent of global
// allocation order.
type IDSource interface {
	Next() uint64
}

// Option configures a single call to Atomic.
type Option func(*engineConfig)

type engineConfig struct {
	ids IDSource
}

// WithIDSource overrides the id source new TVars allocate from in every
// attempt of this Atomic call.
func WithIDSource(ids IDSource) Option {
	return func(c *engineConfig) { c.ids = ids }
}

// Atomic runs block to completion under STM semantics: block executes
// against a fresh Log; if the log validates at the end, it commits and
// Atomic returns block's result; if validation fails, the attempt is
// discarded and retried from scratch; if block calls Retry, Atomic waits
// (via y.Yield) until some TVar the failed attempt touched changes, then
// retries. This mirrors github.com/lukechampine/stm's Atomically,
// restructured around an explicit Log value and a Yielder instead of
// Atomically's direct map-on-*Var bookkeeping and sync.Cond wait.
func Atomic[T any](y Yielder, block func(*Tx) T, opts ...Option) T {
	cfg := engineConfig{ids: defaultIDs}
	for _, opt := range opts {
		opt(&cfg)
	}
	for {
		tx := &Tx{log: newLog(cfg.ids), y: y}
		v, retried := runAttempt(tx, block)
		if retried != nil {
			waitForChange(y, retried)
			continue
		}
		if !tx.log.isValid() {
			continue
		}
		tx.log.commit()
		return v
	}
}

// runAttempt executes block, catching a propagated Retry. It returns the
// log that was in flight when retry was called (not necessarily tx.log —
// see orElse, which may propagate its parent's log instead of its own
// working log) so the caller knows what to wait on.
func runAttempt[T any](tx *Tx, block func(*Tx) T) (v T, retried *Log) {
	defer func() {
		if r := recover(); r != nil {
			if rs, ok := r.(retrySignal); ok {
				retried = rs.log
				return
			}
			panic(r)
		}
	}()
	v = block(tx)
	return v, nil
}

// waitForChange yields repeatedly until some entry in log has changed.
func waitForChange(y Yielder, log *Log) {
	for !log.hasChanged() {
		y.Yield()
	}
}
