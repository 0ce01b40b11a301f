package stm

// OrElse composes two alternatives. m1 runs first against a working log
// copied from tx's current log; if m1 completes without retrying, its
// working log is installed as tx's new log and its value is returned. If
// m1 retries, its working log is discarded and m2 runs the same way
// against a fresh copy of tx's *original* log — so writes m1 made before
// retrying are never visible to m2 or to the parent. If m2 also retries,
// OrElse propagates the retry to the enclosing atomic, which will wait on
// tx's log as it stood before OrElse was entered, rather than on the union
// of both alternatives' logs.
//
// Neither alternative is validated or committed here: that is deferred to
// the enclosing Atomic's own validate/commit step, once its log has been
// replaced by whichever alternative's working log won.
func OrElse[T any](tx *Tx, m1, m2 func(*Tx) T) T {
	parent := tx.log

	// tx1/tx2 are handed to m1/m2 as their own *Tx, so a nested orElse
	// inside m1 or m2 that succeeds can reassign tx1.log/tx2.log to its
	// own winning working log. Reading that back after the call (rather
	// than the clone() snapshot taken before the call) is what makes
	// nested orElse compose: a successful inner orElse's writes must
	// reach the outer orElse's result, not just the log it started with.
	tx1 := &Tx{log: parent.clone(), y: tx.y}
	v1, retried1 := runAttempt(tx1, m1)
	if retried1 == nil {
		tx.log = tx1.log
		return v1
	}

	tx2 := &Tx{log: parent.clone(), y: tx.y}
	v2, retried2 := runAttempt(tx2, m2)
	if retried2 == nil {
		tx.log = tx2.log
		return v2
	}

	// Both alternatives retried: propagate retry to the enclosing atomic,
	// waiting on the pre-OrElse parent log rather than either alternative's
	// working log.
	panic(retrySignal{log: parent})
}

// Select folds OrElse over fns left to right: the first alternative that
// does not retry wins. An empty Select always retries (mirrors
// github.com/lukechampine/stm's Select, whose empty case calls tx.Retry
// directly) — a direct generalization of that package's own Select/Compose
// helpers.
func Select[T any](tx *Tx, fns ...func(*Tx) T) T {
	switch len(fns) {
	case 0:
		Retry(tx)
		panic("unreachable")
	case 1:
		return fns[0](tx)
	default:
		return OrElse(tx, fns[0], func(tx *Tx) T {
			return Select(tx, fns[1:]...)
		})
	}
}
