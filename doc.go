/*
Package stm provides Software Transactional Memory for cooperative,
single-threaded tasks. It is a reworking of the ideas in
github.com/lukechampine/stm for a world where "concurrency" means tasks
that voluntarily yield to a scheduler (see package scheduler) rather than
goroutines racing under a global lock, and where transactional cells hold
plain ints instead of interface{}.

Create a TVar inside a transaction, and read or write it through the *Tx
an atomic block receives:

	scheduler.New().Run(func(task *scheduler.Task) {
		var x *stm.TVar
		stm.Atomic(task, func(tx *stm.Tx) struct{} {
			x = tx.NewTVar(3)
			return struct{}{}
		})

		cur := stm.Atomic(task, func(tx *stm.Tx) int {
			cur := tx.Read(x)
			tx.Write(x, cur-1)
			return cur
		})
		_ = cur
	})

At any point inside an atomic block, Retry abandons the attempt. Atomic
will not retry the block until some TVar the failed attempt read has
changed — which, since the only task that could change it is a different
one entirely, means Atomic yields to the scheduler in a loop until that
happens:

	stm.Atomic(task, func(tx *stm.Tx) struct{} {
		cur := tx.Read(x)
		tx.Assert(cur != 0)
		tx.Write(x, cur-1)
		return struct{}{}
	})

OrElse composes two alternatives, trying the second only if the first
retries:

	dec := func(v *stm.TVar) func(*stm.Tx) struct{} {
		return func(tx *stm.Tx) struct{} {
			cur := tx.Read(v)
			tx.Assert(cur != 0)
			tx.Write(v, cur-1)
			return struct{}{}
		}
	}
	stm.Atomic(task, func(tx *stm.Tx) struct{} {
		return stm.OrElse(tx, dec(x), dec(y))
	})

As with github.com/lukechampine/stm, transactions must be idempotent: an attempt
may run more than once before it commits, so side effects that aren't
TVar reads/writes (printing, I/O, mutating a pointer the TVars don't own)
can execute more than once. Build up a list of effects inside the
transaction and perform them after Atomic returns instead.
*/
package stm
