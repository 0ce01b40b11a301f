package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/retrylab/stm"
	"github.com/retrylab/stm/scheduler"
)

// scenario is one named, runnable check. It returns nil on success or an
// error describing what was expected vs observed.
type scenario struct {
	name string
	run  func() error
}

// suite groups a set of scenarios under one of the two suites the CLI
// exposes: "orElse" and "Retry".
type suite struct {
	name      string
	scenarios []scenario
}

// sched is a shorthand every scenario uses to build its scheduler with the
// run's chosen trace logger attached, so --verbose reaches every scheduler
// turn a scenario spawns, not just the CLI's own pass/fail lines.
func sched(log logrus.FieldLogger) *scheduler.Scheduler {
	return scheduler.New(scheduler.WithLogger(log))
}

func expectEqual(label string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: got %d, want %d", label, got, want)
	}
	return nil
}

// getR retries if r holds less than a, else subtracts a and returns the
// pre-subtraction value. putR unconditionally adds amt to r.
func getR(tx *stm.Tx, r *stm.TVar, a int) int {
	cur := tx.Read(r)
	tx.Assert(cur >= a)
	tx.Write(r, cur-a)
	return cur
}

func putR(tx *stm.Tx, r *stm.TVar, amt int) {
	tx.Write(r, tx.Read(r)+amt)
}

// seedAccounts opens two TVars inside their own atomic block and returns
// them, on the same task the caller is running on.
func seedAccounts(task *scheduler.Task, r1Init, r2Init int) (r1, r2 *stm.TVar) {
	stm.Atomic(task, func(tx *stm.Tx) struct{} {
		r1 = tx.NewTVar(r1Init)
		r2 = tx.NewTVar(r2Init)
		return struct{}{}
	})
	return
}

func orElseSuite(log logrus.FieldLogger) suite {
	return suite{
		name: "orElse",
		scenarios: []scenario{
			{
				name: "first retries, second succeeds",
				run: func() error {
					var r1f, r2f int
					sched(log).Run(func(task *scheduler.Task) {
						r1, r2 := seedAccounts(task, 8, 13)
						stm.Atomic(task, func(tx *stm.Tx) struct{} {
							stm.OrElse(tx,
								func(tx *stm.Tx) struct{} { getR(tx, r1, 10); return struct{}{} },
								func(tx *stm.Tx) struct{} { getR(tx, r2, 10); return struct{}{} },
							)
							return struct{}{}
						})
						r1f, r2f = readFinal(task, r1, r2)
					})
					if err := expectEqual("r1", r1f, 8); err != nil {
						return err
					}
					return expectEqual("r2", r2f, 3)
				},
			},
			{
				name: "preceding write visible to surviving alternative",
				run: func() error {
					var r1f, r2f int
					sched(log).Run(func(task *scheduler.Task) {
						r1, r2 := seedAccounts(task, 8, 8)
						stm.Atomic(task, func(tx *stm.Tx) struct{} {
							putR(tx, r2, 5)
							stm.OrElse(tx,
								func(tx *stm.Tx) struct{} { getR(tx, r1, 10); return struct{}{} },
								func(tx *stm.Tx) struct{} { getR(tx, r2, 10); return struct{}{} },
							)
							return struct{}{}
						})
						r1f, r2f = readFinal(task, r1, r2)
					})
					if err := expectEqual("r1", r1f, 8); err != nil {
						return err
					}
					return expectEqual("r2", r2f, 3)
				},
			},
			{
				name: "doubly nested orElse, inner retries, outer second wins",
				run: func() error {
					var r1f, r2f int
					sched(log).Run(func(task *scheduler.Task) {
						r1, r2 := seedAccounts(task, 8, 13)
						stm.Atomic(task, func(tx *stm.Tx) struct{} {
							v := tx.Read(r1)
							stm.OrElse(tx,
								func(tx *stm.Tx) struct{} {
									tx.Write(r1, v+5)
									stm.OrElse(tx,
										func(tx *stm.Tx) struct{} { getR(tx, r1, 20); return struct{}{} },
										func(tx *stm.Tx) struct{} { getR(tx, r1, 15); return struct{}{} },
									)
									return struct{}{}
								},
								func(tx *stm.Tx) struct{} { getR(tx, r1, 4); return struct{}{} },
							)
							return struct{}{}
						})
						r1f, r2f = readFinal(task, r1, r2)
					})
					if err := expectEqual("r1", r1f, 4); err != nil {
						return err
					}
					return expectEqual("r2", r2f, 13)
				},
			},
			{
				name: "doubly nested orElse, inner succeeds",
				run: func() error {
					var r1f, r2f int
					sched(log).Run(func(task *scheduler.Task) {
						r1, r2 := seedAccounts(task, 8, 13)
						stm.Atomic(task, func(tx *stm.Tx) struct{} {
							v := tx.Read(r1)
							stm.OrElse(tx,
								func(tx *stm.Tx) struct{} {
									tx.Write(r1, v+5)
									stm.OrElse(tx,
										func(tx *stm.Tx) struct{} { getR(tx, r1, 20); return struct{}{} },
										func(tx *stm.Tx) struct{} { getR(tx, r1, 10); return struct{}{} },
									)
									return struct{}{}
								},
								func(tx *stm.Tx) struct{} { getR(tx, r2, 4); return struct{}{} },
							)
							return struct{}{}
						})
						r1f, r2f = readFinal(task, r1, r2)
					})
					if err := expectEqual("r1", r1f, 3); err != nil {
						return err
					}
					return expectEqual("r2", r2f, 13)
				},
			},
		},
	}
}

func retrySuite(log logrus.FieldLogger) suite {
	return suite{
		name: "Retry",
		scenarios: []scenario{
			{
				name: "retry waits for observed change",
				run: func() error {
					// main.Fork ends main's own continuation the same way
					// Exit does (it panics to unwind to the per-task
					// recover), so there is no code-after-Fork point in
					// this closure to read r1/r2 back from. A third forked
					// task retries instead, waiting on doneA/doneB the way
					// any atomic block waits on a TVar it cares about.
					var r1f, r2f int
					sched(log).Run(func(main *scheduler.Task) {
						r1, r2 := seedAccounts(main, 10, 10)
						var doneA, doneB *stm.TVar
						stm.Atomic(main, func(tx *stm.Tx) struct{} {
							doneA = tx.NewTVar(0)
							doneB = tx.NewTVar(0)
							return struct{}{}
						})
						taskA := func(t *scheduler.Task) {
							stm.Atomic(t, func(tx *stm.Tx) struct{} {
								tx.Read(r1)
								t.Yield()
								getR(tx, r2, 3)
								getR(tx, r1, 13)
								return struct{}{}
							})
							stm.Atomic(t, func(tx *stm.Tx) struct{} {
								tx.Write(doneA, 1)
								return struct{}{}
							})
						}
						taskB := func(t *scheduler.Task) {
							for i := 0; i < 4; i++ {
								stm.Atomic(t, func(tx *stm.Tx) struct{} {
									putR(tx, r1, 1)
									return struct{}{}
								})
								t.Yield()
							}
							stm.Atomic(t, func(tx *stm.Tx) struct{} {
								tx.Write(doneB, 1)
								return struct{}{}
							})
						}
						finisher := func(t *scheduler.Task) {
							stm.Atomic(t, func(tx *stm.Tx) struct{} {
								tx.Assert(tx.Read(doneA) == 1 && tx.Read(doneB) == 1)
								r1f = tx.Read(r1)
								r2f = tx.Read(r2)
								return struct{}{}
							})
						}
						main.Fork(taskA, func(t *scheduler.Task) {
							t.Fork(taskB, finisher)
						})
					})
					if err := expectEqual("r1", r1f, 1); err != nil {
						return err
					}
					return expectEqual("r2", r2f, 7)
				},
			},
			{
				name: "commit conflict resolved by retry",
				run: func() error {
					var final int
					sched(log).Run(func(main *scheduler.Task) {
						var x, doneA, doneB *stm.TVar
						stm.Atomic(main, func(tx *stm.Tx) struct{} {
							x = tx.NewTVar(0)
							doneA = tx.NewTVar(0)
							doneB = tx.NewTVar(0)
							return struct{}{}
						})
						increment := func(done *stm.TVar) func(*scheduler.Task) {
							return func(t *scheduler.Task) {
								stm.Atomic(t, func(tx *stm.Tx) struct{} {
									cur := tx.Read(x)
									t.Yield()
									tx.Write(x, cur+1)
									return struct{}{}
								})
								stm.Atomic(t, func(tx *stm.Tx) struct{} {
									tx.Write(done, 1)
									return struct{}{}
								})
							}
						}
						finisher := func(t *scheduler.Task) {
							stm.Atomic(t, func(tx *stm.Tx) struct{} {
								tx.Assert(tx.Read(doneA) == 1 && tx.Read(doneB) == 1)
								final = tx.Read(x)
								return struct{}{}
							})
						}
						main.Fork(increment(doneA), func(t *scheduler.Task) {
							t.Fork(increment(doneB), finisher)
						})
					})
					return expectEqual("x", final, 2)
				},
			},
		},
	}
}

// readFinal reads both TVars inside one atomic block, so the CLI's
// reporting never touches a cell outside a transaction.
func readFinal(task *scheduler.Task, r1, r2 *stm.TVar) (v1, v2 int) {
	stm.Atomic(task, func(tx *stm.Tx) struct{} {
		v1 = tx.Read(r1)
		v2 = tx.Read(r2)
		return struct{}{}
	})
	return
}
