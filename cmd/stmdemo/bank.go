package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retrylab/stm"
	"github.com/retrylab/stm/scheduler"
)

// newBankCmd runs a small interactive demo: one shared account, several
// depositors, and a withdrawer that retries until enough funds have
// arrived. It is adapted from github.com/lukechampine/stm's Santa Claus
// example (its group/gate composition — "wait until a shared counter
// reaches a threshold, then act") recast onto the getR/putR bank-account
// vocabulary, since elves and reindeer have no counterpart here.
func newBankCmd() *cobra.Command {
	var depositors int
	var rounds int

	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Run a small STM bank-account demo with concurrent depositors",
		RunE: func(cmd *cobra.Command, args []string) error {
			runBank(depositors, rounds)
			return nil
		},
	}
	cmd.Flags().IntVar(&depositors, "depositors", 3, "number of concurrent depositing tasks")
	cmd.Flags().IntVar(&rounds, "rounds", 5, "deposits each depositor makes")
	return cmd
}

func runBank(depositors, rounds int) {
	scheduler.New().Run(func(main *scheduler.Task) {
		var account *stm.TVar
		stm.Atomic(main, func(tx *stm.Tx) struct{} {
			account = tx.NewTVar(0)
			return struct{}{}
		})

		withdrawAmount := depositors * rounds
		withdrawer := func(t *scheduler.Task) {
			stm.Atomic(t, func(tx *stm.Tx) struct{} {
				getR(tx, account, withdrawAmount)
				return struct{}{}
			})
			fmt.Printf("withdrawer: took %d, account now empty\n", withdrawAmount)
		}

		depositorTasks := make([]func(*scheduler.Task), 0, depositors)
		for i := 0; i < depositors; i++ {
			id := i
			depositorTasks = append(depositorTasks, func(t *scheduler.Task) {
				for r := 0; r < rounds; r++ {
					stm.Atomic(t, func(tx *stm.Tx) struct{} {
						putR(tx, account, 1)
						return struct{}{}
					})
					fmt.Printf("depositor %d: deposited 1 (round %d)\n", id, r)
					t.Yield()
				}
			})
		}

		forkAll(main, withdrawer, depositorTasks)
	})
}

// forkAll schedules withdrawer alongside every depositor task by folding
// Task.Fork's binary branching over the list, mirroring
// github.com/lukechampine/stm's own recursive Select pattern.
func forkAll(t *scheduler.Task, withdrawer func(*scheduler.Task), depositors []func(*scheduler.Task)) {
	if len(depositors) == 0 {
		withdrawer(t)
		return
	}
	t.Fork(
		func(t *scheduler.Task) { forkAll(t, withdrawer, depositors[1:]) },
		depositors[0],
	)
}
