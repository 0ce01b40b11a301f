package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYieldLetsOtherTaskRunFirst(t *testing.T) {
	var order []string
	New().Run(func(main *Task) {
		main.Fork(
			func(t *Task) { // true/parent branch
				order = append(order, "parent")
			},
			func(t *Task) { // false/child branch, runs first and yields to the parent
				order = append(order, "child-before-yield")
				t.Yield()
				order = append(order, "child-after-yield")
			},
		)
	})
	require.Equal(t, []string{"child-before-yield", "parent", "child-after-yield"}, order)
}

func TestForkRunsFalseBranchBeforeTrueBranch(t *testing.T) {
	var order []string
	New().Run(func(main *Task) {
		main.Fork(
			func(t *Task) { order = append(order, "true") },
			func(t *Task) { order = append(order, "false") },
		)
	})
	require.Equal(t, []string{"false", "true"}, order)
}

func TestExitDropsContinuationWithoutRunningFurtherCode(t *testing.T) {
	var ran bool
	New().Run(func(main *Task) {
		main.Exit()
		ran = true // unreachable: Exit unwinds via panic/recover
	})
	require.False(t, ran)
}

func TestRunDrainsAllForkedTasksToCompletion(t *testing.T) {
	var completed int
	New().Run(func(main *Task) {
		main.Fork(
			func(t *Task) {
				t.Yield()
				t.Yield()
				completed++
			},
			func(t *Task) {
				t.Yield()
				completed++
			},
		)
	})
	require.Equal(t, 2, completed)
}

func TestNestedForkProducesFourTasks(t *testing.T) {
	var labels []string
	New().Run(func(main *Task) {
		main.Fork(
			func(t *Task) {
				t.Fork(
					func(t *Task) { labels = append(labels, "a-true") },
					func(t *Task) { labels = append(labels, "a-false") },
				)
			},
			func(t *Task) {
				t.Fork(
					func(t *Task) { labels = append(labels, "b-true") },
					func(t *Task) { labels = append(labels, "b-false") },
				)
			},
		)
	})
	require.Len(t, labels, 4)
	require.Contains(t, labels, "a-true")
	require.Contains(t, labels, "a-false")
	require.Contains(t, labels, "b-true")
	require.Contains(t, labels, "b-false")
}

func TestTaskIDsAreDistinct(t *testing.T) {
	var ids []uint64
	New().Run(func(main *Task) {
		ids = append(ids, main.ID())
		main.Fork(
			func(t *Task) { ids = append(ids, t.ID()) },
			func(t *Task) { ids = append(ids, t.ID()) },
		)
	})
	require.Len(t, ids, 3)
	seen := make(map[uint64]bool)
	for _, id := range ids {
		require.False(t, seen[id], "task id %d reused", id)
		seen[id] = true
	}
}
