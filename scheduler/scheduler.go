// Package scheduler provides a cooperative, single-threaded task runner.
// Exactly one task is ever executing at a time; tasks voluntarily give up
// their turn by calling Yield, Fork, or Exit, and the Scheduler decides
// which parked task runs next. The stm package's atomic/retry/orElse
// engine depends on nothing from here but the ability to Yield — any
// scheduler offering that contract can host it.
//
// Go has no first-class continuations, so "parking a task" is realized by
// blocking its goroutine on a receive from a private channel: the
// goroutine's stack, frozen at that receive, is the continuation. Exactly
// one such channel is ever unblocked at a time, which is what gives the
// rest of this package (and everything built on it) its single-threaded
// semantics despite being implemented with real goroutines.
package scheduler

import (
	"github.com/sirupsen/logrus"

	"github.com/retrylab/stm/internal/deque"
)

// A Task is the handle a running task body uses to suspend itself.
type Task struct {
	id    uint64
	sched *Scheduler
}

// ID returns the task's scheduler-assigned identity, stable for the life
// of the task. Useful for trace logging and for tests that need to tell
// interleaved tasks apart.
func (t *Task) ID() uint64 {
	return t.id
}

// Yield suspends the current task, letting other ready tasks run, and
// resumes it once the scheduler gets back around to it.
func (t *Task) Yield() {
	resume := make(chan struct{})
	t.sched.report(event{kind: evYield, task: t.id, resume: resume})
	<-resume
}

// Fork ends the current task by replacing it with two new tasks: falseBranch
// runs first, trueBranch is parked behind it. This is the Go rendering of
// the effect-handler formulation's raw fork() -> bool: Go cannot resume one
// call site twice with different results, so each branch is given as its
// own re-runnable closure (the "captured blocks" pattern) instead.
func (t *Task) Fork(trueBranch, falseBranch func(*Task)) {
	falseResume := make(chan struct{})
	trueResume := make(chan struct{})
	falseID := t.sched.nextTaskID()
	trueID := t.sched.nextTaskID()
	go t.sched.runTask(falseID, falseBranch, falseResume)
	go t.sched.runTask(trueID, trueBranch, trueResume)
	t.sched.report(event{
		kind:    evFork,
		task:    t.id,
		forked:  []uint64{falseID, trueID},
		resumes: []chan struct{}{falseResume, trueResume},
	})
	panic(forkSignal)
}

// Exit terminates the current task. No continuation is left behind for it.
func (t *Task) Exit() {
	t.sched.report(event{kind: evExit, task: t.id})
	panic(exitSignal)
}

type eventKind int

const (
	evYield eventKind = iota
	evFork
	evExit
	evDone
)

type event struct {
	kind    eventKind
	task    uint64
	resume  chan struct{}   // evYield: this task's own continuation
	forked  []uint64        // evFork: [falseID, trueID]
	resumes []chan struct{} // evFork: [falseResume, trueResume]
}

// sentinels panicked by Task.Exit/Task.Fork to unwind to the per-task
// recover wrapper without running the task's own deferred "I finished
// normally" bookkeeping. Mirrors github.com/lukechampine/stm's
// Retry-via-panic idiom.
type controlSignal int

const (
	exitSignal controlSignal = iota
	forkSignal
)

// A Scheduler runs tasks to completion, one at a time, draining its ready
// queue until no task remains runnable.
type Scheduler struct {
	ready  *deque.Deque[readyTask]
	events chan event
	nextID uint64
	log    logrus.FieldLogger
}

type readyTask struct {
	id     uint64
	resume chan struct{}
}

// Option configures a Scheduler constructed by New.
type Option func(*Scheduler)

// WithLogger attaches a logrus.FieldLogger that receives one debug-level
// entry per scheduler turn. The default is a fresh logrus logger with
// output discarded, so tracing is opt-in.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New constructs an idle Scheduler. Call Run to execute a task tree.
func New(opts ...Option) *Scheduler {
	discard := logrus.New()
	discard.SetOutput(noopWriter{})
	s := &Scheduler{
		ready:  deque.New[readyTask](),
		events: make(chan event),
		log:    discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *Scheduler) nextTaskID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Scheduler) report(e event) {
	s.events <- e
}

// Run starts main as the first task and drains the ready queue until
// every task has either exited or is permanently parked waiting on a
// retry (in which case Run never returns — a transaction that can never
// observe progress spins forever, per the documented STM contract).
func (s *Scheduler) Run(main func(*Task)) {
	id := s.nextTaskID()
	resume := make(chan struct{})
	go s.runTask(id, main, resume)
	s.ready.PushBack(readyTask{id: id, resume: resume})

	for {
		rt, ok := s.ready.PopFront()
		if !ok {
			return
		}
		close(rt.resume)
		ev := <-s.events
		s.handle(ev)
	}
}

func (s *Scheduler) handle(ev event) {
	switch ev.kind {
	case evYield:
		s.log.WithFields(logrus.Fields{"task": ev.task, "effect": "yield"}).Debug("scheduler turn")
		s.ready.PushBack(readyTask{id: ev.task, resume: ev.resume})
	case evFork:
		s.log.WithFields(logrus.Fields{"task": ev.task, "effect": "fork", "children": ev.forked}).Debug("scheduler turn")
		for i, childID := range ev.forked {
			s.ready.PushBack(readyTask{id: childID, resume: ev.resumes[i]})
		}
	case evExit, evDone:
		s.log.WithFields(logrus.Fields{"task": ev.task, "effect": "exit"}).Debug("scheduler turn")
	}
}

// runTask wraps a task body so it reports exactly one event back to the
// scheduler per turn, whether it yields, forks, exits, or returns
// normally. A panic with anything else is re-raised without reporting an
// event (matching github.com/lukechampine/stm's catchRetry: only the known
// control sentinels are swallowed).
func (s *Scheduler) runTask(id uint64, body func(*Task), resume chan struct{}) {
	<-resume
	t := &Task{id: id, sched: s}
	defer func() {
		r := recover()
		switch r {
		case nil:
			s.report(event{kind: evDone, task: id})
		case exitSignal, forkSignal:
			// Exit and Fork already reported their own event.
		default:
			panic(r)
		}
	}()
	body(t)
}
