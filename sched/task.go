// Package sched implements the framework's cooperative per-thread task
// scheduler, timer wheel, notifiers, and the Pipeliner cross-thread
// handoff primitive.
//
// Grounded on the teacher's errgroup-supervised worker-pool pattern
// (rockstar-0000-aistore/dsort/dsort.go uses errgroup.WithContext to run
// one goroutine per shard and propagate the first failure): Runtime runs
// one goroutine per declared thread the same way, except each goroutine
// is a scheduler loop over runnable Tasks rather than a one-shot unit of
// work.
package sched

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// TaskFunc is one quantum of work. It returns true if it did useful work,
// in which case the loop re-enqueues it, or false if it found nothing to
// do, in which case the loop parks it until Reschedule is called.
type TaskFunc func() bool

// state is a Task's scheduling state.
type state int

const (
	stateIdle state = iota
	stateScheduled
	stateRunning
	stateParked
)

// Task is a unit of runnable work owned by exactly one thread's loop.
// Packet source elements typically install a Task; sink elements rely on
// being invoked from an upstream Push and never need one.
type Task struct {
	fn TaskFunc

	mu    sync.Mutex
	st    state
	owner *Loop
}

// NewTask wraps fn as a Task. The task is not scheduled until
// Loop.AddTask (or FastReschedule/RescheduleAfter) runs.
func NewTask(fn TaskFunc) *Task {
	return &Task{fn: fn}
}

// FastReschedule re-enqueues the task at the tail of its owning loop's run
// queue — a yield.
func (t *Task) FastReschedule() {
	t.mu.Lock()
	owner := t.owner
	t.mu.Unlock()
	if owner != nil {
		owner.enqueue(t)
	}
}

// Park marks the task as not runnable; it runs again only once
// Reschedule is called externally.
func (t *Task) Park() {
	t.mu.Lock()
	t.st = stateParked
	t.mu.Unlock()
}

// Reschedule wakes a parked task, re-enqueuing it on its owning loop.
func (t *Task) Reschedule() {
	t.mu.Lock()
	wasParked := t.st == stateParked
	t.st = stateScheduled
	owner := t.owner
	t.mu.Unlock()
	if wasParked && owner != nil {
		owner.enqueue(t)
	}
}

// Loop is one thread's cooperative scheduler: it runs every runnable Task
// in FIFO order until the driver-stop flag is raised.
type Loop struct {
	index int

	mu    sync.Mutex
	ready []*Task

	wake chan struct{}
}

func newLoop(index int) *Loop {
	return &Loop{index: index, wake: make(chan struct{}, 1)}
}

// Index returns this loop's thread index, matching the declared thread
// assignment elements are configured with.
func (l *Loop) Index() int { return l.index }

// AddTask assigns t to this loop and marks it runnable.
func (l *Loop) AddTask(t *Task) {
	t.mu.Lock()
	t.owner = l
	t.st = stateScheduled
	t.mu.Unlock()
	l.enqueue(t)
}

func (l *Loop) enqueue(t *Task) {
	l.mu.Lock()
	l.ready = append(l.ready, t)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) dequeue() *Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ready) == 0 {
		return nil
	}
	t := l.ready[0]
	l.ready = l.ready[1:]
	return t
}

// run keeps draining the ready queue until ctx is done, running every
// task that is runnable, re-enqueuing those that returned true (did work,
// so it may have more to do) at the tail, matching FIFO round-robin order
// within a thread, and parking those that returned false.
func (l *Loop) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := l.dequeue()
		if t == nil {
			select {
			case <-l.wake:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		t.mu.Lock()
		if t.st == stateParked {
			t.mu.Unlock()
			continue
		}
		t.st = stateRunning
		t.mu.Unlock()

		didWork := t.fn()

		t.mu.Lock()
		if t.st == stateRunning {
			if didWork {
				t.st = stateScheduled
				t.mu.Unlock()
				l.enqueue(t)
			} else {
				t.st = stateParked
				t.mu.Unlock()
			}
		} else {
			t.mu.Unlock()
		}
	}
}

// Runtime owns one Loop per declared thread and supervises them with an
// errgroup, so the first loop to return an error (or a driver-stop
// cancellation) cancels every other loop's context — the same
// fail-fast fan-out shape as rockstar-0000-aistore/dsort/dsort.go's
// errgroup.WithContext worker pool.
type Runtime struct {
	loops []*Loop

	mu   sync.Mutex
	stop bool
}

// NewRuntime constructs a Runtime with numThreads independent loops.
func NewRuntime(numThreads int) *Runtime {
	rt := &Runtime{loops: make([]*Loop, numThreads)}
	for i := range rt.loops {
		rt.loops[i] = newLoop(i)
	}
	return rt
}

// Loop returns the Loop for the given thread index.
func (rt *Runtime) Loop(thread int) *Loop {
	return rt.loops[thread]
}

// NumThreads reports the number of scheduler loops.
func (rt *Runtime) NumThreads() int {
	return len(rt.loops)
}

// PleaseStopDriver raises the cooperative driver-stop flag every loop
// polls; handlers may call it to trigger a graceful shutdown.
func (rt *Runtime) PleaseStopDriver() {
	rt.mu.Lock()
	rt.stop = true
	rt.mu.Unlock()
}

// StopRequested reports whether PleaseStopDriver has been called.
func (rt *Runtime) StopRequested() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stop
}

// Run starts every loop and blocks until the context is cancelled, a loop
// returns an error, or PleaseStopDriver is observed by a watchdog
// goroutine.
func (rt *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if rt.StopRequested() {
					cancel()
					return nil
				}
			}
		}
	})

	for _, l := range rt.loops {
		l := l
		g.Go(func() error {
			err := l.run(gctx)
			if err == context.Canceled || err == context.DeadlineExceeded {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
