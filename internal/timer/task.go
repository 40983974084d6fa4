// Package timer runs the app's delayed, repeating jobs: the step
// simulation and the meditation countdown.
//
// A Task is an explicit state machine:
//
//	idle ──Start──▶ running ──last tick──▶ completed
//	                   │
//	                   ├──Cancel / ctx done──▶ cancelled
//	                   └──tick error──────────▶ failed
//
// A Task runs in its own goroutine and owns a single cancel handle, so it
// can always be stopped. Ticks are never rescheduled from inside a tick.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
)

// State is the lifecycle phase of a Task.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// TickFunc is called once per tick with the zero-based tick index.
// A non-nil error stops the task in StateFailed.
type TickFunc func(i int) error

// DoneFunc is called once when the task leaves StateRunning.
type DoneFunc func(final State, err error)

// Task runs a fixed number of ticks separated by a fixed interval.
// The first tick fires immediately; the task completes one interval after
// the last tick, mirroring a countdown that shows 00:01 for a full second.
type Task struct {
	name     string
	interval time.Duration

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask returns an idle task. name only appears in error messages.
func NewTask(name string, interval time.Duration) *Task {
	return &Task{name: name, interval: interval, state: StateIdle}
}

// Start launches the task. It fails with a Conflict error while a previous
// run is still going; a finished task can be started again.
func (t *Task) Start(ctx context.Context, ticks int, tick TickFunc, onDone DoneFunc) error {
	if ticks <= 0 {
		return apperror.ValidationFailed("ticks", "a timer needs at least one tick")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateRunning {
		return apperror.Conflict("timer", t.name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.state = StateRunning
	t.err = nil
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.run(runCtx, ticks, tick, onDone, t.done)
	return nil
}

func (t *Task) run(ctx context.Context, ticks int, tick TickFunc, onDone DoneFunc, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	final, err := StateCompleted, error(nil)
loop:
	for i := 0; i < ticks; i++ {
		// A cancel that raced the last wait wins over the next tick.
		if ctx.Err() != nil {
			final = StateCancelled
			break loop
		}
		if err = tick(i); err != nil {
			final = StateFailed
			break loop
		}
		select {
		case <-ctx.Done():
			final = StateCancelled
			break loop
		case <-ticker.C:
		}
	}

	t.mu.Lock()
	t.state = final
	t.err = err
	t.cancel()
	t.mu.Unlock()

	if onDone != nil {
		onDone(final, err)
	}
}

// Cancel stops a running task. It is a no-op otherwise.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRunning && t.cancel != nil {
		t.cancel()
	}
}

// Wait blocks until the current run finishes or ctx is done, and returns
// the final state.
func (t *Task) Wait(ctx context.Context) (State, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return t.State(), nil
	}
	select {
	case <-done:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

// State returns the current phase.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the tick error that failed the last run, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
