// Package scheduler drives probe attempts according to an execution plan's
// cadence: sequentially, or through a fixed-size worker pool where each
// worker paces its own dispatches.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jperros/limitprobe/internal/probe"
)

// State is the scheduler lifecycle: Idle until Run, then Running, ending in
// Completed or Cancelled.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result captures a finished session's shape.
type Result struct {
	State     State
	Completed int
	Partial   bool
	Duration  time.Duration
}

// Scheduler coordinates one probing session. A Scheduler is single-use:
// construct, Run once, read the result.
type Scheduler struct {
	opt   Options
	state atomic.Int32

	jitterMu  sync.Mutex
	jitterRnd *rand.Rand
}

// New creates a Scheduler for the given options.
func New(opt Options) *Scheduler {
	opt.normalize()
	return &Scheduler{
		opt:       opt,
		jitterRnd: rand.New(rand.NewSource(opt.RandomSeed)),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run dispatches opt.Attempts attempts and blocks until they have all
// reported or the context is cancelled. Individual attempt failures never
// stop the run; they arrive at the sink as error outcomes.
func (s *Scheduler) Run(ctx context.Context) Result {
	start := time.Now()
	s.state.Store(int32(StateRunning))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Execution context outlives session cancellation so in-flight attempts
	// get their grace period instead of being torn down immediately.
	execCtx, execCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer execCancel()

	var next atomic.Int64
	var completed atomic.Int64

	var wg sync.WaitGroup
	wg.Add(s.opt.Workers)
	for i := 0; i < s.opt.Workers; i++ {
		go func() {
			defer wg.Done()
			s.worker(ctx, execCtx, cancel, start, &next, &completed)
		}()
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	cancelled := false
	select {
	case <-workersDone:
		cancelled = ctx.Err() != nil
	case <-ctx.Done():
		cancelled = true
		// Grace period: let in-flight attempts finish and report.
		timer := time.NewTimer(s.opt.Grace)
		select {
		case <-workersDone:
			timer.Stop()
		case <-timer.C:
			execCancel()
			<-workersDone
		}
	}

	done := int(completed.Load())
	state := StateCompleted
	if cancelled && done < s.opt.Attempts {
		state = StateCancelled
	}
	s.state.Store(int32(state))

	return Result{
		State:     state,
		Completed: done,
		Partial:   state == StateCancelled,
		Duration:  time.Since(start),
	}
}

// worker claims attempt indices until none remain or the session stops.
// Pacing is per worker: the limiter spaces this worker's own dispatches,
// never synchronizing across the pool.
func (s *Scheduler) worker(ctx, execCtx context.Context, stop context.CancelFunc, start time.Time, next, completed *atomic.Int64) {
	limiter := s.opt.LimiterFactory(s.opt.Delay)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s.sleepJitter(ctx)

		index := int(next.Add(1)) - 1
		if index >= s.opt.Attempts {
			return
		}

		attempt := probe.Attempt{Index: index, IssuedAt: time.Since(start)}
		outcome := s.opt.Executor.Execute(execCtx, attempt)

		// An attempt torn down after the grace period expired is abandoned,
		// not observed; keep it out of the result.
		if execCtx.Err() != nil && outcome.Class == probe.ClassError && errors.Is(outcome.Err, context.Canceled) {
			return
		}

		s.opt.Sink.Record(outcome)
		completed.Add(1)

		if s.opt.StopOnLimit && outcome.Class == probe.ClassRateLimited {
			stop()
			return
		}
	}
}

func (s *Scheduler) sleepJitter(ctx context.Context) {
	if s.opt.Jitter <= 0 {
		return
	}
	s.jitterMu.Lock()
	d := time.Duration(s.jitterRnd.Int63n(int64(s.opt.Jitter)))
	s.jitterMu.Unlock()
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
