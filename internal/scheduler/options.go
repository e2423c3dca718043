package scheduler

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/jperros/limitprobe/internal/probe"
)

// Sink receives outcomes in completion order. Implementations must be safe
// for concurrent use; workers report directly.
type Sink interface {
	Record(outcome probe.Outcome)
}

// Options configure the Scheduler.
type Options struct {
	Attempts int           // total attempts to dispatch (required, >= 1)
	Delay    time.Duration // pause between dispatches within one worker
	Jitter   time.Duration // optional random addition to each pause
	Workers  int           // concurrent workers (1 = sequential)

	Executor probe.Executor // performs one attempt (required)
	Sink     Sink           // receives outcomes (required)

	// StopOnLimit cancels the session when the first rate-limited outcome
	// is observed. The session finalizes as partial, same as an interrupt.
	StopOnLimit bool

	// Grace is how long in-flight attempts may keep running after
	// cancellation before they are abandoned.
	Grace time.Duration

	RandomSeed     int64                                    // jitter seed, 0 means time-based
	LimiterFactory func(delay time.Duration) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Attempts < 0 {
		o.Attempts = 0
	}
	if o.Grace <= 0 {
		o.Grace = 5 * time.Second
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(delay time.Duration) *rate.Limiter {
			if delay <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst 1: each worker paces its own dispatches strictly.
			return rate.NewLimiter(rate.Every(delay), 1)
		}
	}
}
