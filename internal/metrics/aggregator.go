// Package metrics aggregates attempt outcomes into session statistics.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/oklog/ulid/v2"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/probe"
)

// Aggregator is the session's single outcome sink. Workers report
// concurrently; one mutex serializes the append and histogram update.
type Aggregator struct {
	mu           sync.Mutex
	plan         config.Plan
	outcomes     []probe.Outcome
	hist         *hdrhistogram.Histogram
	successes    int64
	rateLimited  int64
	errored      int64
	unknowns     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
	started      time.Time
	finalized    bool
}

// NewAggregator creates an aggregator for one session.
func NewAggregator(plan config.Plan) *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		plan:         plan,
		outcomes:     make([]probe.Outcome, 0, plan.Attempts),
		hist:         h,
		errorsByType: make(map[string]int64),
		started:      time.Now(),
	}
}

// Start marks the session start instant. Call right before the scheduler
// runs so elapsed-time statistics exclude setup cost.
func (a *Aggregator) Start() {
	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()
}

// StartedAt returns the session start instant.
func (a *Aggregator) StartedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Record appends one outcome. Insertion order is completion order; the
// outcome's Index keeps the issue ordinal recoverable.
func (a *Aggregator) Record(outcome probe.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outcomes = append(a.outcomes, outcome)

	if outcome.Latency > 0 {
		us := outcome.Latency.Microseconds()
		if us < a.hist.LowestTrackableValue() {
			us = a.hist.LowestTrackableValue()
		}
		if us > a.hist.HighestTrackableValue() {
			us = a.hist.HighestTrackableValue()
		}
		_ = a.hist.RecordValue(us)
	}
	a.sumLatency += outcome.Latency
	if a.minLatency == 0 || outcome.Latency < a.minLatency {
		a.minLatency = outcome.Latency
	}
	if outcome.Latency > a.maxLatency {
		a.maxLatency = outcome.Latency
	}

	switch outcome.Class {
	case probe.ClassSuccess:
		a.successes++
	case probe.ClassRateLimited:
		a.rateLimited++
	case probe.ClassError:
		a.errored++
	default:
		a.unknowns++
	}

	if outcome.Err != nil {
		errorType := fmt.Sprintf("%T", outcome.Err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		a.errorsByType[errorType]++
	}
}

// Finalize closes the session out and returns the immutable result. Must be
// called exactly once, after the scheduler has reached a terminal state.
func (a *Aggregator) Finalize(partial bool) SessionResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		panic("metrics: Finalize called twice")
	}
	a.finalized = true

	return SessionResult{
		ID:        ulid.Make().String(),
		Plan:      a.plan,
		Outcomes:  append([]probe.Outcome(nil), a.outcomes...),
		StartedAt: a.started,
		EndedAt:   time.Now(),
		Partial:   partial,
	}
}

// Stats computes the aggregate view for the given elapsed time. Used live
// by the progress reporter and dashboard, and once more with the final
// duration for the report.
func (a *Aggregator) Stats(elapsed time.Duration) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := int64(len(a.outcomes))
	stats := Stats{
		Total:       total,
		Successes:   a.successes,
		RateLimited: a.rateLimited,
		Errors:      a.errored,
		Unknowns:    a.unknowns,
		MinLatency:  a.minLatency,
		MaxLatency:  a.maxLatency,
	}

	if total > 0 {
		stats.SuccessRate = float64(a.successes) / float64(total)
		stats.MeanLatency = time.Duration(int64(a.sumLatency) / total)
	}

	if a.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	if failure, ok := firstFailure(a.outcomes); ok {
		f := failure
		stats.FirstFailure = &f
		stats.FirstFailureAt = failure.IssuedAt
		stats.RequestsBeforeFirstFailure = successesBefore(a.outcomes, failure.Index)
	}

	stats.Duration = elapsed
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	stats.fillMillis()

	if len(a.errorsByType) > 0 {
		stats.ErrorBreakdown = make(map[string]int, len(a.errorsByType))
		for k, v := range a.errorsByType {
			stats.ErrorBreakdown[k] = int(v)
		}
	}

	return stats
}
