// Package output renders session progress, reports, and result records.
package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/jperros/limitprobe/internal/metrics"
)

// ProgressReporter redraws a single status line while the session runs.
type ProgressReporter struct {
	aggregator *metrics.Aggregator
	attempts   int
	ticker     *time.Ticker
	done       chan struct{}
	finished   chan struct{}
	writer     io.Writer
	active     int32
	start      time.Time
}

// NewProgressReporter creates a reporter updating at the given interval.
// attempts is the planned total, used for the done/total fraction.
func NewProgressReporter(aggregator *metrics.Aggregator, attempts int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		aggregator: aggregator,
		attempts:   attempts,
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		finished:   make(chan struct{}),
		writer:     writer,
		start:      time.Now(),
	}
}

// Start begins drawing updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts updates and terminates the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			stats := p.aggregator.Stats(elapsed)
			line := fmt.Sprintf("\rAttempts: %d/%d | OK: %d | Limited: %d | Errors: %d | RPS: %.1f",
				stats.Total, p.attempts, stats.Successes, stats.RateLimited, stats.Errors, stats.RequestsPerSec)
			if stats.FirstFailure != nil {
				line += fmt.Sprintf(" | First failure at #%d", stats.FirstFailure.Index)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
