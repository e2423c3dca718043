package metrics

import (
	"time"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/probe"
)

// SessionResult is the immutable record of one finished probing session.
// Outcomes are in completion order; each outcome's Index carries its issue
// ordinal.
type SessionResult struct {
	ID        string          `json:"id"`
	Plan      config.Plan     `json:"plan"`
	Outcomes  []probe.Outcome `json:"outcomes"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Partial   bool            `json:"partial"`
}

// Duration is the wall-clock span of the session.
func (r SessionResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SuccessRate is the fraction of outcomes classified success, 0 when the
// session recorded nothing.
func (r SessionResult) SuccessRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	var successes int
	for _, o := range r.Outcomes {
		if o.Class == probe.ClassSuccess {
			successes++
		}
	}
	return float64(successes) / float64(len(r.Outcomes))
}

// FirstFailure returns the non-success outcome with the lowest issue index,
// or false when every outcome succeeded.
func (r SessionResult) FirstFailure() (probe.Outcome, bool) {
	return firstFailure(r.Outcomes)
}

// RequestsBeforeFirstFailure counts successful attempts issued before the
// first failure. With no failure it counts every success.
func (r SessionResult) RequestsBeforeFirstFailure() int {
	if failure, ok := firstFailure(r.Outcomes); ok {
		return successesBefore(r.Outcomes, failure.Index)
	}
	var successes int
	for _, o := range r.Outcomes {
		if o.Class == probe.ClassSuccess {
			successes++
		}
	}
	return successes
}

// Stats is the aggregate view serialized into reports.
type Stats struct {
	Total       int64 `json:"total"`
	Successes   int64 `json:"successes"`
	RateLimited int64 `json:"rate_limited"`
	Errors      int64 `json:"errors"`
	Unknowns    int64 `json:"unknowns"`

	SuccessRate    float64 `json:"success_rate"`
	RequestsPerSec float64 `json:"requests_per_sec"`

	Duration   time.Duration `json:"-"`
	DurationMs float64       `json:"duration_ms"`

	MinLatency    time.Duration `json:"-"`
	MaxLatency    time.Duration `json:"-"`
	MeanLatency   time.Duration `json:"-"`
	P50Latency    time.Duration `json:"-"`
	P90Latency    time.Duration `json:"-"`
	P99Latency    time.Duration `json:"-"`
	MinLatencyMs  float64       `json:"min_latency_ms"`
	MaxLatencyMs  float64       `json:"max_latency_ms"`
	MeanLatencyMs float64       `json:"mean_latency_ms"`
	P50LatencyMs  float64       `json:"p50_latency_ms"`
	P90LatencyMs  float64       `json:"p90_latency_ms"`
	P99LatencyMs  float64       `json:"p99_latency_ms"`

	// FirstFailure is nil when every outcome succeeded, and the
	// failure-derived fields are then absent from the serialized form.
	FirstFailure               *probe.Outcome `json:"first_failure,omitempty"`
	FirstFailureAt             time.Duration  `json:"-"`
	FirstFailureAtMs           float64        `json:"first_failure_at_ms,omitempty"`
	RequestsBeforeFirstFailure int            `json:"requests_before_first_failure,omitempty"`

	ErrorBreakdown map[string]int `json:"error_breakdown,omitempty"`
}

func (s *Stats) fillMillis() {
	const ms = float64(time.Millisecond)
	s.DurationMs = float64(s.Duration) / ms
	s.MinLatencyMs = float64(s.MinLatency) / ms
	s.MaxLatencyMs = float64(s.MaxLatency) / ms
	s.MeanLatencyMs = float64(s.MeanLatency) / ms
	s.P50LatencyMs = float64(s.P50Latency) / ms
	s.P90LatencyMs = float64(s.P90Latency) / ms
	s.P99LatencyMs = float64(s.P99Latency) / ms
	if s.FirstFailure != nil {
		s.FirstFailureAtMs = float64(s.FirstFailureAt) / ms
	}
}

func firstFailure(outcomes []probe.Outcome) (probe.Outcome, bool) {
	var found bool
	var first probe.Outcome
	for _, o := range outcomes {
		if o.Class == probe.ClassSuccess {
			continue
		}
		if !found || o.Index < first.Index {
			found = true
			first = o
		}
	}
	return first, found
}

func successesBefore(outcomes []probe.Outcome, index int) int {
	var successes int
	for _, o := range outcomes {
		if o.Index < index && o.Class == probe.ClassSuccess {
			successes++
		}
	}
	return successes
}
