// Package analysis interprets a finished session: it infers the target's
// rate-limit parameters and evaluates user assertions against the stats.
package analysis

import (
	"time"

	"github.com/jperros/limitprobe/internal/metrics"
	"github.com/jperros/limitprobe/internal/probe"
)

// Inference is the estimated shape of the target's rate limit. It is only
// Determinate when the session actually observed a rate-limited outcome;
// a session of pure successes or pure transport errors proves nothing
// about the limit.
type Inference struct {
	Determinate bool `json:"determinate"`

	// Threshold is the number of successful requests the target accepted
	// before the first rate-limited response.
	Threshold int `json:"threshold,omitempty"`

	// Window is the offset from session start at which the first
	// rate-limited response was issued. It bounds the enforcement window
	// from above; the real window may be shorter.
	Window   time.Duration `json:"-"`
	WindowMs float64       `json:"window_ms,omitempty"`

	// TriggerIndex is the issue ordinal of the first rate-limited attempt.
	TriggerIndex int `json:"trigger_index,omitempty"`
}

// InferLimit derives the rate-limit estimate from a session result.
func InferLimit(result metrics.SessionResult) Inference {
	var found bool
	var first probe.Outcome
	for _, o := range result.Outcomes {
		if o.Class != probe.ClassRateLimited {
			continue
		}
		if !found || o.Index < first.Index {
			found = true
			first = o
		}
	}
	if !found {
		return Inference{}
	}

	var accepted int
	for _, o := range result.Outcomes {
		if o.Index < first.Index && o.Class == probe.ClassSuccess {
			accepted++
		}
	}

	return Inference{
		Determinate:  true,
		Threshold:    accepted,
		Window:       first.IssuedAt,
		WindowMs:     float64(first.IssuedAt) / float64(time.Millisecond),
		TriggerIndex: first.Index,
	}
}
