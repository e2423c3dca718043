// Package probe defines attempt outcomes and the executor that produces them.
package probe

import (
	"context"
	"time"
)

// StatusClass buckets a single attempt's result.
type StatusClass string

const (
	ClassSuccess     StatusClass = "success"
	ClassRateLimited StatusClass = "rate_limited"
	ClassError       StatusClass = "error"
	ClassUnknown     StatusClass = "unknown"
)

// Attempt identifies one scheduled request. Index is the issue ordinal,
// IssuedAt the offset from session start at dispatch time.
type Attempt struct {
	Index    int
	IssuedAt time.Duration
}

// Outcome is the immutable record of one completed attempt. StatusCode is
// zero when no HTTP response was received.
type Outcome struct {
	Index      int           `json:"index"`
	IssuedAt   time.Duration `json:"issued_at"`
	Latency    time.Duration `json:"latency"`
	Class      StatusClass   `json:"class"`
	StatusCode int           `json:"status_code,omitempty"`
	Err        error         `json:"-"`
}

// Failed reports whether the outcome counts against the success rate.
func (o Outcome) Failed() bool {
	return o.Class != ClassSuccess
}

// Executor performs a single attempt. Implementations must not return
// transport failures to the caller; they are folded into the outcome as
// ClassError.
type Executor interface {
	Execute(ctx context.Context, attempt Attempt) Outcome
}

// Classifier maps a received HTTP response to a status class.
type Classifier interface {
	Classify(statusCode int, body []byte) StatusClass
}
