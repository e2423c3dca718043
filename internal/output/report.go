package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jperros/limitprobe/internal/analysis"
	"github.com/jperros/limitprobe/internal/metrics"
)

// Report bundles everything a finished session produced.
type Report struct {
	Session    metrics.SessionResult `json:"session"`
	Stats      metrics.Stats         `json:"stats"`
	Inference  analysis.Inference    `json:"inference"`
	Assertions []AssertionOutcome    `json:"assertions,omitempty"`
}

// AssertionOutcome is the serialized form of one evaluated assertion.
type AssertionOutcome struct {
	Expression string  `json:"expression"`
	Actual     float64 `json:"actual"`
	Pass       bool    `json:"pass"`
}

// NewReport assembles the report from its parts.
func NewReport(session metrics.SessionResult, stats metrics.Stats, inference analysis.Inference, assertions []analysis.AssertionResult) Report {
	report := Report{
		Session:   session,
		Stats:     stats,
		Inference: inference,
	}
	for _, a := range assertions {
		report.Assertions = append(report.Assertions, AssertionOutcome{
			Expression: a.Assertion.Raw,
			Actual:     a.Actual,
			Pass:       a.Pass,
		})
	}
	return report
}

// PrintReport writes the human-readable summary.
func PrintReport(w io.Writer, report Report, assertions []analysis.AssertionResult) {
	stats := report.Stats
	plan := report.Session.Plan

	fmt.Fprintln(w, "\n--- Rate Limit Probe Results ---")
	fmt.Fprintf(w, "Session:           %s\n", report.Session.ID)
	fmt.Fprintf(w, "Profile:           %s\n", plan.Profile)
	fmt.Fprintf(w, "Plan:              %d attempts, delay %s, %d worker(s)\n", plan.Attempts, plan.Delay, plan.Workers)
	if report.Session.Partial {
		fmt.Fprintln(w, "Status:            PARTIAL (session stopped early)")
	}
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Attempts:          %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Rate Limited:      %d\n", stats.RateLimited)
	fmt.Fprintf(w, "Errors:            %d\n", stats.Errors)
	if stats.Unknowns > 0 {
		fmt.Fprintf(w, "Unclassified:      %d\n", stats.Unknowns)
	}
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", stats.SuccessRate*100)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	fmt.Fprintln(w, "\nLimit Estimate:")
	if report.Inference.Determinate {
		fmt.Fprintf(w, "  Threshold:       ~%d requests\n", report.Inference.Threshold)
		fmt.Fprintf(w, "  Window:          within %s of session start\n", report.Inference.Window.Round(time.Millisecond))
		fmt.Fprintf(w, "  Triggered at:    attempt #%d\n", report.Inference.TriggerIndex)
	} else {
		fmt.Fprintln(w, "  Indeterminate: no rate-limited response observed")
	}

	if stats.FirstFailure != nil {
		fmt.Fprintln(w, "\nFirst Failure:")
		fmt.Fprintf(w, "  Attempt:         #%d (%s)\n", stats.FirstFailure.Index, stats.FirstFailure.Class)
		if stats.FirstFailure.StatusCode != 0 {
			fmt.Fprintf(w, "  Status:          %d\n", stats.FirstFailure.StatusCode)
		}
		fmt.Fprintf(w, "  Issued at:       %s\n", stats.FirstFailure.IssuedAt.Round(time.Millisecond))
		fmt.Fprintf(w, "  Successes prior: %d\n", stats.RequestsBeforeFirstFailure)
	}

	if len(stats.ErrorBreakdown) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		types := make([]string, 0, len(stats.ErrorBreakdown))
		for errorType := range stats.ErrorBreakdown {
			types = append(types, errorType)
		}
		sort.Slice(types, func(i, j int) bool {
			if stats.ErrorBreakdown[types[i]] != stats.ErrorBreakdown[types[j]] {
				return stats.ErrorBreakdown[types[i]] > stats.ErrorBreakdown[types[j]]
			}
			return types[i] < types[j]
		})
		for _, errorType := range types {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(errorType), stats.ErrorBreakdown[errorType])
		}
	}

	if len(assertions) > 0 {
		fmt.Fprintln(w, "\nAssertions:")
		for _, a := range assertions {
			fmt.Fprintf(w, "  %s\n", a.Message)
		}
	}
}

// PrintJSONReport writes the machine-readable report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
