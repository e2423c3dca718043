package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jperros/limitprobe/internal/metrics"
)

// Assertion is a pass/fail condition over the final session stats.
type Assertion struct {
	Metric    string  // e.g. "probe_duration", "probe_failed", "rate_limited"
	Aggregate string  // e.g. "p95", "avg", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64
	Raw       string // original assertion string for display
}

// AssertionResult is the outcome of evaluating one assertion.
type AssertionResult struct {
	Assertion Assertion
	Actual    float64
	Pass      bool
	Message   string
}

var assertionPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// ParseAssertion parses one assertion string.
// Supported forms:
//   - "probe_duration:p99 < 500"   (latency aggregate in ms)
//   - "probe_failed:rate < 0.1"    (non-success fraction)
//   - "probe_failed:count == 0"    (non-success count)
//   - "rate_limited:count > 0"     (rate-limited responses observed)
//   - "probes:rate > 1"            (attempts per second)
func ParseAssertion(s string) (Assertion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Assertion{}, fmt.Errorf("empty assertion string")
	}

	matches := assertionPattern.FindStringSubmatch(s)
	if matches == nil {
		return Assertion{}, fmt.Errorf("invalid assertion format: %q (expected metric:aggregate operator value, e.g. 'probe_duration:p99 < 500')", s)
	}

	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Assertion{}, fmt.Errorf("invalid assertion value %q: %v", valueStr, err)
	}
	if !validMetric(metric) {
		return Assertion{}, fmt.Errorf("unsupported metric: %q (supported: probe_duration, probe_failed, probe_success, rate_limited, probes)", metric)
	}
	if !validAggregate(aggregate) {
		return Assertion{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count)", aggregate)
	}
	if !validOperator(operator) {
		return Assertion{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Assertion{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseAssertions parses a list of assertion strings, collecting every
// parse error before failing.
func ParseAssertions(exprs []string) ([]Assertion, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	parsed := make([]Assertion, 0, len(exprs))
	var problems []string
	for i, s := range exprs {
		a, err := ParseAssertion(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("assertion[%d]: %v", i, err))
			continue
		}
		parsed = append(parsed, a)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("assertion parsing errors: %s", strings.Join(problems, "; "))
	}
	return parsed, nil
}

// Evaluate checks every assertion against the final stats.
func Evaluate(assertions []Assertion, stats metrics.Stats) []AssertionResult {
	if len(assertions) == 0 {
		return nil
	}
	results := make([]AssertionResult, 0, len(assertions))
	for _, a := range assertions {
		results = append(results, evaluateOne(a, stats))
	}
	return results
}

func evaluateOne(a Assertion, stats metrics.Stats) AssertionResult {
	actual, err := metricValue(a, stats)
	if err != nil {
		return AssertionResult{
			Assertion: a,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compare(actual, a.Operator, a.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return AssertionResult{
		Assertion: a,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, a.Raw, actual, a.Operator, a.Value),
	}
}

func validMetric(metric string) bool {
	switch metric {
	case "probe_duration", "probe_failed", "probe_success", "rate_limited", "probes":
		return true
	}
	return false
}

func validAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count":
		return true
	}
	return false
}

func validOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func metricValue(a Assertion, stats metrics.Stats) (float64, error) {
	switch a.Metric {
	case "probe_duration":
		return latencyValue(a.Aggregate, stats)
	case "probe_failed":
		return countRateValue(a.Aggregate, stats.Total-stats.Successes, stats.Total, "probe_failed")
	case "probe_success":
		return countRateValue(a.Aggregate, stats.Successes, stats.Total, "probe_success")
	case "rate_limited":
		return countRateValue(a.Aggregate, stats.RateLimited, stats.Total, "rate_limited")
	case "probes":
		switch a.Aggregate {
		case "count":
			return float64(stats.Total), nil
		case "rate":
			return stats.RequestsPerSec, nil
		}
		return 0, fmt.Errorf("unsupported aggregate %q for probes (use 'count' or 'rate')", a.Aggregate)
	}
	return 0, fmt.Errorf("unknown metric: %s", a.Metric)
}

func latencyValue(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50LatencyMs, nil
	case "p90":
		return stats.P90LatencyMs, nil
	case "p95":
		// Approximated: the histogram is queried at p90 and p99 only.
		return (stats.P90LatencyMs + stats.P99LatencyMs) / 2, nil
	case "p99":
		return stats.P99LatencyMs, nil
	case "avg", "mean":
		return stats.MeanLatencyMs, nil
	case "min":
		return stats.MinLatencyMs, nil
	case "max":
		return stats.MaxLatencyMs, nil
	}
	return 0, fmt.Errorf("unsupported aggregate %q for probe_duration", aggregate)
}

func countRateValue(aggregate string, count, total int64, metric string) (float64, error) {
	switch aggregate {
	case "count":
		return float64(count), nil
	case "rate":
		if total == 0 {
			return 0, nil
		}
		return float64(count) / float64(total), nil
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", aggregate, metric)
}

func compare(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	}
	return false
}
