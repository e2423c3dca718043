package signature

import (
	"testing"

	"github.com/jperros/limitprobe/internal/probe"
)

func mustMatcher(t *testing.T, rules Rules) *Matcher {
	t.Helper()
	m, err := NewMatcher(rules)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestClassifyDefaults(t *testing.T) {
	m := mustMatcher(t, Rules{})

	tests := []struct {
		name   string
		status int
		body   string
		want   probe.StatusClass
	}{
		{"limit status", 429, "", probe.ClassRateLimited},
		{"clean 200", 200, `{"ok":true}`, probe.ClassSuccess},
		{"clean 204", 204, "", probe.ClassSuccess},
		{"200 with rate limit body", 200, "You have hit the Rate Limit for this endpoint", probe.ClassRateLimited},
		{"200 with too many requests body", 200, "error: TOO MANY REQUESTS", probe.ClassRateLimited},
		{"200 with blocked body", 200, "your client was blocked", probe.ClassRateLimited},
		{"403 plain", 403, "forbidden", probe.ClassUnknown},
		{"503 with unusual rate body", 503, "detected unusual rate of requests", probe.ClassRateLimited},
		{"500 plain", 500, "internal error", probe.ClassUnknown},
		{"302 redirect", 302, "", probe.ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Classify(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("Classify(%d, %q) = %s, want %s", tt.status, tt.body, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomStatus(t *testing.T) {
	m := mustMatcher(t, Rules{LimitStatus: 503, BodyPatterns: []string{}})
	if got := m.Classify(503, nil); got != probe.ClassRateLimited {
		t.Errorf("Classify(503) = %s, want rate_limited", got)
	}
	if got := m.Classify(429, nil); got != probe.ClassUnknown {
		t.Errorf("Classify(429) = %s, want unknown when 503 is the limit status", got)
	}
}

func TestClassifyCustomPatterns(t *testing.T) {
	m := mustMatcher(t, Rules{BodyPatterns: []string{"quota.{0,10}exceeded"}})
	if got := m.Classify(200, []byte("monthly QUOTA has been EXCEEDED")); got != probe.ClassRateLimited {
		t.Errorf("custom pattern did not match: %s", got)
	}
	// Custom patterns replace the defaults entirely.
	if got := m.Classify(200, []byte("rate limit reached")); got != probe.ClassSuccess {
		t.Errorf("default pattern still active: %s", got)
	}
}

func TestClassifyEmptyPatternsDisableBodyMatching(t *testing.T) {
	m := mustMatcher(t, Rules{BodyPatterns: []string{}})
	if got := m.Classify(200, []byte("rate limit reached")); got != probe.ClassSuccess {
		t.Errorf("Classify = %s, want success with body matching disabled", got)
	}
}

func TestClassifyJSONPath(t *testing.T) {
	m := mustMatcher(t, Rules{JSONPath: "error.reason"})

	body := []byte(`{"error":{"reason":"rate limit exceeded"},"data":"fine"}`)
	if got := m.Classify(200, body); got != probe.ClassRateLimited {
		t.Errorf("Classify = %s, want rate_limited via JSON path", got)
	}

	// The pattern appears outside the JSON path, so it must not match.
	outside := []byte(`{"error":{"reason":"ok"},"note":"rate limit applies"}`)
	if got := m.Classify(200, outside); got != probe.ClassSuccess {
		t.Errorf("Classify = %s, want success when path value is clean", got)
	}

	missing := []byte(`{"data":"rate limit"}`)
	if got := m.Classify(200, missing); got != probe.ClassSuccess {
		t.Errorf("Classify = %s, want success when path is absent", got)
	}
}

func TestClassifyJSONPathDollarPrefix(t *testing.T) {
	m := mustMatcher(t, Rules{JSONPath: "$.message"})
	body := []byte(`{"message":"too many requests"}`)
	if got := m.Classify(200, body); got != probe.ClassRateLimited {
		t.Errorf("Classify = %s, want rate_limited with $. prefix stripped", got)
	}
}

func TestNewMatcherRejectsBadPattern(t *testing.T) {
	if _, err := NewMatcher(Rules{BodyPatterns: []string{"("}}); err == nil {
		t.Fatal("NewMatcher accepted invalid regexp")
	}
}
