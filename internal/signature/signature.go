// Package signature classifies HTTP responses against a configurable
// rate-limit signature: a status code, body patterns, and an optional JSON
// path to narrow where the patterns are matched.
package signature

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jperros/limitprobe/internal/probe"
)

// DefaultBodyPatterns are the rate-limit phrases scanned for when the user
// supplies none. They match case-insensitively anywhere in the body.
var DefaultBodyPatterns = []string{
	"rate limit",
	"too many requests",
	"blocked",
	"unusual rate",
}

// Rules describe what counts as a rate-limited response.
type Rules struct {
	// LimitStatus is the status code treated as rate-limited. Zero means
	// http.StatusTooManyRequests.
	LimitStatus int

	// BodyPatterns are regular expressions matched case-insensitively
	// against the body (or the JSONPath value). Plain substrings work as-is.
	// Nil means DefaultBodyPatterns; an explicit empty slice disables body
	// matching.
	BodyPatterns []string

	// JSONPath, when set, restricts pattern matching to the value at that
	// path instead of the raw body (e.g. "error.reason").
	JSONPath string
}

// Matcher classifies responses. Safe for concurrent use once built.
type Matcher struct {
	limitStatus int
	patterns    []*regexp.Regexp
	jsonPath    string
}

// NewMatcher compiles the rules into a Matcher.
func NewMatcher(rules Rules) (*Matcher, error) {
	status := rules.LimitStatus
	if status == 0 {
		status = http.StatusTooManyRequests
	}

	raw := rules.BodyPatterns
	if raw == nil {
		raw = DefaultBodyPatterns
	}

	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, pattern := range raw {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("limit pattern %q: %w", pattern, err)
		}
		patterns = append(patterns, re)
	}

	return &Matcher{
		limitStatus: status,
		patterns:    patterns,
		jsonPath:    strings.TrimPrefix(strings.TrimSpace(rules.JSONPath), "$."),
	}, nil
}

// Classify maps a received response to a status class. The rate-limit
// signature is checked first so a matching body marks even a 200 response
// as rate-limited; then 2xx is success and everything else unknown.
// Transport failures never reach here; the executor records those as errors.
func (m *Matcher) Classify(statusCode int, body []byte) probe.StatusClass {
	if statusCode == m.limitStatus {
		return probe.ClassRateLimited
	}
	if m.matchBody(body) {
		return probe.ClassRateLimited
	}
	if statusCode >= 200 && statusCode < 300 {
		return probe.ClassSuccess
	}
	return probe.ClassUnknown
}

func (m *Matcher) matchBody(body []byte) bool {
	if len(m.patterns) == 0 || len(body) == 0 {
		return false
	}

	haystack := body
	if m.jsonPath != "" {
		result := gjson.GetBytes(body, m.jsonPath)
		if !result.Exists() {
			return false
		}
		haystack = []byte(result.String())
	}

	for _, re := range m.patterns {
		if re.Match(haystack) {
			return true
		}
	}
	return false
}
