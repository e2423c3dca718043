package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/feeder"
	"github.com/jperros/limitprobe/internal/tracing"
)

// defaultHeaders mimic an ordinary browser session so the probe observes the
// same rate-limit behavior a real client would. Any user-supplied header of
// the same name wins.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// RequestBuilder assembles one probe request per attempt. Immutable after
// construction; Build is safe for concurrent use when no feeder is attached
// (feeders serialize internally).
type RequestBuilder struct {
	method    string
	target    string
	headers   http.Header
	body      string
	authToken string
	feeder    feeder.Feeder
	propagate bool
}

// NewRequestBuilder builds the request template from config.
func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := cfg.Target()
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	body := cfg.Body
	if cfg.BodyFile != "" {
		data, err := os.ReadFile(cfg.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		body = string(data)
	}

	headers := http.Header{}
	for key, value := range defaultHeaders {
		headers.Set(key, value)
	}
	if body != "" && looksLikeForm(body) {
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, value := range cfg.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmed)
		}
		headers.Set(http.CanonicalHeaderKey(trimmed), value)
	}

	return &RequestBuilder{
		method:    method,
		target:    target,
		headers:   headers,
		body:      body,
		authToken: strings.TrimSpace(cfg.AuthToken),
	}, nil
}

// WithFeeder attaches a per-attempt data feeder. Records are substituted into
// {{field}} placeholders in the URL, body, and header values.
func (b *RequestBuilder) WithFeeder(src feeder.Feeder) *RequestBuilder {
	b.feeder = src
	return b
}

// WithTracePropagation makes Build inject W3C trace context headers from the
// request context into every outgoing request.
func (b *RequestBuilder) WithTracePropagation() *RequestBuilder {
	b.propagate = true
	return b
}

// Build assembles the request for one attempt.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var record feeder.Record
	if b.feeder != nil {
		var err error
		record, err = b.feeder.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("feeder: %w", err)
		}
	}

	target := applyPlaceholders(b.target, record)
	body := applyPlaceholders(b.body, record)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, b.method, target, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, b.method, target, nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header = make(http.Header, len(b.headers))
	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, applyPlaceholders(val, record))
		}
	}
	if b.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.authToken)
	}
	if b.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	return req, nil
}

// applyPlaceholders replaces {{field}} tokens with record values. Unmatched
// tokens are left intact so misconfigured names are visible in the target log.
func applyPlaceholders(s string, record feeder.Record) string {
	if len(record) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	for key, value := range record {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}

func looksLikeForm(body string) bool {
	body = strings.TrimSpace(body)
	if body == "" || strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") || strings.HasPrefix(body, "<") {
		return false
	}
	return strings.Contains(body, "=")
}
