package httpclient

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/feeder"
)

func TestNewRequestBuilderDefaults(t *testing.T) {
	cfg := &config.Config{Hostname: "example.com", Path: "/login"}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if req.Method != "GET" {
		t.Errorf("Method = %q", req.Method)
	}
	if req.URL.String() != "https://example.com/login" {
		t.Errorf("URL = %q", req.URL)
	}
	if req.Header.Get("User-Agent") == "" {
		t.Error("browser User-Agent not set")
	}
	if req.Header.Get("Accept-Language") == "" {
		t.Error("Accept-Language not set")
	}
}

func TestNewRequestBuilderUserHeaderWins(t *testing.T) {
	cfg := &config.Config{
		Hostname: "example.com",
		Headers:  map[string]string{"user-agent": "probe/1.0"},
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := req.Header.Get("User-Agent"); got != "probe/1.0" {
		t.Errorf("User-Agent = %q, user header should win", got)
	}
}

func TestNewRequestBuilderFormBody(t *testing.T) {
	cfg := &config.Config{
		Hostname: "example.com",
		Method:   "post",
		Body:     "username=alice&password=secret",
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Method != "POST" {
		t.Errorf("Method = %q", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q, want form encoding inferred", got)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "username=alice&password=secret" {
		t.Errorf("body = %q", body)
	}
}

func TestNewRequestBuilderJSONBodyNotForm(t *testing.T) {
	cfg := &config.Config{
		Hostname: "example.com",
		Method:   "POST",
		Body:     `{"user":"alice"}`,
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := req.Header.Get("Content-Type"); got == "application/x-www-form-urlencoded" {
		t.Error("JSON body misdetected as form data")
	}
}

func TestNewRequestBuilderBodyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.txt")
	if err := os.WriteFile(path, []byte("payload-from-file"), 0o644); err != nil {
		t.Fatalf("write body file: %v", err)
	}

	cfg := &config.Config{Hostname: "example.com", Method: "POST", BodyFile: path}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "payload-from-file" {
		t.Errorf("body = %q", body)
	}
}

func TestNewRequestBuilderAuthToken(t *testing.T) {
	cfg := &config.Config{Hostname: "example.com", AuthToken: "tok123"}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok123" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestNewRequestBuilderRejectsBadHeaders(t *testing.T) {
	tests := []map[string]string{
		{"": "value"},
		{"X-Bad\r\nInjected": "value"},
		{"X-Key": "value\r\nInjected: yes"},
	}
	for _, headers := range tests {
		cfg := &config.Config{Hostname: "example.com", Headers: headers}
		if _, err := NewRequestBuilder(cfg); err == nil {
			t.Errorf("NewRequestBuilder accepted headers %v", headers)
		}
	}
}

func TestNewRequestBuilderRequiresTarget(t *testing.T) {
	if _, err := NewRequestBuilder(&config.Config{}); err == nil {
		t.Fatal("NewRequestBuilder accepted empty target")
	}
}

type staticFeeder struct {
	record feeder.Record
}

func (f *staticFeeder) Next(ctx context.Context) (feeder.Record, error) { return f.record, nil }
func (f *staticFeeder) Close() error                                    { return nil }
func (f *staticFeeder) Len() int                                        { return 1 }

func TestBuildAppliesPlaceholders(t *testing.T) {
	cfg := &config.Config{
		TargetURL: "https://example.com/users/{{user}}",
		Method:    "POST",
		Body:      "name={{user}}&city={{city}}",
		Headers:   map[string]string{"X-User": "{{user}}"},
	}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	builder.WithFeeder(&staticFeeder{record: feeder.Record{"user": "alice", "city": "lisbon"}})

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.URL.Path != "/users/alice" {
		t.Errorf("URL = %q", req.URL)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "name=alice&city=lisbon" {
		t.Errorf("body = %q", body)
	}
	if got := req.Header.Get("X-User"); got != "alice" {
		t.Errorf("X-User = %q", got)
	}
}

func TestBuildLeavesUnmatchedPlaceholders(t *testing.T) {
	cfg := &config.Config{TargetURL: "https://example.com/{{missing}}"}
	builder, err := NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder: %v", err)
	}
	builder.WithFeeder(&staticFeeder{record: feeder.Record{"user": "alice"}})

	req, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.URL.Path != "/%7B%7Bmissing%7D%7D" && req.URL.Path != "/{{missing}}" {
		t.Errorf("unmatched placeholder rewritten: %q", req.URL)
	}
}
