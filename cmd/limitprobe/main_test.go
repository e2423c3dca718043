package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jperros/limitprobe/internal/config"
)

func TestRunCompletesSession(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := run([]string{
		"--target", server.URL,
		"--speed", "custom_rate",
		"--threshold", "3",
		"--timeslice", "300ms",
		"--no-record",
		"--json-output",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
}

func TestRunStopsOnLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) >= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Stopping on the first limited response is not an interrupt, so the
	// run still succeeds.
	err := run([]string{
		"--target", server.URL,
		"--speed", "custom_rate",
		"--threshold", "10",
		"--timeslice", "500ms",
		"--stop-on-limit",
		"--no-record",
		"--json-output",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got >= 10 {
		t.Errorf("server hits = %d, expected early stop", got)
	}
}

func TestRunReportsFailedAssertions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := run([]string{
		"--target", server.URL,
		"--speed", "custom_rate",
		"--threshold", "2",
		"--timeslice", "200ms",
		"--no-record",
		"--json-output",
		"--assert", "rate_limited:count > 0",
	})
	if err == nil || !strings.Contains(err.Error(), "assertion(s) failed") {
		t.Fatalf("err = %v, want failed assertion", err)
	}
}

func TestRunWritesSessionRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	err := run([]string{
		"--target", server.URL,
		"--speed", "custom_rate",
		"--threshold", "2",
		"--timeslice", "200ms",
		"--results-dir", dir,
		"--record-format", "json",
		"--json-output",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "ratelimit_*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("session records = %v, want exactly one", matches)
	}
}

func TestRunRejectsUnknownProfile(t *testing.T) {
	err := run([]string{"--target", "https://example.com", "--speed", "warp_speed", "--no-record"})
	if err == nil {
		t.Fatal("run accepted unknown speed profile")
	}
}

func TestRunRequiresTarget(t *testing.T) {
	err := run([]string{"--speed", "fast_rate", "--no-record"})
	if err == nil {
		t.Fatal("run accepted config without a target")
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("run --help: %v", err)
	}
}

func TestNewFeederInfersType(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, []byte("user\nalice\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	jsonPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"user":"alice"}]`), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	tests := []struct {
		name    string
		cfg     config.FeederConfig
		wantNil bool
		wantErr bool
	}{
		{"no feeder", config.FeederConfig{}, true, false},
		{"csv by extension", config.FeederConfig{Path: csvPath}, false, false},
		{"json by extension", config.FeederConfig{Path: jsonPath}, false, false},
		{"explicit type", config.FeederConfig{Path: csvPath, Type: "CSV"}, false, false},
		{"uninferable extension", config.FeederConfig{Path: filepath.Join(dir, "data.txt")}, false, true},
		{"unsupported type", config.FeederConfig{Path: csvPath, Type: "xml"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := newFeeder(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("newFeeder accepted invalid config")
				}
				return
			}
			if err != nil {
				t.Fatalf("newFeeder: %v", err)
			}
			if (f == nil) != tt.wantNil {
				t.Errorf("feeder = %v, wantNil = %v", f, tt.wantNil)
			}
			if f != nil {
				f.Close()
			}
		})
	}
}
