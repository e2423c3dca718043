package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResolvePlanNamedProfiles(t *testing.T) {
	for _, name := range Profiles() {
		cfg := &Config{Speed: name, Delay: DelayUnset}
		plan, err := ResolvePlan(cfg)
		if err != nil {
			t.Fatalf("ResolvePlan(%q) returned error: %v", name, err)
		}
		if plan.Profile != name {
			t.Errorf("ResolvePlan(%q).Profile = %q", name, plan.Profile)
		}
		if plan.Attempts < 1 || plan.Timeframe <= 0 || plan.Delay < 0 || plan.Workers < 1 {
			t.Errorf("ResolvePlan(%q) violates plan invariants: %+v", name, plan)
		}
	}
}

func TestResolvePlanProfileValues(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		delay    time.Duration
		workers  int
	}{
		{"slow_brute_force", 20, 30 * time.Second, 1},
		{"slow_rate", 6, 8 * time.Second, 1},
		{"high_rate", 10, 3 * time.Second, 1},
		{"fast_rate", 5, 400 * time.Millisecond, 1},
		{"ultra_high_rate", 150, 50 * time.Millisecond, 5},
	}
	for _, tt := range tests {
		plan, err := ResolvePlan(&Config{Speed: tt.name, Delay: DelayUnset})
		if err != nil {
			t.Fatalf("ResolvePlan(%q): %v", tt.name, err)
		}
		if plan.Attempts != tt.attempts || plan.Delay != tt.delay || plan.Workers != tt.workers {
			t.Errorf("ResolvePlan(%q) = %+v, want attempts=%d delay=%s workers=%d",
				tt.name, plan, tt.attempts, tt.delay, tt.workers)
		}
	}
}

func TestResolvePlanCustomRate(t *testing.T) {
	cfg := &Config{
		Speed:     "custom_rate",
		Threshold: 10,
		Timeslice: 60 * time.Second,
		Delay:     DelayUnset,
	}
	plan, err := ResolvePlan(cfg)
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	if plan.Attempts != 10 {
		t.Errorf("Attempts = %d, want 10", plan.Attempts)
	}
	if plan.Timeframe != 60*time.Second {
		t.Errorf("Timeframe = %s, want 60s", plan.Timeframe)
	}
	if plan.Delay != 6*time.Second {
		t.Errorf("Delay = %s, want 6s", plan.Delay)
	}
	if plan.Workers != 1 {
		t.Errorf("Workers = %d, want 1", plan.Workers)
	}
	if !plan.Sequential() {
		t.Error("custom_rate plan should be sequential")
	}
}

func TestResolvePlanCustomRateRequiresParameters(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		timeslice time.Duration
	}{
		{"missing threshold", 0, 60 * time.Second},
		{"missing timeslice", 10, 0},
		{"negative threshold", -1, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Speed:     "custom_rate",
				Threshold: tt.threshold,
				Timeslice: tt.timeslice,
				Delay:     DelayUnset,
			}
			if _, err := ResolvePlan(cfg); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("ResolvePlan error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestResolvePlanUnknownProfile(t *testing.T) {
	_, err := ResolvePlan(&Config{Speed: "warp_speed", Delay: DelayUnset})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("ResolvePlan error = %v, want ErrUnknownProfile", err)
	}
	for _, name := range Profiles() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error message %q does not list profile %q", err, name)
		}
	}
}

func TestResolvePlanOverrides(t *testing.T) {
	cfg := &Config{
		Speed:     "high_rate",
		Attempts:  25,
		Timeframe: 90 * time.Second,
		Delay:     time.Second,
		Workers:   3,
	}
	plan, err := ResolvePlan(cfg)
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	want := Plan{Profile: "high_rate", Attempts: 25, Timeframe: 90 * time.Second, Delay: time.Second, Workers: 3}
	if plan != want {
		t.Errorf("ResolvePlan = %+v, want %+v", plan, want)
	}
}

func TestResolvePlanZeroDelayOverride(t *testing.T) {
	cfg := &Config{Speed: "slow_rate", Delay: 0}
	plan, err := ResolvePlan(cfg)
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	if plan.Delay != 0 {
		t.Errorf("Delay = %s, want 0 (explicit zero override)", plan.Delay)
	}
}

func TestResolvePlanUnsetDelayKeepsProfile(t *testing.T) {
	cfg := &Config{Speed: "slow_rate", Delay: DelayUnset}
	plan, err := ResolvePlan(cfg)
	if err != nil {
		t.Fatalf("ResolvePlan: %v", err)
	}
	if plan.Delay != 8*time.Second {
		t.Errorf("Delay = %s, want profile default 8s", plan.Delay)
	}
}

func TestResolvePlanInvalidOverrides(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative attempts", Config{Speed: "slow_rate", Attempts: -2, Delay: DelayUnset}},
		{"negative delay", Config{Speed: "slow_rate", Delay: -time.Second}},
		{"negative workers", Config{Speed: "slow_rate", Workers: -1, Delay: DelayUnset}},
		{"negative timeframe", Config{Speed: "slow_rate", Timeframe: -time.Minute, Delay: DelayUnset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if _, err := ResolvePlan(&cfg); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("ResolvePlan error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}
