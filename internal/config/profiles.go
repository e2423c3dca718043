package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile resolution errors. Both fail the run before any request is issued.
var (
	ErrUnknownProfile   = errors.New("unknown speed profile")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// SpeedCustomRate derives the plan from an explicit threshold/timeslice pair
// instead of a named profile.
const SpeedCustomRate = "custom_rate"

// Plan is the immutable execution plan the scheduler runs: how many attempts,
// over which window, with what inter-request delay and worker count.
type Plan struct {
	Profile   string        `json:"profile"`
	Attempts  int           `json:"attempts"`
	Timeframe time.Duration `json:"timeframe"`
	Delay     time.Duration `json:"delay"`
	Workers   int           `json:"workers"`
}

// Sequential reports whether the plan runs one attempt at a time.
func (p Plan) Sequential() bool {
	return p.Workers <= 1
}

var speedProfiles = map[string]Plan{
	"slow_brute_force": {Profile: "slow_brute_force", Attempts: 20, Timeframe: 600 * time.Second, Delay: 30 * time.Second, Workers: 1},
	"slow_rate":        {Profile: "slow_rate", Attempts: 6, Timeframe: 60 * time.Second, Delay: 8 * time.Second, Workers: 1},
	"high_rate":        {Profile: "high_rate", Attempts: 10, Timeframe: 30 * time.Second, Delay: 3 * time.Second, Workers: 1},
	"fast_rate":        {Profile: "fast_rate", Attempts: 5, Timeframe: 2 * time.Second, Delay: 400 * time.Millisecond, Workers: 1},
	"ultra_high_rate":  {Profile: "ultra_high_rate", Attempts: 150, Timeframe: 5 * time.Second, Delay: 50 * time.Millisecond, Workers: 5},
}

// Profiles returns the named profile identifiers in sorted order.
func Profiles() []string {
	names := make([]string, 0, len(speedProfiles))
	for name := range speedProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvePlan maps the configured speed (or custom threshold/timeslice pair)
// to a concrete Plan, then layers any explicit attempts/timeframe/delay/
// workers overrides on top. The returned plan always satisfies attempts >= 1,
// timeframe > 0, delay >= 0, workers >= 1.
func ResolvePlan(cfg *Config) (Plan, error) {
	speed := strings.ToLower(strings.TrimSpace(cfg.Speed))

	var plan Plan
	if speed == SpeedCustomRate {
		if cfg.Threshold < 1 || cfg.Timeslice <= 0 {
			return Plan{}, fmt.Errorf("%w: custom_rate requires --threshold >= 1 and --timeslice > 0", ErrInvalidParameter)
		}
		plan = Plan{
			Profile:   SpeedCustomRate,
			Attempts:  cfg.Threshold,
			Timeframe: cfg.Timeslice,
			Delay:     cfg.Timeslice / time.Duration(cfg.Threshold),
			Workers:   1,
		}
	} else {
		named, ok := speedProfiles[speed]
		if !ok {
			return Plan{}, fmt.Errorf("%w: %q (expected one of %s, or %s)",
				ErrUnknownProfile, cfg.Speed, strings.Join(Profiles(), ", "), SpeedCustomRate)
		}
		plan = named
	}

	if cfg.Attempts != 0 {
		if cfg.Attempts < 1 {
			return Plan{}, fmt.Errorf("%w: attempts must be >= 1, got %d", ErrInvalidParameter, cfg.Attempts)
		}
		plan.Attempts = cfg.Attempts
	}
	if cfg.Timeframe != 0 {
		if cfg.Timeframe <= 0 {
			return Plan{}, fmt.Errorf("%w: timeframe must be > 0, got %s", ErrInvalidParameter, cfg.Timeframe)
		}
		plan.Timeframe = cfg.Timeframe
	}
	if cfg.Delay != DelayUnset {
		if cfg.Delay < 0 {
			return Plan{}, fmt.Errorf("%w: delay must be >= 0, got %s", ErrInvalidParameter, cfg.Delay)
		}
		plan.Delay = cfg.Delay
	}
	if cfg.Workers != 0 {
		if cfg.Workers < 1 {
			return Plan{}, fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidParameter, cfg.Workers)
		}
		plan.Workers = cfg.Workers
	}

	if plan.Attempts < 1 || plan.Timeframe <= 0 || plan.Delay < 0 || plan.Workers < 1 {
		return Plan{}, fmt.Errorf("%w: resolved plan %+v violates plan invariants", ErrInvalidParameter, plan)
	}
	return plan, nil
}
