package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DelayUnset marks the delay override as not supplied. Zero is a valid
// user-facing delay, so the unset state needs its own sentinel.
const DelayUnset = time.Duration(-1)

// Config is the fully resolved invocation surface of limitprobe. Field
// values come from a config file (viper) with CLI flags layered on top.
type Config struct {
	Hostname  string            `mapstructure:"hostname"`
	TargetURL string            `mapstructure:"target"`
	Path      string            `mapstructure:"path"`
	Method    string            `mapstructure:"method"`
	Headers   map[string]string `mapstructure:"headers"`
	Body      string            `mapstructure:"body"`
	BodyFile  string            `mapstructure:"body_file"`

	Speed     string        `mapstructure:"speed"`
	Threshold int           `mapstructure:"threshold"`
	Timeslice time.Duration `mapstructure:"timeslice"`

	// Plan overrides. Zero means "keep the profile default", except Delay
	// which uses DelayUnset because an explicit zero delay is allowed.
	Attempts  int           `mapstructure:"attempts"`
	Timeframe time.Duration `mapstructure:"timeframe"`
	Delay     time.Duration `mapstructure:"delay"`
	Workers   int           `mapstructure:"workers"`

	Timeout   time.Duration `mapstructure:"timeout"`
	Insecure  bool          `mapstructure:"insecure"`
	AuthToken string        `mapstructure:"auth_token"`

	LimitStatus   int      `mapstructure:"limit_status"`
	LimitPatterns []string `mapstructure:"limit_patterns"`
	LimitJSONPath string   `mapstructure:"limit_json_path"`

	StopOnLimit      bool          `mapstructure:"stop_on_limit"`
	Jitter           time.Duration `mapstructure:"jitter"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`

	JSONOutput   bool   `mapstructure:"json_output"`
	Dashboard    bool   `mapstructure:"dashboard"`
	LogFailures  bool   `mapstructure:"log_failures"`
	HTMLOutput   string `mapstructure:"html_output"`
	ResultsDir   string `mapstructure:"results_dir"`
	RecordFormat string `mapstructure:"record_format"`
	NoRecord     bool   `mapstructure:"no_record"`

	Assertions []string      `mapstructure:"assertions"`
	Feeder     FeederConfig  `mapstructure:"feeder"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// FeederConfig points at a dataset supplying per-attempt records.
type FeederConfig struct {
	Path string `mapstructure:"path"`
	Type string `mapstructure:"type"` // "csv" or "json"
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// ShouldPropagate reports whether W3C trace headers are injected into
// outgoing probe requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled && t.Propagate
}

// Target returns the URL the probe hits: TargetURL verbatim when set,
// otherwise https://<hostname><path>.
func (c Config) Target() string {
	if t := strings.TrimSpace(c.TargetURL); t != "" {
		return t
	}
	path := c.Path
	if path == "" {
		path = "/"
	} else if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://" + strings.TrimSpace(c.Hostname) + path
}

// ValidationError aggregates every configuration problem found so the user
// can fix them in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns a copy of the individual problems.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks everything that can be checked before any request is
// issued. Profile resolution has its own error path in ResolvePlan.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Hostname) == "" && strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "hostname or target is required (use --help for usage information)")
	}
	if strings.TrimSpace(c.Speed) == "" {
		issues = append(issues, "speed is required")
	}
	if c.Threshold < 0 {
		issues = append(issues, "threshold must be >= 1")
	}
	if c.Timeslice < 0 {
		issues = append(issues, "timeslice must be > 0")
	}
	if c.Attempts < 0 {
		issues = append(issues, "attempts must be >= 1")
	}
	if c.Timeframe < 0 {
		issues = append(issues, "timeframe must be > 0")
	}
	if c.Delay < 0 && c.Delay != DelayUnset {
		issues = append(issues, "delay must be >= 0")
	}
	if c.Workers < 0 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Jitter < 0 {
		issues = append(issues, "jitter must be >= 0")
	}
	if c.LimitStatus != 0 && http.StatusText(c.LimitStatus) == "" {
		issues = append(issues, fmt.Sprintf("limit-status %d is not a recognized HTTP status code", c.LimitStatus))
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	switch strings.ToLower(strings.TrimSpace(c.RecordFormat)) {
	case "", "text", "json", "yaml":
	default:
		issues = append(issues, fmt.Sprintf("record-format must be 'text', 'json', or 'yaml', got %q", c.RecordFormat))
	}

	issues = append(issues, validateFeederConfig(c.Feeder)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateFeederConfig(feeder FeederConfig) []string {
	var issues []string
	if strings.TrimSpace(feeder.Path) == "" {
		return nil
	}
	// An empty type is inferred from the file extension later.
	if t := strings.TrimSpace(feeder.Type); t != "" && t != "csv" && t != "json" {
		issues = append(issues, fmt.Sprintf("feeder: type must be 'csv' or 'json', got %q", feeder.Type))
	}
	return issues
}

func validateTracingConfig(tracing TracingConfig) []string {
	var issues []string
	if !tracing.Enabled {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(tracing.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", tracing.Protocol))
	}
	if tracing.SampleRate < 0 || tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", tracing.SampleRate))
	}
	return issues
}
