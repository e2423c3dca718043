package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "limitprobe",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("hostname", "", "Target hostname (probed as https://<hostname><path>)")
	flags.String("target", "", "Full target URL (overrides --hostname)")
	flags.String("path", "/", "Request path appended to --hostname")
	flags.String("method", "GET", "HTTP method to use")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")

	// Cadence flags
	flags.StringP("speed", "s", "", "Speed profile: "+profilesFlagHelp())
	flags.Int("threshold", 0, "Suspected rate-limit threshold in requests (required for custom_rate)")
	flags.Duration("timeslice", 0, "Suspected rate-limit window (required for custom_rate)")
	flags.IntP("attempts", "a", 0, "Override the profile's attempt count")
	flags.Duration("timeframe", 0, "Override the profile's timeframe")
	flags.Duration("delay", 0, "Override the profile's inter-request delay (0 is allowed)")
	flags.IntP("workers", "w", 0, "Override the profile's worker count")
	flags.Duration("jitter", 0, "Random per-dispatch jitter added to the delay")

	// Request flags
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.String("auth-token", "", "Static bearer token sent with every attempt")

	// Detection flags
	flags.Int("limit-status", 429, "HTTP status code treated as rate-limited")
	flags.StringSlice("limit-pattern", nil, "Body pattern that marks a response rate-limited (repeatable)")
	flags.String("limit-json-path", "", "JSON path whose value is matched against --limit-pattern")
	flags.Bool("stop-on-limit", false, "Cancel the session on the first rate-limited outcome")
	flags.Duration("graceful-shutdown", 5*time.Second, "Max time to wait for in-flight attempts after cancellation")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-failures", false, "Log each non-success outcome to stderr")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("results-dir", "results", "Directory for persisted session records")
	flags.String("record-format", "text", "Session record format: 'text', 'json', or 'yaml'")
	flags.Bool("no-record", false, "Skip writing the session record")
	flags.StringSlice("assert", nil, "Session assertion (repeatable, e.g. 'probe_success:rate >= 0.9')")

	// Feeder flags
	flags.String("feeder-path", "", "Path to CSV or JSON file with per-attempt data records")
	flags.String("feeder-type", "", "Type of feeder file: 'csv' or 'json'")

	// Tracing flags
	flags.Bool("trace", false, "Enable OpenTelemetry tracing")
	flags.String("trace-endpoint", "", "OTLP exporter endpoint")
	flags.String("trace-protocol", "grpc", "OTLP exporter protocol: 'grpc' or 'http'")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

func profilesFlagHelp() string {
	names := Profiles()
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out + ", or " + SpeedCustomRate
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if err := applyStringFlags(cfg, fs); err != nil {
		return err
	}
	if err := applyCadenceFlags(cfg, fs); err != nil {
		return err
	}
	if err := applyOutputFlags(cfg, fs); err != nil {
		return err
	}
	return applyNestedFlags(cfg, fs)
}

func applyStringFlags(cfg *Config, fs *pflag.FlagSet) error {
	for _, bind := range []struct {
		name string
		dst  *string
	}{
		{"hostname", &cfg.Hostname},
		{"target", &cfg.TargetURL},
		{"path", &cfg.Path},
		{"method", &cfg.Method},
		{"body", &cfg.Body},
		{"body-file", &cfg.BodyFile},
		{"auth-token", &cfg.AuthToken},
		{"limit-json-path", &cfg.LimitJSONPath},
		{"html-output", &cfg.HTMLOutput},
		{"results-dir", &cfg.ResultsDir},
		{"record-format", &cfg.RecordFormat},
	} {
		if !fs.Changed(bind.name) {
			continue
		}
		val, err := fs.GetString(bind.name)
		if err != nil {
			return err
		}
		*bind.dst = val
	}

	if fs.Changed("header") {
		pairs, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, pair := range pairs {
			key, value, err := splitHeaderPair(pair)
			if err != nil {
				return err
			}
			cfg.Headers[key] = value
		}
	}
	return nil
}

func applyCadenceFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("speed") {
		val, err := fs.GetString("speed")
		if err != nil {
			return err
		}
		cfg.Speed = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetInt("threshold")
		if err != nil {
			return err
		}
		cfg.Threshold = val
	}
	if fs.Changed("attempts") {
		val, err := fs.GetInt("attempts")
		if err != nil {
			return err
		}
		cfg.Attempts = val
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = val
	}
	for _, bind := range []struct {
		name string
		dst  *time.Duration
	}{
		{"timeslice", &cfg.Timeslice},
		{"timeframe", &cfg.Timeframe},
		{"delay", &cfg.Delay},
		{"jitter", &cfg.Jitter},
		{"timeout", &cfg.Timeout},
		{"graceful-shutdown", &cfg.GracefulShutdown},
	} {
		if !fs.Changed(bind.name) {
			continue
		}
		val, err := fs.GetDuration(bind.name)
		if err != nil {
			return err
		}
		*bind.dst = val
	}
	return nil
}

func applyOutputFlags(cfg *Config, fs *pflag.FlagSet) error {
	for _, bind := range []struct {
		name string
		dst  *bool
	}{
		{"insecure", &cfg.Insecure},
		{"stop-on-limit", &cfg.StopOnLimit},
		{"json-output", &cfg.JSONOutput},
		{"dashboard", &cfg.Dashboard},
		{"log-failures", &cfg.LogFailures},
		{"no-record", &cfg.NoRecord},
	} {
		if !fs.Changed(bind.name) {
			continue
		}
		val, err := fs.GetBool(bind.name)
		if err != nil {
			return err
		}
		*bind.dst = val
	}

	if fs.Changed("limit-status") {
		val, err := fs.GetInt("limit-status")
		if err != nil {
			return err
		}
		cfg.LimitStatus = val
	}
	if fs.Changed("limit-pattern") {
		vals, err := fs.GetStringSlice("limit-pattern")
		if err != nil {
			return err
		}
		cfg.LimitPatterns = vals
	}
	if fs.Changed("assert") {
		vals, err := fs.GetStringSlice("assert")
		if err != nil {
			return err
		}
		cfg.Assertions = vals
	}
	return nil
}

func applyNestedFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("feeder-path") {
		val, err := fs.GetString("feeder-path")
		if err != nil {
			return err
		}
		cfg.Feeder.Path = val
	}
	if fs.Changed("feeder-type") {
		val, err := fs.GetString("feeder-type")
		if err != nil {
			return err
		}
		cfg.Feeder.Type = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = val
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	return nil
}
