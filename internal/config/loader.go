package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. File values apply first, flags override.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Method:           "GET",
		Path:             "/",
		Headers:          map[string]string{},
		Delay:            DelayUnset,
		Timeout:          10 * time.Second,
		GracefulShutdown: 5 * time.Second,
		LimitStatus:      http.StatusTooManyRequests,
		ResultsDir:       "results",
		RecordFormat:     "text",
		Tracing:          TracingConfig{SampleRate: 1},
		ConfigFile:       configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.Hostname = strings.TrimSpace(cfg.Hostname)
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	cfg.Speed = strings.ToLower(strings.TrimSpace(cfg.Speed))
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if err := applyTargetSettings(cfg, settings); err != nil {
		return err
	}
	if err := applyCadenceSettings(cfg, settings); err != nil {
		return err
	}
	if err := applyDetectionSettings(cfg, settings); err != nil {
		return err
	}
	if err := applyOutputSettings(cfg, settings); err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "feeder"); ok {
		feeder, err := parseFeeder(raw)
		if err != nil {
			return fmt.Errorf("feeder: %w", err)
		}
		cfg.Feeder = feeder
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func applyTargetSettings(cfg *Config, settings map[string]interface{}) error {
	for _, bind := range []struct {
		keys []string
		dst  *string
		trim bool
	}{
		{[]string{"hostname"}, &cfg.Hostname, true},
		{[]string{"target"}, &cfg.TargetURL, true},
		{[]string{"path"}, &cfg.Path, true},
		{[]string{"method"}, &cfg.Method, false},
		{[]string{"body"}, &cfg.Body, false},
		{[]string{"bodyfile", "body_file", "body-file"}, &cfg.BodyFile, true},
		{[]string{"authtoken", "auth_token", "auth-token"}, &cfg.AuthToken, true},
	} {
		raw, ok := lookupSetting(settings, bind.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", bind.keys[0], err)
		}
		if bind.trim {
			val = strings.TrimSpace(val)
		}
		if val != "" {
			*bind.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}
	return nil
}

func applyCadenceSettings(cfg *Config, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "speed"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("speed: %w", err)
		}
		cfg.Speed = val
	}
	for _, bind := range []struct {
		keys []string
		dst  *int
	}{
		{[]string{"threshold"}, &cfg.Threshold},
		{[]string{"attempts"}, &cfg.Attempts},
		{[]string{"workers", "threads"}, &cfg.Workers},
	} {
		raw, ok := lookupSetting(settings, bind.keys...)
		if !ok {
			continue
		}
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", bind.keys[0], err)
		}
		*bind.dst = val
	}
	for _, bind := range []struct {
		keys []string
		dst  *time.Duration
	}{
		{[]string{"timeslice"}, &cfg.Timeslice},
		{[]string{"timeframe"}, &cfg.Timeframe},
		{[]string{"delay"}, &cfg.Delay},
		{[]string{"jitter"}, &cfg.Jitter},
		{[]string{"timeout"}, &cfg.Timeout},
		{[]string{"gracefulshutdown", "graceful_shutdown", "graceful-shutdown"}, &cfg.GracefulShutdown},
	} {
		raw, ok := lookupSetting(settings, bind.keys...)
		if !ok {
			continue
		}
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", bind.keys[0], err)
		}
		*bind.dst = val
	}
	return nil
}

func applyDetectionSettings(cfg *Config, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "limitstatus", "limit_status", "limit-status"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("limitStatus: %w", err)
		}
		cfg.LimitStatus = val
	}
	if raw, ok := lookupSetting(settings, "limitpatterns", "limit_patterns", "limit-patterns"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("limitPatterns: %w", err)
		}
		cfg.LimitPatterns = vals
	}
	if raw, ok := lookupSetting(settings, "limitjsonpath", "limit_json_path", "limit-json-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("limitJsonPath: %w", err)
		}
		cfg.LimitJSONPath = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "stoponlimit", "stop_on_limit", "stop-on-limit"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("stopOnLimit: %w", err)
		}
		cfg.StopOnLimit = val
	}
	if raw, ok := lookupSetting(settings, "assertions", "asserts"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("assertions: %w", err)
		}
		cfg.Assertions = vals
	}
	return nil
}

func applyOutputSettings(cfg *Config, settings map[string]interface{}) error {
	for _, bind := range []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"jsonoutput", "json_output", "json-output"}, &cfg.JSONOutput},
		{[]string{"dashboard"}, &cfg.Dashboard},
		{[]string{"logfailures", "log_failures", "log-failures"}, &cfg.LogFailures},
		{[]string{"norecord", "no_record", "no-record"}, &cfg.NoRecord},
	} {
		raw, ok := lookupSetting(settings, bind.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", bind.keys[0], err)
		}
		*bind.dst = val
	}
	for _, bind := range []struct {
		keys []string
		dst  *string
	}{
		{[]string{"htmloutput", "html_output", "html-output"}, &cfg.HTMLOutput},
		{[]string{"resultsdir", "results_dir", "results-dir"}, &cfg.ResultsDir},
		{[]string{"recordformat", "record_format", "record-format"}, &cfg.RecordFormat},
	} {
		raw, ok := lookupSetting(settings, bind.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", bind.keys[0], err)
		}
		if val = strings.TrimSpace(val); val != "" {
			*bind.dst = val
		}
	}
	return nil
}

func parseFeeder(value interface{}) (FeederConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return FeederConfig{}, err
	}
	var feeder FeederConfig
	if raw, ok := lookupSetting(settings, "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return FeederConfig{}, fmt.Errorf("path: %w", err)
		}
		feeder.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return FeederConfig{}, fmt.Errorf("type: %w", err)
		}
		feeder.Type = strings.ToLower(strings.TrimSpace(val))
	}
	return feeder, nil
}

func parseTracing(value interface{}) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	// Sampling defaults to always-on; an explicit 0 disables it.
	tracing := TracingConfig{SampleRate: 1}
	if raw, ok := lookupSetting(settings, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("enabled: %w", err)
		}
		tracing.Enabled = val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("serviceName: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sampleRate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = val
	}
	return tracing, nil
}

func splitHeaderPair(pair string) (string, string, error) {
	idx := strings.Index(pair, "=")
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid header %q (expected key=value)", pair)
	}
	key := strings.TrimSpace(pair[:idx])
	if key == "" {
		return "", "", fmt.Errorf("invalid header %q (empty key)", pair)
	}
	return http.CanonicalHeaderKey(key), strings.TrimSpace(pair[idx+1:]), nil
}
