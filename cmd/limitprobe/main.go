package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jperros/limitprobe/internal/analysis"
	"github.com/jperros/limitprobe/internal/config"
	"github.com/jperros/limitprobe/internal/dashboard"
	"github.com/jperros/limitprobe/internal/httpclient"
	"github.com/jperros/limitprobe/internal/metrics"
	"github.com/jperros/limitprobe/internal/output"
	"github.com/jperros/limitprobe/internal/probe"
	"github.com/jperros/limitprobe/internal/scheduler"
	"github.com/jperros/limitprobe/internal/signature"
	"github.com/jperros/limitprobe/internal/tracing"
)

const progressInterval = time.Second

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(outcome probe.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case outcome.Err != nil:
		fmt.Fprintf(os.Stderr, "[limitprobe] attempt #%d failed: %v\n", outcome.Index, outcome.Err)
	case outcome.StatusCode != 0:
		fmt.Fprintf(os.Stderr, "[limitprobe] attempt #%d: %s (HTTP %d)\n", outcome.Index, outcome.Class, outcome.StatusCode)
	default:
		fmt.Fprintf(os.Stderr, "[limitprobe] attempt #%d: %s\n", outcome.Index, outcome.Class)
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plan, err := config.ResolvePlan(cfg)
	if err != nil {
		return err
	}

	assertions, err := analysis.ParseAssertions(cfg.Assertions)
	if err != nil {
		return err
	}

	matcher, err := signature.NewMatcher(signature.Rules{
		LimitStatus:  cfg.LimitStatus,
		BodyPatterns: cfg.LimitPatterns,
		JSONPath:     cfg.LimitJSONPath,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = provider.Shutdown(shutdownCtx)
	}()

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}
	if provider.ShouldPropagate() {
		builder.WithTracePropagation()
	}

	dataFeeder, err := newFeeder(cfg.Feeder)
	if err != nil {
		return err
	}
	if dataFeeder != nil {
		defer dataFeeder.Close()
		builder.WithFeeder(dataFeeder)
	}

	client := httpclient.NewClient(cfg.Timeout, cfg.Insecure)

	var executor probe.Executor = probe.NewHTTPExecutor(client, builder, matcher)
	if cfg.Tracing.Enabled {
		executor = probe.WithTracing(executor, provider.Tracer(), cfg.Target())
	}
	if cfg.LogFailures {
		executor = probe.WithLogging(executor, &stderrFailureLogger{})
	}

	aggregator := metrics.NewAggregator(plan)

	sched := scheduler.New(scheduler.Options{
		Attempts:    plan.Attempts,
		Delay:       plan.Delay,
		Jitter:      cfg.Jitter,
		Workers:     plan.Workers,
		Executor:    executor,
		Sink:        aggregator,
		StopOnLimit: cfg.StopOnLimit,
		Grace:       cfg.GracefulShutdown,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(aggregator, dashboard.SessionInfo{
			Target: cfg.Target(),
			Plan:   plan,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(aggregator, plan.Attempts, progressInterval, os.Stdout)
		progress.Start()
	}

	// Mark the actual start so elapsed-time stats exclude setup cost.
	aggregator.Start()
	runResult := sched.Run(ctx)

	if progress != nil {
		progress.Stop()
	}
	if dash != nil {
		dash.Stop()
	}

	session := aggregator.Finalize(runResult.Partial)
	stats := aggregator.Stats(runResult.Duration)
	inference := analysis.InferLimit(session)
	assertionResults := analysis.Evaluate(assertions, stats)
	report := output.NewReport(session, stats, inference, assertionResults)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, report, assertionResults)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report, cfg.Target()); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if !cfg.NoRecord {
		recorder, err := output.NewRecorder(cfg.ResultsDir, output.RecordFormat(strings.ToLower(cfg.RecordFormat)))
		if err != nil {
			return err
		}
		path, err := recorder.Write(report)
		if err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "Session record written to %s\n", path)
		}
	}

	var failedAssertions int
	for _, r := range assertionResults {
		if !r.Pass {
			failedAssertions++
		}
	}
	if failedAssertions > 0 {
		return fmt.Errorf("%d assertion(s) failed", failedAssertions)
	}

	if runResult.Partial && ctx.Err() != nil {
		return fmt.Errorf("session interrupted after %d of %d attempts", runResult.Completed, plan.Attempts)
	}
	return nil
}

func writeHTMLReport(path string, report output.Report, target string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	defer file.Close()
	return output.GenerateHTMLReport(file, report, target)
}
