package probe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jperros/limitprobe/internal/tracing"
)

// FailureLogger receives attempt failures as they happen.
type FailureLogger interface {
	LogFailure(outcome Outcome)
}

type loggingExecutor struct {
	inner  Executor
	logger FailureLogger
}

// WithLogging wraps an Executor to report every non-success outcome to the
// logger before passing it through.
func WithLogging(inner Executor, logger FailureLogger) Executor {
	return &loggingExecutor{inner: inner, logger: logger}
}

func (l *loggingExecutor) Execute(ctx context.Context, attempt Attempt) Outcome {
	outcome := l.inner.Execute(ctx, attempt)
	if outcome.Failed() {
		l.logger.LogFailure(outcome)
	}
	return outcome
}

type tracedExecutor struct {
	inner  Executor
	tracer trace.Tracer
	target string
}

// WithTracing wraps an Executor so every attempt runs inside a client span.
// A no-op tracer makes the wrapper free apart from the span bookkeeping.
func WithTracing(inner Executor, tracer trace.Tracer, target string) Executor {
	return &tracedExecutor{inner: inner, tracer: tracer, target: target}
}

func (t *tracedExecutor) Execute(ctx context.Context, attempt Attempt) Outcome {
	ctx, span := tracing.StartAttemptSpan(ctx, t.tracer, t.target, attempt.Index)
	outcome := t.inner.Execute(ctx, attempt)

	attrs := []attribute.KeyValue{
		attribute.String("limitprobe.class", string(outcome.Class)),
	}
	if outcome.StatusCode != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", outcome.StatusCode))
	}
	tracing.EndSpan(span, outcome.Err, attrs...)
	return outcome
}
