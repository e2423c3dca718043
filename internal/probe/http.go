package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jperros/limitprobe/internal/httpclient"
)

// maxClassifiedBodyBytes bounds how much of a response body is read for
// signature matching.
const maxClassifiedBodyBytes = 64 * 1024

// HTTPExecutor performs one HTTP attempt per Execute call. It absorbs every
// failure into the outcome: transport errors, timeouts, and malformed
// responses all come back as ClassError, never as a returned error.
type HTTPExecutor struct {
	client     *http.Client
	builder    *httpclient.RequestBuilder
	classifier Classifier
}

// NewHTTPExecutor wires a client, request builder, and classifier together.
func NewHTTPExecutor(client *http.Client, builder *httpclient.RequestBuilder, classifier Classifier) *HTTPExecutor {
	return &HTTPExecutor{
		client:     client,
		builder:    builder,
		classifier: classifier,
	}
}

// Execute issues the attempt and classifies whatever comes back. Latency is
// measured start-to-response, or start-to-failure when no response arrives.
func (e *HTTPExecutor) Execute(ctx context.Context, attempt Attempt) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	outcome := Outcome{
		Index:    attempt.Index,
		IssuedAt: attempt.IssuedAt,
	}
	start := time.Now()

	req, err := e.builder.Build(ctx)
	if err != nil {
		outcome.Latency = time.Since(start)
		outcome.Class = ClassError
		outcome.Err = err
		return outcome
	}

	resp, err := e.client.Do(req)
	outcome.Latency = time.Since(start)
	if err != nil {
		outcome.Class = ClassError
		outcome.Err = err
		return outcome
	}
	defer resp.Body.Close()

	outcome.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxClassifiedBodyBytes))
	if err != nil {
		outcome.Class = ClassError
		outcome.Err = err
		return outcome
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	outcome.Class = e.classifier.Classify(resp.StatusCode, body)
	return outcome
}
