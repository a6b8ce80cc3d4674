package observe

import (
	"context"
	"time"
)

// RequestFunc is the signature for an instrumented request body.
type RequestFunc func(ctx context.Context) ([]byte, error)

// Instrumentation wraps request processing with tracing, metrics, and
// logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe RequestFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and propagated
//     unchanged.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation from its parts.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	return &Instrumentation{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// FromObserver creates an Instrumentation from an Observer.
func FromObserver(obs Observer) (*Instrumentation, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Noop returns an Instrumentation that records nothing.
func Noop() *Instrumentation {
	return NewInstrumentation(NewNoopTracer(), NoopMetrics{}, &noopLogger{})
}

// Logger returns the instrumentation's logger.
func (in *Instrumentation) Logger() Logger {
	return in.logger
}

// Wrap wraps a request body with a span, duration metrics, and a completion
// log line.
func (in *Instrumentation) Wrap(meta RequestMeta, fn RequestFunc) RequestFunc {
	return func(ctx context.Context) ([]byte, error) {
		ctx, span := in.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx)

		duration := time.Since(start)
		in.tracer.EndSpan(span, err)
		in.metrics.RecordRequest(ctx, meta, duration, err)

		logger := in.logger.WithRequest(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "tool request failed", fields...)
		} else {
			logger.Info(ctx, "tool request completed", fields...)
		}

		return result, err
	}
}

// CacheHit records a cache hit for the request.
func (in *Instrumentation) CacheHit(ctx context.Context, meta RequestMeta) {
	in.metrics.RecordCacheHit(ctx, meta)
	in.logger.WithRequest(meta).Debug(ctx, "cache hit")
}

// Coalesced records a caller attached to an in-flight execution.
func (in *Instrumentation) Coalesced(ctx context.Context, meta RequestMeta) {
	in.metrics.RecordCoalesced(ctx, meta)
	in.logger.WithRequest(meta).Debug(ctx, "coalesced onto in-flight execution")
}

// TokensSaved records tokens saved by optimization.
func (in *Instrumentation) TokensSaved(ctx context.Context, meta RequestMeta, tokens int64) {
	in.metrics.RecordTokensSaved(ctx, meta, tokens)
}

// BudgetEnforced records a response reduced to fit the token budget.
func (in *Instrumentation) BudgetEnforced(ctx context.Context, meta RequestMeta) {
	in.metrics.RecordBudgetEnforced(ctx, meta)
	in.logger.WithRequest(meta).Debug(ctx, "token budget enforced")
}

// Degraded records a non-fatal subsystem failure the request survived.
func (in *Instrumentation) Degraded(ctx context.Context, meta RequestMeta, subsystem string, err error) {
	in.logger.WithRequest(meta).Warn(ctx, "degraded to direct execution",
		Field{Key: "subsystem", Value: subsystem},
		Field{Key: "error", Value: err.Error()},
	)
}
