package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records pipeline request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; never block the request path.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one completed request with duration and error status.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordCacheHit records a response served from the durable cache.
	RecordCacheHit(ctx context.Context, meta RequestMeta)

	// RecordCoalesced records a caller attached to an in-flight execution.
	RecordCoalesced(ctx context.Context, meta RequestMeta)

	// RecordTokensSaved records tokens saved by optimization for one request.
	RecordTokensSaved(ctx context.Context, meta RequestMeta, tokens int64)

	// RecordBudgetEnforced records a response reduced to fit the token budget.
	RecordBudgetEnforced(ctx context.Context, meta RequestMeta)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	requestCount   metric.Int64Counter
	errorCount     metric.Int64Counter
	cacheHits      metric.Int64Counter
	coalesced      metric.Int64Counter
	tokensSaved    metric.Int64Counter
	budgetEnforced metric.Int64Counter
	durationHist   metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	requestCount, err := meter.Int64Counter(
		"pipeline.requests.total",
		metric.WithDescription("Total number of processed tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"pipeline.request.errors",
		metric.WithDescription("Total number of failed tool requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"pipeline.cache.hits",
		metric.WithDescription("Responses served from the durable cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	coalesced, err := meter.Int64Counter(
		"pipeline.dedupe.coalesced",
		metric.WithDescription("Callers coalesced onto in-flight executions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	tokensSaved, err := meter.Int64Counter(
		"pipeline.tokens.saved",
		metric.WithDescription("Tokens saved by response optimization"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	budgetEnforced, err := meter.Int64Counter(
		"pipeline.budget.enforced",
		metric.WithDescription("Responses reduced to fit the token budget"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"pipeline.request.duration_ms",
		metric.WithDescription("Tool request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requestCount:   requestCount,
		errorCount:     errorCount,
		cacheHits:      cacheHits,
		coalesced:      coalesced,
		tokensSaved:    tokensSaved,
		budgetEnforced: budgetEnforced,
		durationHist:   durationHist,
	}, nil
}

func requestAttrs(meta RequestMeta) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tool.name", meta.Tool))
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	opt := requestAttrs(meta)

	m.requestCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheHit(ctx context.Context, meta RequestMeta) {
	m.cacheHits.Add(ctx, 1, requestAttrs(meta))
}

func (m *metricsImpl) RecordCoalesced(ctx context.Context, meta RequestMeta) {
	m.coalesced.Add(ctx, 1, requestAttrs(meta))
}

func (m *metricsImpl) RecordTokensSaved(ctx context.Context, meta RequestMeta, tokens int64) {
	if tokens <= 0 {
		return
	}
	m.tokensSaved.Add(ctx, tokens, requestAttrs(meta))
}

func (m *metricsImpl) RecordBudgetEnforced(ctx context.Context, meta RequestMeta) {
	m.budgetEnforced.Add(ctx, 1, requestAttrs(meta))
}

// NoopMetrics is a metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
}
func (NoopMetrics) RecordCacheHit(ctx context.Context, meta RequestMeta)                  {}
func (NoopMetrics) RecordCoalesced(ctx context.Context, meta RequestMeta)                 {}
func (NoopMetrics) RecordTokensSaved(ctx context.Context, meta RequestMeta, tokens int64) {}
func (NoopMetrics) RecordBudgetEnforced(ctx context.Context, meta RequestMeta)            {}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = NoopMetrics{}
)
