package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolcontext/cache"
	"github.com/jonwraymond/toolcontext/dedupe"
	"github.com/jonwraymond/toolcontext/fingerprint"
	"github.com/jonwraymond/toolcontext/observe"
	"github.com/jonwraymond/toolcontext/suggest"
	"github.com/jonwraymond/toolcontext/summarize"
	"github.com/jonwraymond/toolcontext/tokens"
)

// OptimizationBudget is the marker recorded in Result.Optimizations when
// the token-budget stage acted on the response.
const OptimizationBudget = "budget-enforcement"

// Result is the outcome of one processed tool request.
type Result struct {
	RequestID     string
	Response      []byte
	Cached        bool
	Deduplicated  bool
	TokensSaved   int
	Optimizations []string
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Statistics is an aggregate snapshot across all subsystems.
type Statistics struct {
	Cache           cache.Stats
	Dedupe          dedupe.Stats
	Tokens          tokens.Metrics
	EfficiencyScore float64
}

// Pipeline composes fingerprinting, caching, deduplication, usage
// tracking, summarization, budget enforcement, and suggestion into one
// request path.
//
// Contract:
// - Concurrency: safe for arbitrary concurrent ProcessToolRequest calls.
// - Errors: only executor failures and invalid options reach the caller;
//   cache and summarizer failures degrade the request and surface as events.
// - Ordering: concurrent callers sharing a fingerprint observe the same
//   result or the same error.
type Pipeline struct {
	fingerprinter fingerprint.Fingerprinter
	cache         *cache.Manager
	dedupe        *dedupe.Deduplicator
	summarizer    summarize.Summarizer
	optimizer     *tokens.Optimizer
	suggester     *suggest.Suggester
	instr         *observe.Instrumentation
	now           func() time.Time

	subs subscribers
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithFingerprinter replaces the default SHA-256 fingerprinter.
func WithFingerprinter(f fingerprint.Fingerprinter) Option {
	return func(p *Pipeline) { p.fingerprinter = f }
}

// WithCache replaces the default in-memory cache manager.
func WithCache(m *cache.Manager) Option {
	return func(p *Pipeline) { p.cache = m }
}

// WithDeduplicator replaces the default deduplicator.
func WithDeduplicator(d *dedupe.Deduplicator) Option {
	return func(p *Pipeline) { p.dedupe = d }
}

// WithSummarizer replaces the default text summarizer.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithOptimizer replaces the default token optimizer.
func WithOptimizer(o *tokens.Optimizer) Option {
	return func(p *Pipeline) { p.optimizer = o }
}

// WithSuggester replaces the default (empty) suggester.
func WithSuggester(s *suggest.Suggester) Option {
	return func(p *Pipeline) { p.suggester = s }
}

// WithInstrumentation wires tracing, metrics, and logging into the
// request path. The default records nothing.
func WithInstrumentation(in *observe.Instrumentation) Option {
	return func(p *Pipeline) { p.instr = in }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. With no options every subsystem gets a
// self-contained in-memory default.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		fingerprinter: fingerprint.NewSHA256Fingerprinter(),
		dedupe:        dedupe.NewDeduplicator(),
		summarizer:    summarize.NewTextSummarizer(),
		suggester:     suggest.NewSuggester(nil),
		instr:         observe.Noop(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.cache == nil {
		m, err := cache.NewManager(cache.NewMemoryStore(), cache.DefaultPolicy())
		if err != nil {
			return nil, err
		}
		p.cache = m
	}
	if p.optimizer == nil {
		o, err := tokens.NewOptimizer(tokens.DefaultConfig(), nil, p.summarizer)
		if err != nil {
			return nil, err
		}
		p.optimizer = o
	}

	return p, nil
}

// Subscribe registers a synchronous observer for optimization events.
// Subscribers must return quickly; they run on the request path.
func (p *Pipeline) Subscribe(fn func(Event)) {
	p.subs.add(fn)
}

// ProcessToolRequest runs one tool request through the optimization chain.
//
// The executor is invoked at most once per fingerprint across concurrent
// callers when deduplication is enabled. Executor errors propagate
// unchanged; usage is recorded only on success.
func (p *Pipeline) ProcessToolRequest(ctx context.Context, tool string, params map[string]any, exec dedupe.ExecutorFunc, opts Options) (*Result, error) {
	if tool == "" {
		return nil, ErrEmptyTool
	}
	if exec == nil {
		return nil, ErrNilExecutor
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fp, err := p.fingerprinter.Fingerprint(tool, params)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RequestID: uuid.NewString(),
		StartedAt: p.now(),
	}
	meta := observe.RequestMeta{
		Tool:        tool,
		RequestID:   result.RequestID,
		Fingerprint: fp.Hash,
	}

	if opts.EnableCaching {
		value, ok, cerr := p.cache.GetCachedResponse(ctx, fp.Tool, fp.Hash)
		if cerr != nil {
			p.degradeCache(ctx, meta, cerr)
		} else if ok {
			p.optimizer.RecordCacheHit(tool)
			p.instr.CacheHit(ctx, meta)
			p.emit(EventCacheHit, meta, 0, "")

			result.Cached = true
			result.Response = value
			result.CompletedAt = p.now()
			return result, nil
		}
	}

	value, err := p.execute(ctx, meta, fp, exec, opts, result)
	if err != nil {
		return nil, err
	}

	rawTokens := p.optimizer.EstimateTokens(string(value))
	p.optimizer.RecordUsage(tool, p.estimateParams(params), rawTokens)

	if opts.EnableSummarization {
		value = p.summarizeStage(ctx, meta, value, opts, result)
	}

	if opts.EnforceTokenBudget {
		var enforced bool
		value, enforced = p.budgetStage(ctx, meta, value, rawTokens, result)
		if !enforced {
			p.warnNearBudget(ctx, meta, value)
		}
	}

	if opts.EnableCaching {
		p.persist(ctx, meta, fp, params, value, opts)
	}

	result.Response = value
	result.CompletedAt = p.now()
	return result, nil
}

// execute runs the executor, through the deduplicator when enabled. The
// instrumentation wrapper times and traces the actual execution only, so
// coalesced waiters do not double-count.
func (p *Pipeline) execute(ctx context.Context, meta observe.RequestMeta, fp fingerprint.Fingerprint, exec dedupe.ExecutorFunc, opts Options, result *Result) ([]byte, error) {
	wrapped := p.instr.Wrap(meta, observe.RequestFunc(exec))

	if !opts.EnableDeduplication {
		return wrapped(ctx)
	}

	value, outcome, err := p.dedupe.Execute(ctx, fp.Key(), opts.effectiveTTL(), dedupe.ExecutorFunc(wrapped))
	if err != nil {
		return nil, err
	}

	if outcome.Cached || outcome.Coalesced {
		result.Deduplicated = true
		p.instr.Coalesced(ctx, meta)
		p.emit(EventDedupHit, meta, 0, "")
	}
	// A short-TTL hit served this caller without an execution; count it
	// toward the tool's hit ratio so repeats served by the deduplicator do
	// not read as uncached executions to the recommendation heuristics.
	if outcome.Cached {
		p.optimizer.RecordCacheHit(meta.Tool)
	}
	return value, nil
}

func (p *Pipeline) summarizeStage(ctx context.Context, meta observe.RequestMeta, value []byte, opts Options, result *Result) []byte {
	res, err := p.summarizer.Summarize(string(value), opts.Summarization)
	if err != nil {
		p.instr.Degraded(ctx, meta, "summarize", err)
		p.emit(EventSummarizeDegraded, meta, 0, err.Error())
		return value
	}
	if len(res.Techniques) == 0 {
		return value
	}

	result.TokensSaved += res.EstimatedTokenSavings
	result.Optimizations = append(result.Optimizations, res.Techniques...)
	p.optimizer.RecordSavings(meta.Tool, res.EstimatedTokenSavings)
	p.instr.TokensSaved(ctx, meta, int64(res.EstimatedTokenSavings))
	p.emit(EventSummarized, meta, res.EstimatedTokenSavings, "")
	return []byte(res.Content)
}

// budgetStage caps the response at the token budget. The enforcement
// marker is keyed on the executor's raw response estimate: a response that
// needed budget-constrained shrinking carries the marker even when an
// earlier stage already brought it under budget.
func (p *Pipeline) budgetStage(ctx context.Context, meta observe.RequestMeta, value []byte, rawTokens int, result *Result) ([]byte, bool) {
	before := p.optimizer.EstimateTokens(string(value))
	out, optimized := p.optimizer.CheckAndOptimize(string(value))
	if !optimized && rawTokens <= p.optimizer.Budget() {
		return value, false
	}

	saved := before - p.optimizer.EstimateTokens(out)
	if saved > 0 {
		result.TokensSaved += saved
		p.optimizer.RecordSavings(meta.Tool, saved)
		p.instr.TokensSaved(ctx, meta, int64(saved))
	}
	result.Optimizations = append(result.Optimizations, OptimizationBudget)
	p.instr.BudgetEnforced(ctx, meta)
	p.emit(EventBudgetEnforced, meta, saved, "")
	return []byte(out), true
}

// warnNearBudget surfaces responses that land between the warning
// threshold and the budget without needing enforcement.
func (p *Pipeline) warnNearBudget(ctx context.Context, meta observe.RequestMeta, value []byte) {
	est := p.optimizer.EstimateTokens(string(value))
	if !p.optimizer.NearBudget(est) {
		return
	}
	p.instr.Logger().WithRequest(meta).Warn(ctx, "response near token budget",
		observe.Field{Key: "estimated_tokens", Value: est},
		observe.Field{Key: "budget", Value: p.optimizer.Budget()},
	)
	p.emit(EventBudgetWarning, meta, 0, "")
}

// persist writes the optimized response to the durable cache. Oversized
// values skip caching; any other failure degrades the write without
// failing the request.
func (p *Pipeline) persist(ctx context.Context, meta observe.RequestMeta, fp fingerprint.Fingerprint, params map[string]any, value []byte, opts Options) {
	err := p.cache.CacheResponse(ctx, fp.Tool, fp.Hash, params, value, opts.CacheDuration)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrValueTooLarge):
		p.emit(EventCacheSkipped, meta, 0, err.Error())
	default:
		p.degradeCache(ctx, meta, err)
	}
}

func (p *Pipeline) degradeCache(ctx context.Context, meta observe.RequestMeta, err error) {
	p.instr.Degraded(ctx, meta, "cache", err)
	p.emit(EventCacheDegraded, meta, 0, err.Error())
}

func (p *Pipeline) emit(kind EventKind, meta observe.RequestMeta, saved int, detail string) {
	p.subs.emit(Event{
		Kind:        kind,
		Tool:        meta.Tool,
		RequestID:   meta.RequestID,
		Fingerprint: meta.Fingerprint,
		TokensSaved: saved,
		Detail:      detail,
		At:          p.now(),
	})
}

// estimateParams estimates the input-token cost of a parameter map from
// its canonical encoding. Unencodable parameters were already rejected by
// fingerprinting, so errors cannot occur here in practice.
func (p *Pipeline) estimateParams(params map[string]any) int {
	encoded, err := fingerprint.Canonicalize(params)
	if err != nil {
		return 0
	}
	return p.optimizer.EstimateTokens(string(encoded))
}

// AnalyzeQuery classifies a free-text query and ranks candidate tools.
func (p *Pipeline) AnalyzeQuery(query string, maxSuggestions int) suggest.Analysis {
	return p.suggester.AnalyzeQuery(query, maxSuggestions)
}

// RecordToolFeedback folds relevance feedback into future suggestions.
func (p *Pipeline) RecordToolFeedback(tool string, wasRelevant bool) {
	p.suggester.RecordInvocation(tool, wasRelevant)
}

// RegisterTool makes a tool visible to query analysis.
func (p *Pipeline) RegisterTool(profile suggest.ToolProfile) {
	p.suggester.Register(profile)
}

// Statistics aggregates cache, deduplication, and token-usage snapshots.
func (p *Pipeline) Statistics(ctx context.Context) (Statistics, error) {
	cacheStats, err := p.cache.Statistics(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		Cache:           cacheStats,
		Dedupe:          p.dedupe.Stats(),
		Tokens:          p.optimizer.GetMetrics(),
		EfficiencyScore: p.optimizer.EfficiencyScore(),
	}, nil
}

// Recommendations returns ranked optimization advice from usage history.
func (p *Pipeline) Recommendations() []tokens.Recommendation {
	return p.optimizer.GenerateRecommendations()
}

// PerformMaintenance reclaims expired cache entries. It honors context
// cancellation and is safe to run concurrently with request processing.
func (p *Pipeline) PerformMaintenance(ctx context.Context) (int, error) {
	return p.cache.CleanupExpired(ctx)
}

// Reset clears all accumulated state: cached responses, short-TTL results,
// usage records, and suggestion feedback.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.cache.Clear(ctx); err != nil {
		return err
	}
	p.dedupe.Reset()
	p.optimizer.Reset()
	p.suggester.Reset()
	return nil
}

// Close releases the cache store.
func (p *Pipeline) Close() error {
	return p.cache.Close()
}
