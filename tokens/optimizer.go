package tokens

import (
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/jonwraymond/toolcontext/summarize"
)

// Sentinel errors for optimizer configuration.
var (
	ErrInvalidBudget    = errors.New("tokens: token budget must be positive")
	ErrInvalidThreshold = errors.New("tokens: warning threshold must be in (0,1]")
	ErrInvalidRatio     = errors.New("tokens: target compression ratio must be in (0,1]")
)

// Config configures token budgets and optimization behavior.
type Config struct {
	// MaxTokensPerRequest caps the estimated size of request parameters.
	MaxTokensPerRequest int

	// MaxTokensPerResponse caps the estimated size of responses; larger
	// responses are shrunk by CheckAndOptimize.
	MaxTokensPerResponse int

	// WarningThreshold is the fraction of a budget at which usage is
	// considered near the limit.
	WarningThreshold float64

	// AutoOptimize enables automatic shrinking of over-budget responses.
	// When false, CheckAndOptimize reports over-budget without modifying.
	AutoOptimize bool

	// TargetCompressionRatio is the desired summarized/original ratio
	// passed to the summarizer when shrinking.
	TargetCompressionRatio float64
}

// DefaultConfig returns the default token configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokensPerRequest:    4000,
		MaxTokensPerResponse:   2000,
		WarningThreshold:       0.8,
		AutoOptimize:           true,
		TargetCompressionRatio: 0.5,
	}
}

// Validate fails fast on malformed configuration.
func (c Config) Validate() error {
	if c.MaxTokensPerRequest <= 0 || c.MaxTokensPerResponse <= 0 {
		return ErrInvalidBudget
	}
	if c.WarningThreshold <= 0 || c.WarningThreshold > 1 {
		return ErrInvalidThreshold
	}
	if c.TargetCompressionRatio <= 0 || c.TargetCompressionRatio > 1 {
		return ErrInvalidRatio
	}
	return nil
}

// ToolUsage aggregates per-tool token accounting.
type ToolUsage struct {
	Invocations    int64
	InputTokens    int64
	OutputTokens   int64
	TokensSaved    int64
	CacheHits      int64
	LargeResponses int64 // responses whose estimate exceeded the budget
}

// Metrics is an aggregated usage snapshot.
type Metrics struct {
	PerTool            map[string]ToolUsage
	TotalInvocations   int64
	TotalInputTokens   int64
	TotalOutputTokens  int64
	TotalTokensSaved   int64
	ResponsesOptimized int64
}

// Optimizer tracks token usage per tool and enforces the response budget.
type Optimizer struct {
	cfg        Config
	est        Estimator
	summarizer summarize.Summarizer

	mu        sync.Mutex
	usage     map[string]*ToolUsage
	optimized int64
}

// NewOptimizer creates an optimizer. A nil estimator selects the heuristic
// estimator; a nil summarizer selects the text summarizer.
func NewOptimizer(cfg Config, est Estimator, s summarize.Summarizer) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		est = NewHeuristicEstimator()
	}
	if s == nil {
		s = summarize.NewTextSummarizer()
	}
	return &Optimizer{
		cfg:        cfg,
		est:        est,
		summarizer: s,
		usage:      make(map[string]*ToolUsage),
	}, nil
}

// EstimateTokens estimates the token count of text.
func (o *Optimizer) EstimateTokens(text string) int {
	return o.est.Estimate(text)
}

// Budget returns the configured response budget.
func (o *Optimizer) Budget() int {
	return o.cfg.MaxTokensPerResponse
}

// NearBudget reports whether an estimate is at or past the warning
// threshold of the response budget.
func (o *Optimizer) NearBudget(estimate int) bool {
	return float64(estimate) >= o.cfg.WarningThreshold*float64(o.cfg.MaxTokensPerResponse)
}

// RecordUsage records one successful invocation's token counts.
func (o *Optimizer) RecordUsage(tool string, inputTokens, outputTokens int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	u := o.tool(tool)
	u.Invocations++
	u.InputTokens += int64(inputTokens)
	u.OutputTokens += int64(outputTokens)
	if outputTokens > o.cfg.MaxTokensPerResponse {
		u.LargeResponses++
	}
}

// RecordSavings credits saved tokens to a tool.
func (o *Optimizer) RecordSavings(tool string, tokens int) {
	if tokens <= 0 {
		return
	}
	o.mu.Lock()
	o.tool(tool).TokensSaved += int64(tokens)
	o.mu.Unlock()
}

// RecordCacheHit records that a request for tool was served from cache.
func (o *Optimizer) RecordCacheHit(tool string) {
	o.mu.Lock()
	o.tool(tool).CacheHits++
	o.mu.Unlock()
}

// tool returns the usage record for a tool, creating it if needed.
// Caller holds o.mu.
func (o *Optimizer) tool(name string) *ToolUsage {
	u, ok := o.usage[name]
	if !ok {
		u = &ToolUsage{}
		o.usage[name] = u
	}
	return u
}

// CheckAndOptimize enforces the response budget. Text within budget is
// returned unchanged with optimized=false. Over-budget text is shrunk —
// first by aggressive summarization, then by boundary-respecting
// truncation until the estimate is strictly below the original and within
// budget — and optimized=true is reported. With AutoOptimize disabled the
// text passes through unchanged but optimized still reports true so the
// caller can react.
func (o *Optimizer) CheckAndOptimize(text string) (string, bool) {
	estimate := o.est.Estimate(text)
	if estimate <= o.cfg.MaxTokensPerResponse {
		return text, false
	}
	if !o.cfg.AutoOptimize {
		return text, true
	}

	maxBytes := o.cfg.MaxTokensPerResponse * defaultCharsPerToken

	out := text
	res, err := o.summarizer.Summarize(text, summarize.Options{
		Mode:        summarize.ModeAggressive,
		MaxLength:   maxBytes,
		TargetRatio: o.cfg.TargetCompressionRatio,
	})
	if err == nil && len(res.Content) < len(text) {
		out = res.Content
	}

	// The summarizer guarantees a byte cap, not a token cap; shrink
	// further until the configured estimator agrees.
	for o.est.Estimate(out) > o.cfg.MaxTokensPerResponse && maxBytes > 1 {
		maxBytes /= 2
		out = truncateBytes(out, maxBytes)
	}

	o.mu.Lock()
	o.optimized++
	o.mu.Unlock()

	return out, true
}

// truncateBytes cuts text to at most maxBytes without splitting a UTF-8
// sequence.
func truncateBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// GetMetrics returns an aggregated snapshot of all recorded usage.
func (o *Optimizer) GetMetrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := Metrics{
		PerTool:            make(map[string]ToolUsage, len(o.usage)),
		ResponsesOptimized: o.optimized,
	}
	for name, u := range o.usage {
		m.PerTool[name] = *u
		m.TotalInvocations += u.Invocations
		m.TotalInputTokens += u.InputTokens
		m.TotalOutputTokens += u.OutputTokens
		m.TotalTokensSaved += u.TokensSaved
	}
	return m
}

// EfficiencyScore reports saved/(saved+emitted) in [0,1]. Zero when
// nothing has been recorded.
func (o *Optimizer) EfficiencyScore() float64 {
	m := o.GetMetrics()
	denom := m.TotalTokensSaved + m.TotalOutputTokens
	if denom == 0 {
		return 0
	}
	return float64(m.TotalTokensSaved) / float64(denom)
}

// Reset drops all recorded usage.
func (o *Optimizer) Reset() {
	o.mu.Lock()
	o.usage = make(map[string]*ToolUsage)
	o.optimized = 0
	o.mu.Unlock()
}
