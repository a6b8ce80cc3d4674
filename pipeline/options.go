package pipeline

import (
	"time"

	"github.com/jonwraymond/toolcontext/summarize"
)

// Options control which optimization stages run for one request.
type Options struct {
	EnableCaching       bool
	EnableDeduplication bool
	EnableSummarization bool
	EnforceTokenBudget  bool

	// CacheDuration is the TTL for both the durable cache entry and the
	// deduplicator's short-lived result. Zero selects the cache policy
	// default; negative fails validation.
	CacheDuration time.Duration

	// Summarization configures the summarizer stage.
	Summarization summarize.Options
}

// DefaultOptions returns the options used when callers pass the zero value
// deliberately: every stage on, five minute cache TTL, balanced mode.
func DefaultOptions() Options {
	return Options{
		EnableCaching:       true,
		EnableDeduplication: true,
		EnableSummarization: true,
		EnforceTokenBudget:  true,
		CacheDuration:       5 * time.Minute,
		Summarization:       summarize.DefaultOptions(),
	}
}

// Validate fails fast on malformed options.
func (o Options) Validate() error {
	if o.CacheDuration < 0 {
		return ErrInvalidCacheDuration
	}
	return nil
}

// effectiveTTL resolves the TTL passed to the deduplicator, which requires
// a positive duration.
func (o Options) effectiveTTL() time.Duration {
	if o.CacheDuration > 0 {
		return o.CacheDuration
	}
	return 5 * time.Minute
}
