package pipeline

import (
	"sync"
	"time"
)

// EventKind names one meaningful optimization event.
type EventKind string

const (
	// EventCacheHit fires when a response is served from the durable cache.
	EventCacheHit EventKind = "cache_hit"

	// EventDedupHit fires when a caller is served by the deduplicator
	// instead of a fresh execution.
	EventDedupHit EventKind = "dedup_hit"

	// EventSummarized fires when summarization reduced the response.
	EventSummarized EventKind = "summarized"

	// EventBudgetEnforced fires when the response needed budget-constrained
	// shrinking, whether the budget stage or an earlier stage did it.
	EventBudgetEnforced EventKind = "budget_enforced"

	// EventBudgetWarning fires when a response lands between the warning
	// threshold and the budget without needing enforcement.
	EventBudgetWarning EventKind = "budget_warning"

	// EventCacheDegraded fires when a cache read or write failed and the
	// request continued without it.
	EventCacheDegraded EventKind = "cache_degraded"

	// EventSummarizeDegraded fires when the summarizer failed and the
	// pre-summarization content was kept.
	EventSummarizeDegraded EventKind = "summarize_degraded"

	// EventCacheSkipped fires when a response was too large to persist.
	EventCacheSkipped EventKind = "cache_skipped"
)

// Event is one optimization notification delivered to subscribers.
type Event struct {
	Kind        EventKind
	Tool        string
	RequestID   string
	Fingerprint string
	TokensSaved int
	Detail      string
	At          time.Time
}

// subscribers is a locked subscriber list; delivery is synchronous and
// in registration order.
type subscribers struct {
	mu  sync.RWMutex
	fns []func(Event)
}

func (s *subscribers) add(fn func(Event)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
}

func (s *subscribers) emit(ev Event) {
	s.mu.RLock()
	fns := s.fns
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
