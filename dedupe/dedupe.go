package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Sentinel errors for deduplication.
var (
	ErrNilExecutor = errors.New("dedupe: executor is nil")
	ErrInvalidTTL  = errors.New("dedupe: ttl is negative")
	ErrEmptyKey    = errors.New("dedupe: key is empty")
)

// ExecutorFunc runs the underlying tool call and returns its raw response.
type ExecutorFunc func(ctx context.Context) ([]byte, error)

// Outcome describes how a deduplicated call was satisfied.
type Outcome struct {
	// Cached is true when the value came from the short-TTL result cache.
	Cached bool
	// Coalesced is true when this caller shared an execution with at
	// least one other concurrent caller for the same key.
	Coalesced bool
}

// Stats is a snapshot of deduplicator activity since construction or the
// last Reset.
type Stats struct {
	Hits      int64 // short-TTL cache hits
	Misses    int64 // calls that reached an executor
	Coalesced int64 // calls satisfied by another caller's execution
}

// Deduplicator coalesces concurrent identical requests and serves repeats
// from a short-TTL result cache.
//
// Contract:
// - At most one executor runs concurrently per key, regardless of caller
//   concurrency; every attached caller observes the identical result or
//   the identical error.
// - Failed executions are never cached and the in-flight slot is always
//   released, so a later call with the same key executes again.
// - A caller abandoning its wait (context cancellation) does not affect
//   other waiters sharing the execution.
// - No lock is held while an executor runs; unrelated keys never serialize.
type Deduplicator struct {
	group singleflight.Group

	mu      sync.RWMutex
	results map[string]resultEntry

	hits      atomic.Int64
	misses    atomic.Int64
	coalesced atomic.Int64
}

type resultEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		results: make(map[string]resultEntry),
	}
}

// Execute satisfies one request for key: from the short-TTL cache if a
// fresh result exists, by attaching to an in-flight execution if one is
// pending, or by invoking exec. Successful results are cached for ttl;
// ttl=0 disables the short-TTL cache for this call.
func (d *Deduplicator) Execute(ctx context.Context, key string, ttl time.Duration, exec ExecutorFunc) ([]byte, Outcome, error) {
	if key == "" {
		return nil, Outcome{}, ErrEmptyKey
	}
	if exec == nil {
		return nil, Outcome{}, ErrNilExecutor
	}
	if ttl < 0 {
		return nil, Outcome{}, ErrInvalidTTL
	}

	if value, ok := d.lookup(key); ok {
		d.hits.Add(1)
		return value, Outcome{Cached: true}, nil
	}

	// The executor runs on a context detached from this caller's
	// cancellation: other waiters may still be attached when this one
	// gives up.
	execCtx := context.WithoutCancel(ctx)

	ch := d.group.DoChan(key, func() (any, error) {
		value, err := exec(execCtx)
		if err != nil {
			return nil, err
		}
		d.store(key, value, ttl)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			d.coalesced.Add(1)
		} else {
			d.misses.Add(1)
		}
		if res.Err != nil {
			return nil, Outcome{Coalesced: res.Shared}, res.Err
		}
		return res.Val.([]byte), Outcome{Coalesced: res.Shared}, nil
	case <-ctx.Done():
		return nil, Outcome{}, ctx.Err()
	}
}

// lookup returns a fresh cached result. Stale entries are dropped on read;
// the short-TTL cache is purely in-process, so eager reclamation is safe.
func (d *Deduplicator) lookup(key string) ([]byte, bool) {
	d.mu.RLock()
	entry, ok := d.results[key]
	d.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		d.mu.Lock()
		if cur, ok := d.results[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(d.results, key)
		}
		d.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (d *Deduplicator) store(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	d.mu.Lock()
	d.results[key] = resultEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	d.mu.Unlock()
}

// Stats returns a snapshot of activity counters.
func (d *Deduplicator) Stats() Stats {
	return Stats{
		Hits:      d.hits.Load(),
		Misses:    d.misses.Load(),
		Coalesced: d.coalesced.Load(),
	}
}

// Reset drops all cached results and zeroes the counters. In-flight
// executions are unaffected.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	d.results = make(map[string]resultEntry)
	d.mu.Unlock()

	d.hits.Store(0)
	d.misses.Store(0)
	d.coalesced.Store(0)
}
