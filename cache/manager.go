package cache

import (
	"context"
	"time"
)

// Manager wraps a Store with policy enforcement: TTL defaulting and
// clamping, key validation, and the oversized-value guard. It is the
// durable-cache surface the pipeline talks to.
type Manager struct {
	store  Store
	policy Policy
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, policy Policy) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Manager{store: store, policy: policy}, nil
}

// GetCachedResponse returns the cached value for (tool, hash), or
// found=false on miss or expiry. A hit increments the entry's hit count.
func (m *Manager) GetCachedResponse(ctx context.Context, tool, hash string) ([]byte, bool, error) {
	if err := ValidateKey(tool, hash); err != nil {
		return nil, false, err
	}
	e, ok, err := m.store.Get(ctx, tool, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	return e.Value, true, nil
}

// CacheResponse persists a value for (tool, hash) with the given TTL.
// A zero TTL uses the policy default; a negative TTL is rejected with
// ErrInvalidTTL; values over the policy size limit are rejected with
// ErrValueTooLarge so the caller can skip caching without failing.
func (m *Manager) CacheResponse(ctx context.Context, tool, hash string, params map[string]any, value []byte, ttl time.Duration) error {
	if err := ValidateKey(tool, hash); err != nil {
		return err
	}
	if ttl < 0 {
		return ErrInvalidTTL
	}
	if m.policy.MaxValueBytes > 0 && len(value) > m.policy.MaxValueBytes {
		return ErrValueTooLarge
	}

	effective := m.policy.EffectiveTTL(ttl)
	if effective <= 0 {
		return nil
	}

	now := time.Now()
	return m.store.Put(ctx, Entry{
		Tool:      tool,
		Hash:      hash,
		Params:    params,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(effective),
	})
}

// CleanupExpired removes expired entries and returns the removed count.
// Safe to call concurrently and honors context cancellation.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	return m.store.Cleanup(ctx)
}

// Statistics returns a snapshot of the store's contents.
func (m *Manager) Statistics(ctx context.Context) (Stats, error) {
	return m.store.Stats(ctx)
}

// Clear removes all entries.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
