package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is an in-memory Store implementation. Entries do not survive
// process restarts; it suits tests and hosts that only want the pipeline's
// in-process behavior.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	entry Entry
	hits  atomic.Int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

func storeKey(tool, hash string) string {
	return tool + ":" + hash
}

// Get retrieves an entry. Expired entries report a miss but are left in
// place for Cleanup to reclaim.
func (s *MemoryStore) Get(_ context.Context, tool, hash string) (Entry, bool, error) {
	s.mu.RLock()
	me, ok := s.entries[storeKey(tool, hash)]
	s.mu.RUnlock()

	if !ok {
		return Entry{}, false, nil
	}
	if me.entry.Expired(time.Now()) {
		return Entry{}, false, nil
	}

	e := me.entry
	e.HitCount = me.hits.Add(1)
	return e, true, nil
}

// Put stores an entry, replacing any previous entry for (tool, hash).
func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	me := &memoryEntry{entry: e}
	me.hits.Store(e.HitCount)

	s.mu.Lock()
	s.entries[storeKey(e.Tool, e.Hash)] = me
	s.mu.Unlock()
	return nil
}

// Delete removes an entry. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, tool, hash string) error {
	s.mu.Lock()
	delete(s.entries, storeKey(tool, hash))
	s.mu.Unlock()
	return nil
}

// Cleanup removes expired entries. The pass re-checks the context between
// entries so a cancelled maintenance run stops promptly.
func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, me := range s.entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if me.entry.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Stats returns a snapshot of the store's contents.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, me := range s.entries {
		st.TotalEntries++
		if me.entry.Expired(now) {
			st.ExpiredEntries++
		} else {
			st.ValidEntries++
		}
		st.TotalHits += me.hits.Load()
	}
	return st, nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*memoryEntry)
	s.mu.Unlock()
	return nil
}

// Close releases store resources. No-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
