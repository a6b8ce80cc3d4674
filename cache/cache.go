package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxHashLength is the maximum allowed length for a fingerprint hash.
const MaxHashLength = 128

// Sentinel errors for cache operations.
var (
	ErrNilStore      = errors.New("cache: store is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrInvalidTTL    = errors.New("cache: ttl is negative")
	ErrValueTooLarge = errors.New("cache: value exceeds max cacheable size")
)

// Entry is one durable cached tool response.
//
// CreatedAt and ExpiresAt must round-trip exactly through any Store so that
// fingerprints cached before a restart behave identically after it.
type Entry struct {
	Tool      string
	Hash      string
	Params    map[string]any
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int64
}

// Expired reports whether the entry is past its expiry at the given time.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats is a point-in-time snapshot of a store's contents.
//
// ExpiredEntries counts entries that are physically present but past
// expiry; reads never reclaim entries, so this only drops after Cleanup.
type Stats struct {
	TotalEntries   int64
	ValidEntries   int64
	ExpiredEntries int64
	TotalHits      int64
}

// Store is the pluggable backing store for cached tool responses.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use; writes
//   must not corrupt concurrent reads.
// - Lazy expiry: Get on an expired entry reports a miss without reclaiming
//   it; only Cleanup physically removes expired entries.
// - Hit counting: Get on a valid entry increments its hit count.
// - Durability is implementation-defined: the memory store is per-process,
//   the sqlite store survives restarts, the redis store delegates expiry to
//   the server.
type Store interface {
	// Get retrieves an entry by (tool, hash). Returns found=false on miss
	// or expiry. A valid hit increments the entry's hit count.
	Get(ctx context.Context, tool, hash string) (Entry, bool, error)

	// Put stores an entry, replacing any previous entry for (tool, hash).
	Put(ctx context.Context, e Entry) error

	// Delete removes an entry. Idempotent - no error on miss.
	Delete(ctx context.Context, tool, hash string) error

	// Cleanup removes all expired entries and returns the removed count.
	Cleanup(ctx context.Context) (int, error)

	// Stats returns a snapshot of the store's contents.
	Stats(ctx context.Context) (Stats, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// ValidateKey checks that a (tool, hash) pair is usable as a store key.
func ValidateKey(tool, hash string) error {
	if tool == "" || strings.TrimSpace(tool) == "" {
		return ErrInvalidKey
	}
	if hash == "" || len(hash) > MaxHashLength {
		return ErrInvalidKey
	}
	if strings.ContainsAny(tool, "\n\r") || strings.ContainsAny(hash, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
