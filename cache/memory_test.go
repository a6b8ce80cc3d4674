package cache

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

func testEntry(tool, hash string, value []byte, ttl time.Duration) Entry {
	now := time.Now()
	return Entry{
		Tool:      tool,
		Hash:      hash,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryStore_GetPutDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Get on empty store
	_, ok, err := store.Get(ctx, "tool", "deadbeef")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Get on empty store should return ok=false")
	}

	// Put then Get
	value := []byte("test-value")
	if err := store.Put(ctx, testEntry("tool", "deadbeef", value, 5*time.Minute)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e, ok, err := store.Get(ctx, "tool", "deadbeef")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Get after Put should return ok=true")
	}
	if !bytes.Equal(e.Value, value) {
		t.Errorf("Get returned %q, want %q", e.Value, value)
	}
	if e.HitCount != 1 {
		t.Errorf("HitCount = %d, want 1 after first hit", e.HitCount)
	}

	// Delete, then Get misses
	if err := store.Delete(ctx, "tool", "deadbeef"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "tool", "deadbeef")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Get after Delete should return ok=false")
	}

	// Delete is idempotent
	if err := store.Delete(ctx, "tool", "deadbeef"); err != nil {
		t.Errorf("Delete on non-existent key should not error, got: %v", err)
	}
}

func TestMemoryStore_HitCountAccumulates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, testEntry("tool", "abcd", []byte("v"), time.Hour)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	for want := int64(1); want <= 3; want++ {
		e, ok, err := store.Get(ctx, "tool", "abcd")
		if err != nil || !ok {
			t.Fatalf("Get failed: ok=%v err=%v", ok, err)
		}
		if e.HitCount != want {
			t.Errorf("HitCount = %d, want %d", e.HitCount, want)
		}
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, testEntry("tool", "abcd", []byte("v"), 50*time.Millisecond)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Present before expiry
	_, ok, _ := store.Get(ctx, "tool", "abcd")
	if !ok {
		t.Error("Get before expiry should return ok=true")
	}

	time.Sleep(100 * time.Millisecond)

	// Misses after expiry but stays counted until Cleanup
	_, ok, _ = store.Get(ctx, "tool", "abcd")
	if ok {
		t.Error("Get after expiry should return ok=false")
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalEntries != 1 || st.ExpiredEntries != 1 {
		t.Errorf("Stats before cleanup = %+v, want one expired entry still present", st)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup removed %d entries, want 1", removed)
	}

	st, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalEntries != 0 || st.ExpiredEntries != 0 {
		t.Errorf("Stats after cleanup = %+v, want empty store", st)
	}
}

func TestMemoryStore_CleanupHonorsCancellation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		hash := string(rune('a' + i))
		if err := store.Put(ctx, testEntry("tool", hash, []byte("v"), -time.Second)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Cleanup(cancelled); err == nil {
		t.Error("Cleanup with cancelled context should return an error")
	}

	// A later cleanup still reclaims everything the first pass left behind.
	if _, err := store.Cleanup(ctx); err != nil {
		t.Fatalf("re-entrant Cleanup failed: %v", err)
	}
	st, _ := store.Stats(ctx)
	if st.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d after cleanup, want 0", st.TotalEntries)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Put(ctx, testEntry("a", "1111", []byte("v"), time.Hour))
	_ = store.Put(ctx, testEntry("b", "2222", []byte("v"), time.Hour))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	st, _ := store.Stats(ctx)
	if st.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d after Clear, want 0", st.TotalEntries)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const numGoroutines = 100
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 4 {
				case 0:
					_ = store.Put(ctx, testEntry("tool", "abcd", []byte("v"), time.Minute))
				case 1:
					_, _, _ = store.Get(ctx, "tool", "abcd")
				case 2:
					_, _ = store.Stats(ctx)
				case 3:
					_, _ = store.Cleanup(ctx)
				}
			}
		}()
	}

	wg.Wait()
}
