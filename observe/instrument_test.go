package observe

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingMetrics captures metric calls for assertions.
type recordingMetrics struct {
	mu             sync.Mutex
	requests       int
	errors         int
	cacheHits      int
	coalesced      int
	tokensSaved    int64
	budgetEnforced int
}

func (r *recordingMetrics) RecordRequest(ctx context.Context, meta RequestMeta, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
	if err != nil {
		r.errors++
	}
}

func (r *recordingMetrics) RecordCacheHit(ctx context.Context, meta RequestMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheHits++
}

func (r *recordingMetrics) RecordCoalesced(ctx context.Context, meta RequestMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coalesced++
}

func (r *recordingMetrics) RecordTokensSaved(ctx context.Context, meta RequestMeta, tokens int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokensSaved += tokens
}

func (r *recordingMetrics) RecordBudgetEnforced(ctx context.Context, meta RequestMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.budgetEnforced++
}

func newTestInstrumentation(metrics Metrics, buf *bytes.Buffer) *Instrumentation {
	return NewInstrumentation(NewNoopTracer(), metrics, NewLoggerWithWriter("debug", buf))
}

func TestInstrumentation_WrapSuccess(t *testing.T) {
	rec := &recordingMetrics{}
	var buf bytes.Buffer
	in := newTestInstrumentation(rec, &buf)

	meta := RequestMeta{Tool: "RunBuild", RequestID: "req-1"}
	fn := in.Wrap(meta, func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})

	out, err := fn(context.Background())
	if err != nil {
		t.Fatalf("wrapped fn returned error: %v", err)
	}
	if string(out) != "ok" {
		t.Errorf("result = %q, want ok", out)
	}
	if rec.requests != 1 || rec.errors != 0 {
		t.Errorf("requests = %d, errors = %d, want 1, 0", rec.requests, rec.errors)
	}
	if !bytes.Contains(buf.Bytes(), []byte("tool request completed")) {
		t.Error("completion log line missing")
	}
}

func TestInstrumentation_WrapError(t *testing.T) {
	rec := &recordingMetrics{}
	var buf bytes.Buffer
	in := newTestInstrumentation(rec, &buf)

	wantErr := errors.New("editor unreachable")
	fn := in.Wrap(RequestMeta{Tool: "RunBuild"}, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})

	_, err := fn(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("wrapped error = %v, want the executor error unchanged", err)
	}
	if rec.errors != 1 {
		t.Errorf("errors = %d, want 1", rec.errors)
	}
	if !bytes.Contains(buf.Bytes(), []byte("tool request failed")) {
		t.Error("failure log line missing")
	}
}

func TestInstrumentation_EventHelpers(t *testing.T) {
	rec := &recordingMetrics{}
	var buf bytes.Buffer
	in := newTestInstrumentation(rec, &buf)

	ctx := context.Background()
	meta := RequestMeta{Tool: "InspectScene"}

	in.CacheHit(ctx, meta)
	in.Coalesced(ctx, meta)
	in.TokensSaved(ctx, meta, 120)
	in.TokensSaved(ctx, meta, 0) // ignored
	in.BudgetEnforced(ctx, meta)
	in.Degraded(ctx, meta, "cache", errors.New("store closed"))

	if rec.cacheHits != 1 {
		t.Errorf("cacheHits = %d, want 1", rec.cacheHits)
	}
	if rec.coalesced != 1 {
		t.Errorf("coalesced = %d, want 1", rec.coalesced)
	}
	if rec.tokensSaved != 120 {
		t.Errorf("tokensSaved = %d, want 120", rec.tokensSaved)
	}
	if rec.budgetEnforced != 1 {
		t.Errorf("budgetEnforced = %d, want 1", rec.budgetEnforced)
	}
	if !bytes.Contains(buf.Bytes(), []byte("degraded to direct execution")) {
		t.Error("degraded log line missing")
	}
}

func TestNoop_SafeEverywhere(t *testing.T) {
	in := Noop()

	fn := in.Wrap(RequestMeta{Tool: "T"}, func(ctx context.Context) ([]byte, error) {
		return []byte("r"), nil
	})
	if out, err := fn(context.Background()); err != nil || string(out) != "r" {
		t.Errorf("noop Wrap altered result: %q, %v", out, err)
	}

	ctx := context.Background()
	meta := RequestMeta{Tool: "T"}
	in.CacheHit(ctx, meta)
	in.Coalesced(ctx, meta)
	in.TokensSaved(ctx, meta, 1)
	in.BudgetEnforced(ctx, meta)
	in.Degraded(ctx, meta, "cache", errors.New("x"))
}
