package fingerprint

import (
	"testing"
)

func TestFingerprint_DeterministicForMaps(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	// Same content, different insertion order
	map1 := map[string]any{"b": 2, "a": 1, "c": 3}
	map2 := map[string]any{"a": 1, "c": 3, "b": 2}
	map3 := map[string]any{"c": 3, "b": 2, "a": 1}

	fp1, err := fp.Fingerprint("test-tool", map1)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	fp2, err := fp.Fingerprint("test-tool", map2)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	fp3, err := fp.Fingerprint("test-tool", map3)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if fp1.Hash != fp2.Hash {
		t.Errorf("Hashes should be equal for same content:\n  fp1=%s\n  fp2=%s", fp1.Hash, fp2.Hash)
	}
	if fp2.Hash != fp3.Hash {
		t.Errorf("Hashes should be equal for same content:\n  fp2=%s\n  fp3=%s", fp2.Hash, fp3.Hash)
	}
}

func TestFingerprint_NestedMapReordering(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	input1 := map[string]any{
		"outer": map[string]any{"x": 1, "y": "two", "z": true},
		"flag":  false,
	}
	input2 := map[string]any{
		"flag":  false,
		"outer": map[string]any{"z": true, "x": 1, "y": "two"},
	}

	fp1, err := fp.Fingerprint("nested-tool", input1)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, err := fp.Fingerprint("nested-tool", input2)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if fp1.Hash != fp2.Hash {
		t.Errorf("Hashes should be equal for reordered nested maps:\n  fp1=%s\n  fp2=%s", fp1.Hash, fp2.Hash)
	}
}

func TestFingerprint_ArrayOrderPreserved(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	// Different array order should produce different hashes
	input1 := map[string]any{"items": []any{1, 2, 3}}
	input2 := map[string]any{"items": []any{3, 2, 1}}

	fp1, err := fp.Fingerprint("test-tool", input1)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, err := fp.Fingerprint("test-tool", input2)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if fp1.Hash == fp2.Hash {
		t.Errorf("Hashes should differ for different array order:\n  fp1=%s\n  fp2=%s", fp1.Hash, fp2.Hash)
	}
}

func TestFingerprint_NilAndEmptyParamsEquivalent(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	fpNil, err := fp.Fingerprint("bare-tool", nil)
	if err != nil {
		t.Fatalf("Fingerprint(nil) error = %v", err)
	}
	fpEmpty, err := fp.Fingerprint("bare-tool", map[string]any{})
	if err != nil {
		t.Fatalf("Fingerprint(empty) error = %v", err)
	}

	if fpNil.Hash != fpEmpty.Hash {
		t.Errorf("nil and empty params should hash identically:\n  nil=%s\n  empty=%s", fpNil.Hash, fpEmpty.Hash)
	}
}

func TestFingerprint_DifferentToolsDifferentHashes(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	input := map[string]any{"query": "test"}

	fp1, err := fp.Fingerprint("tool-a", input)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, err := fp.Fingerprint("tool-b", input)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if fp1.Hash == fp2.Hash {
		t.Errorf("Different tools should produce different hashes:\n  fp1=%s\n  fp2=%s", fp1.Hash, fp2.Hash)
	}
}

func TestFingerprint_StableEncoding(t *testing.T) {
	// The canonical encoding is part of the durable cache contract: a
	// fingerprint computed before a restart must match one computed after.
	// Pin the encoding for a representative input.
	canonical, err := Canonicalize(map[string]any{
		"query":  "GameObject.SetActive",
		"limit":  float64(10),
		"nested": map[string]any{"b": true, "a": nil},
	})
	if err != nil {
		t.Fatalf("Canonicalize() error = %v", err)
	}

	want := `{"limit":10,"nested":{"a":null,"b":true},"query":"GameObject.SetActive"}`
	if string(canonical) != want {
		t.Errorf("canonical encoding changed:\n  got  %s\n  want %s", canonical, want)
	}
}

func TestFingerprint_SameInputsSameKey(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	input := map[string]any{"query": "test", "limit": 10}

	keys := make([]string, 5)
	for i := 0; i < 5; i++ {
		f, err := fp.Fingerprint("search-tool", input)
		if err != nil {
			t.Fatalf("Fingerprint() iteration %d error = %v", i, err)
		}
		keys[i] = f.Key()
	}

	for i := 1; i < len(keys); i++ {
		if keys[i] != keys[0] {
			t.Errorf("Key should be consistent across calls:\n  keys[0]=%s\n  keys[%d]=%s", keys[0], i, keys[i])
		}
	}
}

func TestFingerprint_UnencodableValue(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	_, err := fp.Fingerprint("bad-tool", map[string]any{"ch": make(chan int)})
	if err == nil {
		t.Error("Fingerprint() should fail for unencodable values")
	}
}

func TestFingerprint_KeyFormat(t *testing.T) {
	fp := NewSHA256Fingerprinter()

	f, err := fp.Fingerprint("my-tool", nil)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	if f.Tool != "my-tool" {
		t.Errorf("Tool = %q, want %q", f.Tool, "my-tool")
	}
	if len(f.Hash) != 16 {
		t.Errorf("Hash length = %d, want 16 hex chars", len(f.Hash))
	}
	if f.Key() != "my-tool:"+f.Hash {
		t.Errorf("Key() = %q, want %q", f.Key(), "my-tool:"+f.Hash)
	}
}
