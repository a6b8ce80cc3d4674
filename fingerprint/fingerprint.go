package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint identifies one logical tool request: a tool name plus the
// hash of its canonicalized parameters. Two requests with the same tool
// and logically equal parameters always carry the same Fingerprint,
// including across process restarts.
type Fingerprint struct {
	Tool string
	Hash string
}

// Key returns the flat string form used as a cache or coalescing key.
// Format: <tool>:<hash>
func (f Fingerprint) Key() string {
	return f.Tool + ":" + f.Hash
}

// Fingerprinter derives deterministic request fingerprints.
//
// Contract:
// - Determinism: same tool and logically equal parameters must produce the
//   same fingerprint, regardless of map iteration order.
// - Stability: fingerprints must be stable across process restarts; durable
//   caches key on them.
// - Concurrency: implementations must be safe for concurrent use.
type Fingerprinter interface {
	// Fingerprint derives a fingerprint from a tool name and parameters.
	// A nil parameter map is equivalent to an empty one.
	Fingerprint(tool string, params map[string]any) (Fingerprint, error)
}

// SHA256Fingerprinter derives fingerprints by hashing the tool name and a
// canonical JSON encoding of the parameters.
type SHA256Fingerprinter struct{}

// NewSHA256Fingerprinter creates a new SHA-256 based fingerprinter.
func NewSHA256Fingerprinter() *SHA256Fingerprinter {
	return &SHA256Fingerprinter{}
}

// Fingerprint derives a deterministic fingerprint.
// The hash is the first 8 bytes (16 hex chars) of
// SHA-256(tool + NUL + canonical JSON(params)).
func (f *SHA256Fingerprinter) Fingerprint(tool string, params map[string]any) (Fingerprint, error) {
	canonical, err := Canonicalize(params)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: failed to canonicalize parameters: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(tool))
	h.Write([]byte{0})
	h.Write(canonical)

	return Fingerprint{
		Tool: tool,
		Hash: hex.EncodeToString(h.Sum(nil)[:8]),
	}, nil
}

// Canonicalize produces a deterministic JSON encoding of a parameter map.
// Map keys are sorted recursively; nil maps encode as the empty object.
func Canonicalize(params map[string]any) ([]byte, error) {
	if params == nil {
		return []byte("{}"), nil
	}
	return canonicalizeMap(params)
}

// canonicalize handles a single value of the closed parameter variant
// (string, number, bool, nil, nested map, slice). Anything else must at
// least be JSON-encodable or an error is returned.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Ensure SHA256Fingerprinter implements Fingerprinter
var _ Fingerprinter = (*SHA256Fingerprinter)(nil)
