package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator estimates the token count of a piece of text.
//
// Contract:
// - Purity: same input always yields the same count.
// - Monotonicity: appending content never lowers the count.
// - Concurrency: implementations must be safe for concurrent use.
type Estimator interface {
	Estimate(text string) int
}

// defaultCharsPerToken is the byte-per-token divisor for the heuristic
// estimator, a reasonable approximation for most LLM tokenizers.
const defaultCharsPerToken = 4

// HeuristicEstimator estimates tokens as ceil(len(text)/divisor). It is
// deterministic and needs no encoding data, which makes it the default.
type HeuristicEstimator struct {
	divisor int
}

// NewHeuristicEstimator creates a heuristic estimator with the default
// divisor.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{divisor: defaultCharsPerToken}
}

// Estimate returns ceil(len(text)/divisor).
func (e *HeuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + e.divisor - 1) / e.divisor
}

// TiktokenEstimator counts tokens with a real tiktoken encoding. Encoding
// data is fetched lazily on first use; if initialization fails the
// estimator falls back to the heuristic so callers never block on it.
type TiktokenEstimator struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
	fallback *HeuristicEstimator
}

// DefaultEncoding is the tiktoken encoding used when none is specified.
const DefaultEncoding = "cl100k_base"

// NewTiktokenEstimator creates a tiktoken-backed estimator for the given
// encoding name. An empty name selects DefaultEncoding.
func NewTiktokenEstimator(encoding string) *TiktokenEstimator {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &TiktokenEstimator{
		encoding: encoding,
		fallback: NewHeuristicEstimator(),
	}
}

func (e *TiktokenEstimator) init() {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			e.initErr = err
			return
		}
		e.enc = enc
	})
}

// Estimate returns the exact token count for the configured encoding, or
// the heuristic estimate if the encoding could not be initialized.
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	e.init()
	if e.initErr != nil || e.enc == nil {
		return e.fallback.Estimate(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

// Ensure implementations satisfy Estimator
var (
	_ Estimator = (*HeuristicEstimator)(nil)
	_ Estimator = (*TiktokenEstimator)(nil)
)
