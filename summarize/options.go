package summarize

import (
	"errors"
	"fmt"
)

// Mode selects how aggressively content is shrunk.
type Mode int

const (
	// ModeMinimal only removes redundant whitespace and extreme repetition.
	ModeMinimal Mode = iota
	// ModeBalanced trades some fidelity for meaningful size reduction.
	ModeBalanced
	// ModeAggressive shrinks as hard as the techniques allow.
	ModeAggressive
)

// ErrUnknownMode indicates an unrecognized summarization mode name.
var ErrUnknownMode = errors.New("summarize: unknown mode")

func (m Mode) String() string {
	switch m {
	case ModeMinimal:
		return "minimal"
	case ModeBalanced:
		return "balanced"
	case ModeAggressive:
		return "aggressive"
	default:
		return "balanced"
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "minimal":
		return ModeMinimal, nil
	case "balanced", "":
		return ModeBalanced, nil
	case "aggressive":
		return ModeAggressive, nil
	default:
		return ModeBalanced, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options configures a summarization pass.
type Options struct {
	// Mode selects the per-technique thresholds.
	Mode Mode

	// MaxLength is a hard cap on the summarized content in bytes.
	// Zero uses the mode default (no cap for Minimal).
	MaxLength int

	// TargetRatio is the desired summarized/original size ratio in (0,1].
	// When set, the hard cap is tightened to original*TargetRatio.
	TargetRatio float64
}

// DefaultOptions returns balanced-mode options.
func DefaultOptions() Options {
	return Options{Mode: ModeBalanced}
}

// thresholds are the per-mode technique knobs.
type thresholds struct {
	collapseSpaces   bool // collapse internal runs of spaces and tabs
	maxRepeats       int  // consecutive duplicate lines kept
	blockBudget      int  // fenced block line count before elision
	blockKeep        int  // lines kept from an elided block
	defaultMaxLength int  // hard cap when Options.MaxLength is zero; 0 = none
}

func (m Mode) thresholds() thresholds {
	switch m {
	case ModeMinimal:
		return thresholds{
			collapseSpaces:   false,
			maxRepeats:       3,
			blockBudget:      60,
			blockKeep:        20,
			defaultMaxLength: 0,
		}
	case ModeAggressive:
		return thresholds{
			collapseSpaces:   true,
			maxRepeats:       1,
			blockBudget:      8,
			blockKeep:        3,
			defaultMaxLength: 4000,
		}
	default: // ModeBalanced
		return thresholds{
			collapseSpaces:   true,
			maxRepeats:       2,
			blockBudget:      24,
			blockKeep:        8,
			defaultMaxLength: 12000,
		}
	}
}
