package summarize

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Technique names, in the fixed order techniques apply.
const (
	TechniqueWhitespace     = "whitespace"
	TechniqueRepeatCollapse = "repeat-collapse"
	TechniqueBlockElision   = "block-elision"
	TechniqueTruncation     = "truncation"
)

// charsPerToken is the estimation divisor used to report token savings.
const charsPerToken = 4

// Result describes one summarization pass.
type Result struct {
	Content               string
	OriginalLength        int
	SummarizedLength      int
	EstimatedTokenSavings int
	Techniques            []string
}

// Summarizer shrinks tool response text.
//
// Contract:
// - Non-expansion: the summarized content is never longer than the input.
// - Identity: if no technique reduces the content, the input is returned
//   unchanged with an empty technique list.
// - Concurrency: implementations must be safe for concurrent use.
type Summarizer interface {
	Summarize(content string, opts Options) (Result, error)
}

// TextSummarizer applies lossy text-shrinking techniques in fixed priority
// order: whitespace stripping, repeated-line collapsing, long-block
// elision, then a hard length cap.
type TextSummarizer struct{}

// NewTextSummarizer creates a new text summarizer.
func NewTextSummarizer() *TextSummarizer {
	return &TextSummarizer{}
}

// Summarize shrinks content under the given options. Each technique is
// applied only if it strictly reduces the length; a pass where nothing
// helps returns the input unchanged.
func (s *TextSummarizer) Summarize(content string, opts Options) (Result, error) {
	th := opts.Mode.thresholds()

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = th.defaultMaxLength
	}
	if opts.TargetRatio > 0 && opts.TargetRatio <= 1 {
		ratioCap := int(float64(len(content)) * opts.TargetRatio)
		if maxLen == 0 || ratioCap < maxLen {
			maxLen = ratioCap
		}
	}

	current := content
	var techniques []string

	apply := func(name string, fn func(string) string) {
		shrunk := fn(current)
		if len(shrunk) < len(current) {
			current = shrunk
			techniques = append(techniques, name)
		}
	}

	apply(TechniqueWhitespace, func(in string) string {
		return stripWhitespace(in, th.collapseSpaces)
	})
	apply(TechniqueRepeatCollapse, func(in string) string {
		return collapseRepeats(in, th.maxRepeats)
	})
	apply(TechniqueBlockElision, func(in string) string {
		return elideBlocks(in, th.blockBudget, th.blockKeep)
	})
	if maxLen > 0 {
		apply(TechniqueTruncation, func(in string) string {
			return truncate(in, maxLen)
		})
	}

	if len(current) >= len(content) {
		// Nothing helped.
		return Result{
			Content:          content,
			OriginalLength:   len(content),
			SummarizedLength: len(content),
		}, nil
	}

	return Result{
		Content:               current,
		OriginalLength:        len(content),
		SummarizedLength:      len(current),
		EstimatedTokenSavings: (len(content) - len(current)) / charsPerToken,
		Techniques:            techniques,
	}, nil
}

// stripWhitespace trims trailing whitespace per line and collapses runs of
// blank lines to one. With collapseSpaces it also squeezes internal runs
// of spaces and tabs.
func stripWhitespace(in string, collapseSpaces bool) string {
	lines := strings.Split(in, "\n")
	out := make([]string, 0, len(lines))
	blankRun := 0

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if collapseSpaces {
			line = squeezeSpaces(line)
		}
		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
			line = ""
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func squeezeSpaces(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	inRun := false
	for _, r := range line {
		if r == ' ' || r == '\t' {
			if inRun {
				continue
			}
			inRun = true
			b.WriteByte(' ')
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// collapseRepeats keeps at most maxRepeats consecutive occurrences of the
// same non-blank line, appending an elision marker naming the omitted
// count.
func collapseRepeats(in string, maxRepeats int) string {
	if maxRepeats <= 0 {
		maxRepeats = 1
	}

	lines := strings.Split(in, "\n")
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		line := lines[i]
		run := 1
		for i+run < len(lines) && lines[i+run] == line {
			run++
		}

		keep := run
		if strings.TrimSpace(line) != "" && run > maxRepeats {
			keep = maxRepeats
		}
		for j := 0; j < keep; j++ {
			out = append(out, line)
		}
		if keep < run {
			out = append(out, fmt.Sprintf("... (%d identical lines omitted)", run-keep))
		}
		i += run
	}
	return strings.Join(out, "\n")
}

// elideBlocks shortens fenced code blocks longer than budget lines to their
// first keep lines plus an elision marker. The closing fence is preserved.
func elideBlocks(in string, budget, keep int) string {
	lines := strings.Split(in, "\n")
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		line := lines[i]
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			out = append(out, line)
			i++
			continue
		}

		// Find the closing fence.
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				end = j
				break
			}
		}
		if end == -1 {
			out = append(out, line)
			i++
			continue
		}

		body := end - i - 1
		if body <= budget {
			out = append(out, lines[i:end+1]...)
		} else {
			out = append(out, lines[i:i+1+keep]...)
			out = append(out, fmt.Sprintf("... (%d lines elided)", body-keep))
			out = append(out, lines[end])
		}
		i = end + 1
	}
	return strings.Join(out, "\n")
}

// truncate hard-caps content at maxLen bytes, cutting at the last line or
// word boundary inside the cap when one is reasonably close, and never
// splitting a UTF-8 sequence.
func truncate(in string, maxLen int) string {
	if len(in) <= maxLen {
		return in
	}

	const marker = "\n... (truncated)"
	cut := maxLen - len(marker)
	if cut <= 0 {
		cut = maxLen
	}

	// Back off to a rune boundary.
	for cut > 0 && !utf8.RuneStart(in[cut]) {
		cut--
	}

	// Prefer a newline, then a space, within the last tenth of the cap.
	window := cut / 10
	if idx := strings.LastIndexByte(in[:cut], '\n'); idx >= cut-window {
		cut = idx
	} else if idx := strings.LastIndexByte(in[:cut], ' '); idx >= cut-window {
		cut = idx
	}

	out := in[:cut]
	if len(out)+len(marker) <= maxLen {
		out += marker
	}
	return out
}

// Ensure TextSummarizer implements Summarizer
var _ Summarizer = (*TextSummarizer)(nil)
