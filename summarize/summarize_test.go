package summarize

import (
	"errors"
	"strings"
	"testing"
)

func TestSummarize_NonExpansion(t *testing.T) {
	s := NewTextSummarizer()

	inputs := []string{
		"",
		"short",
		"already compact single line",
		strings.Repeat("the same line\n", 50),
		"text   with     lots  of   spaces",
		"a\n\n\n\n\nb",
		"```go\n" + strings.Repeat("fmt.Println(i)\n", 100) + "```",
		strings.Repeat("x", 20000),
		"unicode: héllo wörld ☃\n" + strings.Repeat("é", 5000),
	}
	modes := []Mode{ModeMinimal, ModeBalanced, ModeAggressive}

	for _, in := range inputs {
		for _, mode := range modes {
			res, err := s.Summarize(in, Options{Mode: mode})
			if err != nil {
				t.Fatalf("Summarize failed: %v", err)
			}
			if len(res.Content) > len(in) {
				t.Errorf("mode %v expanded content: %d > %d", mode, len(res.Content), len(in))
			}
			if res.OriginalLength != len(in) {
				t.Errorf("OriginalLength = %d, want %d", res.OriginalLength, len(in))
			}
			if res.SummarizedLength != len(res.Content) {
				t.Errorf("SummarizedLength = %d, want %d", res.SummarizedLength, len(res.Content))
			}
		}
	}
}

func TestSummarize_IdentityWhenNothingHelps(t *testing.T) {
	s := NewTextSummarizer()

	in := "one compact line with no waste"
	res, err := s.Summarize(in, Options{Mode: ModeAggressive})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if res.Content != in {
		t.Errorf("compact content should pass through unchanged, got %q", res.Content)
	}
	if len(res.Techniques) != 0 {
		t.Errorf("Techniques = %v, want empty for unchanged content", res.Techniques)
	}
	if res.EstimatedTokenSavings != 0 {
		t.Errorf("EstimatedTokenSavings = %d, want 0", res.EstimatedTokenSavings)
	}
}

func TestSummarize_WhitespaceStripping(t *testing.T) {
	s := NewTextSummarizer()

	in := "line one   \n\n\n\n\nline two\t\t\nline   three"
	res, err := s.Summarize(in, Options{Mode: ModeBalanced})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !hasTechnique(res, TechniqueWhitespace) {
		t.Errorf("Techniques = %v, want %s applied", res.Techniques, TechniqueWhitespace)
	}
	if strings.Contains(res.Content, "\n\n\n") {
		t.Error("blank-line runs should be collapsed")
	}
	if strings.Contains(res.Content, "line   three") {
		t.Error("internal space runs should be squeezed in balanced mode")
	}
}

func TestSummarize_MinimalPreservesInternalSpacing(t *testing.T) {
	s := NewTextSummarizer()

	in := "column1    column2    column3\nshort\n\n\n\nend"
	res, err := s.Summarize(in, Options{Mode: ModeMinimal})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if !strings.Contains(res.Content, "column1    column2") {
		t.Error("minimal mode should not squeeze internal spacing")
	}
}

func TestSummarize_RepeatCollapse(t *testing.T) {
	s := NewTextSummarizer()

	in := strings.Repeat("WARNING: retrying connection\n", 40) + "done"
	res, err := s.Summarize(in, Options{Mode: ModeAggressive})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !hasTechnique(res, TechniqueRepeatCollapse) {
		t.Errorf("Techniques = %v, want %s applied", res.Techniques, TechniqueRepeatCollapse)
	}
	if got := strings.Count(res.Content, "WARNING: retrying connection"); got != 1 {
		t.Errorf("aggressive mode kept %d copies of the repeated line, want 1", got)
	}
	if !strings.Contains(res.Content, "identical lines omitted") {
		t.Error("collapsed repeats should leave an elision marker")
	}
	if !strings.Contains(res.Content, "done") {
		t.Error("surrounding content must survive")
	}
}

func TestSummarize_BlockElision(t *testing.T) {
	s := NewTextSummarizer()

	var b strings.Builder
	b.WriteString("Example usage:\n```go\n")
	for i := 0; i < 50; i++ {
		b.WriteString("callSomethingDistinct" + string(rune('a'+i%26)) + "(ctx)\n")
	}
	b.WriteString("```\ntrailer")

	res, err := s.Summarize(b.String(), Options{Mode: ModeAggressive})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !hasTechnique(res, TechniqueBlockElision) {
		t.Errorf("Techniques = %v, want %s applied", res.Techniques, TechniqueBlockElision)
	}
	if !strings.Contains(res.Content, "lines elided") {
		t.Error("elided block should leave a marker")
	}
	if !strings.Contains(res.Content, "```\ntrailer") {
		t.Error("closing fence and trailer must survive")
	}
}

func TestSummarize_HardCap(t *testing.T) {
	s := NewTextSummarizer()

	in := strings.Repeat("word ", 5000)
	res, err := s.Summarize(in, Options{Mode: ModeAggressive, MaxLength: 1000})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if len(res.Content) > 1000 {
		t.Errorf("content length = %d, want <= 1000", len(res.Content))
	}
	if !hasTechnique(res, TechniqueTruncation) {
		t.Errorf("Techniques = %v, want %s applied", res.Techniques, TechniqueTruncation)
	}
}

func TestSummarize_TargetRatioTightensCap(t *testing.T) {
	s := NewTextSummarizer()

	in := strings.Repeat("some text here ", 1000) // 15000 bytes
	res, err := s.Summarize(in, Options{Mode: ModeMinimal, TargetRatio: 0.1})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(res.Content) > len(in)/10 {
		t.Errorf("content length = %d, want <= %d under TargetRatio 0.1", len(res.Content), len(in)/10)
	}
}

func TestSummarize_TechniqueOrder(t *testing.T) {
	s := NewTextSummarizer()

	// Input that triggers whitespace, repeats and truncation.
	in := "padded line   \n\n\n\n" + strings.Repeat("dup\n", 30) + strings.Repeat("filler text ", 2000)
	res, err := s.Summarize(in, Options{Mode: ModeAggressive, MaxLength: 500})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	order := map[string]int{
		TechniqueWhitespace:     0,
		TechniqueRepeatCollapse: 1,
		TechniqueBlockElision:   2,
		TechniqueTruncation:     3,
	}
	for i := 1; i < len(res.Techniques); i++ {
		if order[res.Techniques[i-1]] >= order[res.Techniques[i]] {
			t.Errorf("techniques out of order: %v", res.Techniques)
			break
		}
	}
}

func TestSummarize_TokenSavingsReported(t *testing.T) {
	s := NewTextSummarizer()

	in := strings.Repeat("abcd ", 2000)
	res, err := s.Summarize(in, Options{Mode: ModeAggressive, MaxLength: 1000})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	want := (res.OriginalLength - res.SummarizedLength) / 4
	if res.EstimatedTokenSavings != want {
		t.Errorf("EstimatedTokenSavings = %d, want %d", res.EstimatedTokenSavings, want)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"minimal", ModeMinimal, false},
		{"balanced", ModeBalanced, false},
		{"aggressive", ModeAggressive, false},
		{"", ModeBalanced, false},
		{"extreme", ModeBalanced, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func hasTechnique(r Result, name string) bool {
	for _, t := range r.Techniques {
		if t == name {
			return true
		}
	}
	return false
}
