package suggest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ToolProfile is the lexical material the suggester ranks a tool by.
type ToolProfile struct {
	Name        string
	Category    string
	Keywords    []string
	Description string
}

// Suggestion is one ranked candidate tool for a query.
type Suggestion struct {
	Tool       string
	Confidence float64
	Rationale  string
}

// Analysis is the result of analyzing one free-text query.
type Analysis struct {
	Intent      string
	Suggestions []Suggestion
}

// Relevance weights and feedback bounds.
const (
	baselineRelevance = 0.05 // every registered tool starts here
	nameWeight        = 0.45
	keywordWeight     = 0.25
	categoryWeight    = 0.15
	descriptionWeight = 0.05

	feedbackStep  = 0.1
	minMultiplier = 0.5
	maxMultiplier = 2.0

	defaultMaxSuggestions = 5
)

// intentTaxonomy maps intent names to their trigger keywords; evaluated in
// order, first best match wins.
var intentTaxonomy = []struct {
	intent   string
	keywords []string
}{
	{"documentation", []string{"documentation", "docs", "api", "reference", "manual", "how", "what", "explain"}},
	{"scene", []string{"scene", "hierarchy", "gameobject", "object", "transform", "component", "active"}},
	{"build", []string{"build", "compile", "deploy", "platform", "target", "player"}},
	{"asset", []string{"asset", "texture", "material", "prefab", "import", "resource"}},
	{"diagnostics", []string{"error", "warning", "log", "console", "debug", "crash", "exception"}},
}

// Suggester ranks candidate tools for free-text queries and folds caller
// feedback into future rankings.
//
// Confidence is static lexical relevance scaled by a bounded feedback
// multiplier: repeated positive feedback raises a tool's relative rank,
// but the bound keeps a lexically unrelated tool from dominating a query
// it has no relation to.
type Suggester struct {
	mu       sync.RWMutex
	profiles []ToolProfile
	feedback map[string]float64
}

// NewSuggester creates a suggester over the given tool profiles.
func NewSuggester(profiles []ToolProfile) *Suggester {
	return &Suggester{
		profiles: append([]ToolProfile(nil), profiles...),
		feedback: make(map[string]float64),
	}
}

// Register adds a tool profile after construction.
func (s *Suggester) Register(p ToolProfile) {
	s.mu.Lock()
	s.profiles = append(s.profiles, p)
	s.mu.Unlock()
}

// AnalyzeQuery classifies the query's intent and returns up to
// maxSuggestions ranked candidate tools. maxSuggestions <= 0 selects a
// default of 5.
func (s *Suggester) AnalyzeQuery(query string, maxSuggestions int) Analysis {
	if maxSuggestions <= 0 {
		maxSuggestions = defaultMaxSuggestions
	}
	terms := tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	analysis := Analysis{Intent: classifyIntent(terms)}

	for _, p := range s.profiles {
		relevance, matched := relevance(p, terms)
		mult := s.multiplierLocked(p.Name)

		conf := relevance * mult
		if conf > 1 {
			conf = 1
		}
		if conf <= 0 {
			continue
		}

		rationale := "baseline relevance"
		if len(matched) > 0 {
			rationale = "matched: " + strings.Join(matched, ", ")
		}
		if mult != 1 {
			rationale += fmt.Sprintf(" (feedback x%.2f)", mult)
		}

		analysis.Suggestions = append(analysis.Suggestions, Suggestion{
			Tool:       p.Name,
			Confidence: conf,
			Rationale:  rationale,
		})
	}

	sort.SliceStable(analysis.Suggestions, func(i, j int) bool {
		if analysis.Suggestions[i].Confidence != analysis.Suggestions[j].Confidence {
			return analysis.Suggestions[i].Confidence > analysis.Suggestions[j].Confidence
		}
		return analysis.Suggestions[i].Tool < analysis.Suggestions[j].Tool
	})

	if len(analysis.Suggestions) > maxSuggestions {
		analysis.Suggestions = analysis.Suggestions[:maxSuggestions]
	}
	return analysis
}

// RecordInvocation folds one feedback event into the tool's multiplier.
func (s *Suggester) RecordInvocation(tool string, wasRelevant bool) {
	s.mu.Lock()
	if wasRelevant {
		s.feedback[tool]++
	} else {
		s.feedback[tool]--
	}
	s.mu.Unlock()
}

// InvocationHistory returns the accumulated per-tool feedback score.
func (s *Suggester) InvocationHistory() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.feedback))
	for tool, score := range s.feedback {
		out[tool] = score
	}
	return out
}

// Reset drops all accumulated feedback.
func (s *Suggester) Reset() {
	s.mu.Lock()
	s.feedback = make(map[string]float64)
	s.mu.Unlock()
}

// multiplierLocked returns the bounded feedback multiplier for a tool.
// Caller holds s.mu.
func (s *Suggester) multiplierLocked(tool string) float64 {
	mult := 1 + feedbackStep*s.feedback[tool]
	if mult < minMultiplier {
		return minMultiplier
	}
	if mult > maxMultiplier {
		return maxMultiplier
	}
	return mult
}

// relevance scores a profile against query terms and reports what matched.
func relevance(p ToolProfile, terms []string) (float64, []string) {
	score := baselineRelevance
	var matched []string

	nameLower := strings.ToLower(p.Name)
	categoryLower := strings.ToLower(p.Category)
	descLower := strings.ToLower(p.Description)

	keywords := make(map[string]bool, len(p.Keywords))
	for _, k := range p.Keywords {
		keywords[strings.ToLower(k)] = true
	}

	for _, term := range terms {
		switch {
		case strings.Contains(nameLower, term):
			score += nameWeight
			matched = append(matched, term)
		case keywords[term]:
			score += keywordWeight
			matched = append(matched, term)
		case term == categoryLower:
			score += categoryWeight
			matched = append(matched, term)
		case descLower != "" && strings.Contains(descLower, term):
			score += descriptionWeight
			matched = append(matched, term)
		}
	}
	return score, matched
}

func classifyIntent(terms []string) string {
	termSet := make(map[string]bool, len(terms))
	for _, t := range terms {
		termSet[t] = true
	}

	best := "general"
	bestMatches := 0
	for _, cat := range intentTaxonomy {
		matches := 0
		for _, k := range cat.keywords {
			if termSet[k] {
				matches++
			}
		}
		if matches > bestMatches {
			best = cat.intent
			bestMatches = matches
		}
	}
	return best
}

// tokenize lowercases and splits a query on non-alphanumeric runes.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
