package tokens

import (
	"fmt"
	"sort"
)

// Technique enumerates optimization techniques a recommendation can name.
// The declaration order is the tie-break order for ranking.
type Technique int

const (
	TechniqueCaching Technique = iota
	TechniqueSummarization
	TechniqueDeduplication
	TechniquePagination
	TechniqueFiltering
	TechniqueIncrementalUpdates
	TechniqueSelectiveFields
)

func (t Technique) String() string {
	switch t {
	case TechniqueCaching:
		return "Caching"
	case TechniqueSummarization:
		return "Summarization"
	case TechniqueDeduplication:
		return "Deduplication"
	case TechniquePagination:
		return "Pagination"
	case TechniqueFiltering:
		return "Filtering"
	case TechniqueIncrementalUpdates:
		return "IncrementalUpdates"
	case TechniqueSelectiveFields:
		return "SelectiveFields"
	default:
		return "Unknown"
	}
}

// Recommendation names one technique worth applying to one tool, with an
// estimated aggregate savings figure and concrete actions.
type Recommendation struct {
	Technique        Technique
	Tool             string
	EstimatedSavings int64
	Actions          []string
}

// Recommendation thresholds.
const (
	recMinInvocations  = 3   // invocations before caching advice
	recLowHitRatio     = 0.2 // cache-hit ratio considered poor
	recLargeResponses  = 2   // over-budget responses before summarization advice
	recHighInvocations = 10  // invocations before pagination/dedup advice
)

// GenerateRecommendations scans recorded usage and returns recommendations
// ranked by estimated aggregate savings descending; ties break on the
// technique enumeration order.
func (o *Optimizer) GenerateRecommendations() []Recommendation {
	m := o.GetMetrics()
	budget := int64(o.cfg.MaxTokensPerResponse)

	var recs []Recommendation
	for tool, u := range m.PerTool {
		if u.Invocations == 0 {
			continue
		}
		avgOut := u.OutputTokens / u.Invocations
		hitRatio := float64(u.CacheHits) / float64(u.Invocations+u.CacheHits)

		if u.Invocations >= recMinInvocations && hitRatio < recLowHitRatio {
			recs = append(recs, Recommendation{
				Technique:        TechniqueCaching,
				Tool:             tool,
				EstimatedSavings: avgOut * (u.Invocations - 1),
				Actions: []string{
					fmt.Sprintf("enable response caching for %s", tool),
					"raise the cache TTL if results are stable",
				},
			})
		}
		if u.LargeResponses >= recLargeResponses {
			recs = append(recs, Recommendation{
				Technique:        TechniqueSummarization,
				Tool:             tool,
				EstimatedSavings: (avgOut - budget) * u.LargeResponses,
				Actions: []string{
					fmt.Sprintf("enable summarization for %s responses", tool),
					"prefer aggressive mode for reference-style output",
				},
			})
		}
		if u.Invocations >= recHighInvocations {
			recs = append(recs, Recommendation{
				Technique:        TechniqueDeduplication,
				Tool:             tool,
				EstimatedSavings: avgOut * u.Invocations / 4,
				Actions: []string{
					fmt.Sprintf("coalesce concurrent identical %s requests", tool),
				},
			})
		}
		if avgOut > 2*budget {
			recs = append(recs, Recommendation{
				Technique:        TechniquePagination,
				Tool:             tool,
				EstimatedSavings: (avgOut - budget) * u.Invocations,
				Actions: []string{
					fmt.Sprintf("paginate %s results instead of returning full sets", tool),
					"expose a page-size parameter to the caller",
				},
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].EstimatedSavings != recs[j].EstimatedSavings {
			return recs[i].EstimatedSavings > recs[j].EstimatedSavings
		}
		return recs[i].Technique < recs[j].Technique
	})
	return recs
}
