package bot

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/shoptalk/shoptalk/internal/commerce"
)

// ProductMatcher resolves free-text product references against a candidate
// list. It is an interface so the similarity heuristic can be swapped for a
// search index without touching the executor's control flow.
type ProductMatcher interface {
	// BestMatch returns the highest-scoring candidate, or nil when nothing
	// clears the matcher's acceptance threshold.
	BestMatch(query string, products []commerce.Product) (*commerce.Product, float64)
}

// levenshteinMatcher scores by substring containment first (0.9), then by
// normalized edit distance: (maxLen - distance) / maxLen.
type levenshteinMatcher struct {
	threshold float64
}

// NewLevenshteinMatcher returns the default fuzzy matcher. Substring hits
// score 0.9, so the threshold effectively gates edit-distance-only matches.
func NewLevenshteinMatcher() ProductMatcher {
	return &levenshteinMatcher{threshold: 0.5}
}

func (m *levenshteinMatcher) BestMatch(query string, products []commerce.Product) (*commerce.Product, float64) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, 0
	}

	var best *commerce.Product
	bestScore := 0.0
	for i := range products {
		score := similarity(q, strings.ToLower(products[i].Title))
		if score > bestScore {
			best = &products[i]
			bestScore = score
		}
	}
	if best == nil || bestScore < m.threshold {
		return nil, bestScore
	}
	return best, bestScore
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}
