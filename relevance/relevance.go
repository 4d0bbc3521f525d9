package relevance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/repourl"
)

// Component weights. They sum to 1.0 so scores stay within [0,1].
const (
	weightRepoReference = 0.40
	weightFeatures      = 0.30
	weightTechStack     = 0.20
	weightKeywords      = 0.10
)

// DefaultThreshold is the minimum score a result needs to survive
// filtering.
const DefaultThreshold = 0.7

// Scorer evaluates search results against a requirement profile. The zero
// value uses DefaultThreshold.
type Scorer struct {
	// Threshold overrides DefaultThreshold when > 0.
	Threshold float64
}

func (s Scorer) threshold() float64 {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return DefaultThreshold
}

// Score computes the relevance of one search result. The result's title and
// snippet are matched case-insensitively against the profile's features,
// tech stack, and keywords; a direct repository reference contributes the
// largest weight.
func (s Scorer) Score(result model.SearchResult, profile model.RequirementProfile) model.ScoredResult {
	content := strings.ToLower(result.Title + " " + result.Snippet)

	hasRef := repourl.HasRepoReference(content)
	matchedFeatures := matchTerms(content, profile.Features)
	matchedTech := matchTerms(content, profile.TechStack)
	matchedKeywords := matchTerms(content, profile.Keywords)

	score := weightFeatures*ratio(matchedFeatures, profile.Features) +
		weightTechStack*ratio(matchedTech, profile.TechStack) +
		weightKeywords*ratio(matchedKeywords, profile.Keywords)
	if hasRef {
		score += weightRepoReference
	}

	return model.ScoredResult{
		SearchResult:     result,
		RelevanceScore:   score,
		HasRepoReference: hasRef,
		MatchedFeatures:  matchedFeatures,
		MatchedTechStack: matchedTech,
		MatchedKeywords:  matchedKeywords,
		Reasoning:        reasoning(hasRef, matchedFeatures, matchedTech, matchedKeywords),
	}
}

// Filter scores every result and returns those at or above the threshold,
// ordered by score descending. Ties break by repository reference first,
// then by input order, so equal inputs always produce equal outputs.
func (s Scorer) Filter(results []model.SearchResult, profile model.RequirementProfile) []model.ScoredResult {
	var kept []model.ScoredResult
	for _, r := range results {
		scored := s.Score(r, profile)
		if scored.RelevanceScore >= s.threshold() {
			kept = append(kept, scored)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].RelevanceScore != kept[j].RelevanceScore {
			return kept[i].RelevanceScore > kept[j].RelevanceScore
		}
		if kept[i].HasRepoReference != kept[j].HasRepoReference {
			return kept[i].HasRepoReference
		}
		return false
	})
	return kept
}

// matchTerms returns the profile terms found in content, preserving the
// profile's order. Matching is substring-based; content must already be
// lower-cased.
func matchTerms(content string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if strings.Contains(content, t) {
			matched = append(matched, term)
		}
	}
	return matched
}

// ratio maps matched terms to the fraction of required terms satisfied.
// An empty requirement contributes zero rather than dividing by zero.
func ratio(matched, required []string) float64 {
	if len(required) == 0 {
		return 0
	}
	return float64(len(matched)) / float64(len(required))
}

func reasoning(hasRef bool, features, tech, keywords []string) string {
	var parts []string
	if hasRef {
		parts = append(parts, "Contains repository URLs")
	}
	if len(features) > 0 {
		parts = append(parts, fmt.Sprintf("Matches features: %s", strings.Join(features, ", ")))
	}
	if len(tech) > 0 {
		parts = append(parts, fmt.Sprintf("Matches tech stack: %s", strings.Join(tech, ", ")))
	}
	if len(keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Matches keywords: %s", strings.Join(keywords, ", ")))
	}
	if len(parts) == 0 {
		return "No relevance signals found"
	}
	return strings.Join(parts, "; ")
}
