package relevance

import (
	"math"
	"testing"

	"github.com/jonwraymond/repodiscovery/model"
)

func jwtProfile() model.RequirementProfile {
	return model.RequirementProfile{
		RawQuery:  "JWT authentication implementation in Go",
		Keywords:  []string{"jwt", "authentication", "token"},
		TechStack: []string{"go"},
		Features:  []string{"jwt", "authentication"},
	}
}

func TestScore_FullMatchWithRepoReference(t *testing.T) {
	var s Scorer
	result := model.SearchResult{
		Title:   "golang-jwt: JWT authentication for Go",
		URL:     "https://example.com/article",
		Snippet: "Token middleware, see https://github.com/golang-jwt/jwt for the code.",
	}

	scored := s.Score(result, jwtProfile())
	if scored.RelevanceScore < 0.9 {
		t.Errorf("expected score >= 0.9 for a full match with repo link, got %v", scored.RelevanceScore)
	}
	if !scored.HasRepoReference {
		t.Error("expected HasRepoReference")
	}
	if len(scored.MatchedFeatures) != 2 {
		t.Errorf("MatchedFeatures = %v", scored.MatchedFeatures)
	}
}

func TestScore_Bounds(t *testing.T) {
	var s Scorer
	results := []model.SearchResult{
		{},
		{Title: "unrelated cooking blog", Snippet: "recipes"},
		{Title: "jwt authentication in go", Snippet: "token code at github.com/a/b"},
	}
	for _, r := range results {
		got := s.Score(r, jwtProfile()).RelevanceScore
		if got < 0 || got > 1 {
			t.Errorf("score %v out of [0,1] for %q", got, r.Title)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	var s Scorer
	result := model.SearchResult{Title: "JWT auth", Snippet: "github.com/a/b go token"}
	first := s.Score(result, jwtProfile())
	for i := 0; i < 10; i++ {
		again := s.Score(result, jwtProfile())
		if math.Abs(again.RelevanceScore-first.RelevanceScore) > 0 {
			t.Fatalf("score changed between calls: %v vs %v", first.RelevanceScore, again.RelevanceScore)
		}
		if again.Reasoning != first.Reasoning {
			t.Fatalf("reasoning changed between calls")
		}
	}
}

func TestScore_NoRepoReferenceCapsScore(t *testing.T) {
	var s Scorer
	result := model.SearchResult{
		Title:   "jwt authentication in go",
		Snippet: "token tutorial, no source linked",
	}
	scored := s.Score(result, jwtProfile())
	if scored.HasRepoReference {
		t.Error("unexpected repo reference")
	}
	// Without the 0.40 reference weight the maximum attainable is 0.60.
	if scored.RelevanceScore > 0.60+1e-9 {
		t.Errorf("score %v exceeds non-reference ceiling", scored.RelevanceScore)
	}
}

func TestFilter_ThresholdIsSubset(t *testing.T) {
	var s Scorer
	results := []model.SearchResult{
		{Title: "jwt authentication in go", Snippet: "token at github.com/a/b"},
		{Title: "cooking with cast iron", Snippet: "no code here"},
		{Title: "go token snippets", Snippet: "github.com/c/d jwt authentication"},
	}
	kept := s.Filter(results, jwtProfile())
	if len(kept) == 0 {
		t.Fatal("expected survivors")
	}
	for _, r := range kept {
		if r.RelevanceScore < DefaultThreshold {
			t.Errorf("result %q kept below threshold: %v", r.Title, r.RelevanceScore)
		}
	}
	for _, r := range kept {
		if r.Title == "cooking with cast iron" {
			t.Error("irrelevant result survived filtering")
		}
	}
}

func TestFilter_OrderedByScoreThenStable(t *testing.T) {
	s := Scorer{Threshold: 0.1}
	results := []model.SearchResult{
		{Title: "go jwt", Snippet: "authentication token", URL: "u1"},
		{Title: "jwt authentication go token", Snippet: "github.com/x/y", URL: "u2"},
		{Title: "go jwt", Snippet: "authentication token", URL: "u3"},
	}
	kept := s.Filter(results, jwtProfile())
	if len(kept) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(kept))
	}
	if kept[0].URL != "u2" {
		t.Errorf("highest-scoring result should lead, got %q", kept[0].URL)
	}
	// u1 and u3 tie exactly; input order must be preserved.
	if kept[1].URL != "u1" || kept[2].URL != "u3" {
		t.Errorf("tie-break violated input order: %q then %q", kept[1].URL, kept[2].URL)
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	var s Scorer
	if got := s.Filter(nil, jwtProfile()); got != nil {
		t.Errorf("expected nil for no input, got %v", got)
	}
}

func TestScore_EmptyProfile(t *testing.T) {
	var s Scorer
	result := model.SearchResult{Title: "anything", Snippet: "github.com/a/b"}
	scored := s.Score(result, model.RequirementProfile{})
	// Only the reference weight can contribute when nothing is required.
	if scored.RelevanceScore != weightRepoReference {
		t.Errorf("score = %v, want %v", scored.RelevanceScore, weightRepoReference)
	}
}
