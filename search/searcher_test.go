package search

import "testing"

func guideDocs() []Doc {
	return []Doc{
		{
			ID:          "get_jwt_authentication",
			Name:        "get_jwt_authentication",
			Feature:     "jwt authentication",
			Description: "Implementation guide for JWT authentication",
			Content:     "Token signing, middleware, refresh flow",
			Tags:        []string{"auth", "jwt"},
		},
		{
			ID:          "get_rate_limiting",
			Name:        "get_rate_limiting",
			Feature:     "rate limiting",
			Description: "Implementation guide for rate limiting",
			Content:     "Sliding window counters and burst budgets",
			Tags:        []string{"throttle"},
		},
		{
			ID:          "list_features",
			Name:        "list_features",
			Description: "List every discovered feature",
			Content:     "jwt authentication, rate limiting",
		},
	}
}

func TestSearch_RanksNameMatchFirst(t *testing.T) {
	s := NewSearcher(Config{})
	hits, err := s.Search(guideDocs(), "jwt authentication", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if hits[0].ID != "get_jwt_authentication" {
		t.Errorf("top hit = %q", hits[0].ID)
	}
}

func TestSearch_EmptyQueryReturnsInputOrder(t *testing.T) {
	s := NewSearcher(Config{})
	hits, err := s.Search(guideDocs(), "", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "get_jwt_authentication" || hits[1].ID != "get_rate_limiting" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_LimitRespected(t *testing.T) {
	s := NewSearcher(Config{})
	hits, err := s.Search(guideDocs(), "guide", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) > 1 {
		t.Errorf("limit ignored: %d hits", len(hits))
	}
}

func TestSearch_NoMatches(t *testing.T) {
	s := NewSearcher(Config{})
	hits, err := s.Search(guideDocs(), "zzzzqqqq", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestSearch_DeterministicAcrossCalls(t *testing.T) {
	s := NewSearcher(Config{})
	first, err := s.Search(guideDocs(), "limiting", 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := s.Search(guideDocs(), "limiting", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("hit count changed: %d vs %d", len(first), len(again))
		}
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("order changed at %d: %q vs %q", j, first[j].ID, again[j].ID)
			}
		}
	}
}

func TestSearch_ReindexOnChange(t *testing.T) {
	s := NewSearcher(Config{})
	docs := guideDocs()
	if _, err := s.Search(docs, "jwt", 10); err != nil {
		t.Fatal(err)
	}

	docs = append(docs, Doc{
		ID:      "get_webhooks",
		Name:    "get_webhooks",
		Feature: "webhooks",
		Content: "Delivery retries and signatures",
	})
	hits, err := s.Search(docs, "webhooks", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != "get_webhooks" {
		t.Errorf("new document not searchable: %+v", hits)
	}
}
