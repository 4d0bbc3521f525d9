package quality

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/repodiscovery/model"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type stubMetadata struct {
	metrics map[string]model.RepositoryMetrics
	err     error
}

func (s *stubMetadata) Metadata(_ context.Context, owner, name string) (model.RepositoryMetrics, error) {
	if s.err != nil {
		return model.RepositoryMetrics{}, s.err
	}
	m, ok := s.metrics[owner+"/"+name]
	if !ok {
		return model.RepositoryMetrics{}, ErrNotFound
	}
	return m, nil
}

func TestPolicy_ComplexityScoreBounds(t *testing.T) {
	p := DefaultPolicy()
	small := model.RepositoryMetrics{SizeKB: 10, FileCount: 5, LOCEstimate: 100}
	huge := model.RepositoryMetrics{SizeKB: 1 << 20, FileCount: 100000, LOCEstimate: 10000000}

	if got := p.ComplexityScore(model.RepositoryMetrics{}); got != 0 {
		t.Errorf("empty metrics score = %v, want 0", got)
	}
	if got := p.ComplexityScore(small); got <= 0 || got >= 1 {
		t.Errorf("small repo score = %v, want (0,1)", got)
	}
	if got := p.ComplexityScore(huge); got != 10 {
		t.Errorf("huge repo score = %v, want capped at 10", got)
	}
}

func TestPolicy_Difficulty(t *testing.T) {
	p := DefaultPolicy()
	recent := testNow.Add(-24 * time.Hour)

	tests := []struct {
		name string
		m    model.RepositoryMetrics
		want model.Difficulty
	}{
		{
			"small documented active repo",
			model.RepositoryMetrics{ComplexityScore: 1, HasDocs: true, LastUpdate: recent},
			model.DifficultyEasy,
		},
		{
			"mid-size repo",
			model.RepositoryMetrics{ComplexityScore: 5, HasDocs: true, LastUpdate: recent},
			model.DifficultyMedium,
		},
		{
			"large repo",
			model.RepositoryMetrics{ComplexityScore: 9, HasDocs: true, LastUpdate: recent},
			model.DifficultyHard,
		},
		{
			"small repo without docs or activity is bumped",
			model.RepositoryMetrics{ComplexityScore: 3},
			model.DifficultyMedium,
		},
	}
	for _, tt := range tests {
		if got := p.Difficulty(tt.m, testNow); got != tt.want {
			t.Errorf("%s: Difficulty = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPolicy_MeetsCriteria(t *testing.T) {
	p := DefaultPolicy()
	good := model.RepositoryMetrics{
		Stars:      500,
		LastUpdate: testNow.Add(-30 * 24 * time.Hour),
		HasDocs:    true,
	}
	if !p.MeetsCriteria(good, testNow) {
		t.Error("expected good metrics to meet criteria")
	}

	unpopular := good
	unpopular.Stars = p.MinStars - 1
	if p.MeetsCriteria(unpopular, testNow) {
		t.Error("below-floor stars must fail")
	}

	stale := good
	stale.LastUpdate = testNow.Add(-2 * 365 * 24 * time.Hour)
	if p.MeetsCriteria(stale, testNow) {
		t.Error("stale repo must fail")
	}

	undocumented := good
	undocumented.HasDocs = false
	if p.MeetsCriteria(undocumented, testNow) {
		t.Error("undocumented repo must fail")
	}
}

func TestLoadPolicy_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("min_stars: 10\nactive_within_days: 90\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if p.MinStars != 10 || p.ActiveWithinDays != 90 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.LOCPerKB != DefaultPolicy().LOCPerKB {
		t.Errorf("omitted field lost its default: %+v", p)
	}
}

func TestAssess_FillsMetricsAndCriteria(t *testing.T) {
	client := &stubMetadata{metrics: map[string]model.RepositoryMetrics{
		"org/repo": {
			Stars:      1200,
			SizeKB:     800,
			FileCount:  120,
			LastUpdate: testNow.Add(-7 * 24 * time.Hour),
			HasDocs:    true,
		},
	}}
	a := NewAssessor(client, DefaultPolicy(), nil)
	a.Now = func() time.Time { return testNow }

	got := a.Assess(context.Background(), model.RepositoryCandidate{
		CanonicalURL: "https://github.com/org/repo",
	})
	if !got.Assessed {
		t.Fatal("expected assessed candidate")
	}
	if !got.MeetsCriteria {
		t.Error("expected candidate to meet criteria")
	}
	if got.Metrics.LOCEstimate != 800*DefaultPolicy().LOCPerKB {
		t.Errorf("LOCEstimate = %d", got.Metrics.LOCEstimate)
	}
	if got.Metrics.ComplexityScore <= 0 {
		t.Errorf("ComplexityScore = %v", got.Metrics.ComplexityScore)
	}
	if got.Metrics.Difficulty == "" {
		t.Error("Difficulty not set")
	}
}

func TestAssess_LookupFailureLeavesUnassessed(t *testing.T) {
	a := NewAssessor(&stubMetadata{err: errors.New("api down")}, DefaultPolicy(), nil)
	a.Now = func() time.Time { return testNow }

	got := a.Assess(context.Background(), model.RepositoryCandidate{
		CanonicalURL: "https://github.com/org/repo",
	})
	if got.Assessed || got.MeetsCriteria {
		t.Errorf("failed lookup must leave candidate unassessed: %+v", got)
	}
}

func TestAssess_UnknownHost(t *testing.T) {
	a := NewAssessor(&stubMetadata{}, DefaultPolicy(), nil)
	got := a.Assess(context.Background(), model.RepositoryCandidate{
		CanonicalURL: "https://host.com/org/repo",
	})
	if got.Assessed {
		t.Error("unknown host must not be assessed")
	}
}

func TestAssessAll_PreservesOrder(t *testing.T) {
	client := &stubMetadata{metrics: map[string]model.RepositoryMetrics{
		"a/one": {Stars: 100, HasDocs: true, LastUpdate: testNow},
		"b/two": {Stars: 5},
	}}
	a := NewAssessor(client, DefaultPolicy(), nil)
	a.Now = func() time.Time { return testNow }

	in := []model.RepositoryCandidate{
		{CanonicalURL: "https://github.com/a/one"},
		{CanonicalURL: "https://github.com/b/two"},
	}
	out := a.AssessAll(context.Background(), in)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].CanonicalURL != in[0].CanonicalURL || out[1].CanonicalURL != in[1].CanonicalURL {
		t.Error("order changed")
	}
	if !out[0].MeetsCriteria || out[1].MeetsCriteria {
		t.Errorf("criteria flags wrong: %+v", out)
	}
}
