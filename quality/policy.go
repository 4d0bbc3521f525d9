package quality

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/repodiscovery/model"
)

// Policy holds the tunable scoring weights and acceptance thresholds.
// The zero value is not usable; start from DefaultPolicy.
type Policy struct {
	// MinStars is the popularity floor for meetsCriteria.
	MinStars int `yaml:"min_stars"`

	// ActiveWithinDays is how recent the last push must be to count as
	// active.
	ActiveWithinDays int `yaml:"active_within_days"`

	// LOCPerKB estimates lines of code from repository size when no
	// better estimate is available.
	LOCPerKB int `yaml:"loc_per_kb"`

	// Complexity score caps per factor. The three caps sum to the
	// maximum complexity score.
	SizeScoreCap float64 `yaml:"size_score_cap"`
	FileScoreCap float64 `yaml:"file_score_cap"`
	LOCScoreCap  float64 `yaml:"loc_score_cap"`

	// Full-cap reference points: a repository at or above these values
	// earns the full cap for that factor.
	SizeKBAtCap    int `yaml:"size_kb_at_cap"`
	FileCountAtCap int `yaml:"file_count_at_cap"`
	LOCAtCap       int `yaml:"loc_at_cap"`

	// Difficulty cut points over the adjusted complexity score.
	EasyBelow   float64 `yaml:"easy_below"`
	MediumBelow float64 `yaml:"medium_below"`
}

// DefaultPolicy returns the stock policy: complexity on a 0-10 scale
// (4 size + 3 files + 3 LOC), one-year activity window, 50-star floor.
func DefaultPolicy() Policy {
	return Policy{
		MinStars:         50,
		ActiveWithinDays: 365,
		LOCPerKB:         10,
		SizeScoreCap:     4,
		FileScoreCap:     3,
		LOCScoreCap:      3,
		SizeKBAtCap:      10000,
		FileCountAtCap:   500,
		LOCAtCap:         100000,
		EasyBelow:        3.5,
		MediumBelow:      7,
	}
}

// LoadPolicy reads a YAML policy file. Omitted fields keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("quality: read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("quality: parse policy %s: %w", path, err)
	}
	return p, nil
}

// ComplexityScore combines size, file count, and estimated LOC into a
// single score. Each factor scales linearly up to its cap.
func (p Policy) ComplexityScore(m model.RepositoryMetrics) float64 {
	score := capped(float64(m.SizeKB), float64(p.SizeKBAtCap), p.SizeScoreCap) +
		capped(float64(m.FileCount), float64(p.FileCountAtCap), p.FileScoreCap) +
		capped(float64(m.LOCEstimate), float64(p.LOCAtCap), p.LOCScoreCap)
	return math.Round(score*100) / 100
}

func capped(value, atCap, limit float64) float64 {
	if atCap <= 0 {
		return 0
	}
	return math.Min(limit, value/atCap*limit)
}

// Difficulty buckets a repository by complexity, adjusted upward for
// missing documentation and staleness; both make a codebase harder to
// learn from than its raw size suggests.
func (p Policy) Difficulty(m model.RepositoryMetrics, now time.Time) model.Difficulty {
	score := m.ComplexityScore
	if !m.HasDocs {
		score++
	}
	if !p.Active(m.LastUpdate, now) {
		score++
	}
	switch {
	case score < p.EasyBelow:
		return model.DifficultyEasy
	case score < p.MediumBelow:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

// Active reports whether lastUpdate falls inside the activity window.
func (p Policy) Active(lastUpdate, now time.Time) bool {
	if lastUpdate.IsZero() {
		return false
	}
	return now.Sub(lastUpdate) <= time.Duration(p.ActiveWithinDays)*24*time.Hour
}

// MeetsCriteria is the acceptance gate: popular enough, recently active,
// and documented.
func (p Policy) MeetsCriteria(m model.RepositoryMetrics, now time.Time) bool {
	return m.Stars >= p.MinStars && p.Active(m.LastUpdate, now) && m.HasDocs
}
