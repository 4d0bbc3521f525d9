package discovery

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/repodiscovery/quality"
	"github.com/jonwraymond/repodiscovery/relevance"
)

// Config holds the tunables for a discovery pipeline.
type Config struct {
	// RelevanceThreshold is the score cutoff for search results.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`

	// RelaxedThreshold replaces RelevanceThreshold when a run restarts
	// after query clarification, broadening the candidate pool.
	RelaxedThreshold float64 `yaml:"relaxed_threshold"`

	// MaxResultsPerSource caps hits per search backend.
	MaxResultsPerSource int `yaml:"max_results_per_source"`

	// ExtractConcurrency bounds parallel page fetches.
	ExtractConcurrency int `yaml:"extract_concurrency"`

	// MinCandidates is the point at which in-flight extraction may be
	// cancelled: once this many distinct repositories are found, the
	// rest of the fetch queue is abandoned.
	MinCandidates int `yaml:"min_candidates"`

	// MaxRetries and RetryDelay configure per-fetch retry behavior.
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Quality is the candidate acceptance policy.
	Quality quality.Policy `yaml:"quality"`
}

// DefaultConfig returns the stock pipeline configuration.
func DefaultConfig() Config {
	return Config{
		RelevanceThreshold:  relevance.DefaultThreshold,
		RelaxedThreshold:    0.5,
		MaxResultsPerSource: 10,
		ExtractConcurrency:  4,
		MinCandidates:       5,
		MaxRetries:          2,
		RetryDelay:          5 * time.Second,
		Quality:             quality.DefaultPolicy(),
	}
}

// LoadConfig reads a YAML config file. Omitted fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("discovery: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("discovery: parse config %s: %w", path, err)
	}
	return cfg, nil
}
