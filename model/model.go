package model

import "time"

// RequirementProfile captures what the user is looking for, as extracted
// from their natural-language query. It is produced once by query analysis
// and treated as read-only by every downstream consumer.
type RequirementProfile struct {
	RawQuery  string   `json:"raw_query"`
	Keywords  []string `json:"keywords"`
	TechStack []string `json:"tech_stack"`
	Features  []string `json:"features"`
}

// Empty reports whether analysis produced nothing usable. An empty profile
// routes the workflow to query clarification.
func (p RequirementProfile) Empty() bool {
	return len(p.Keywords) == 0 && len(p.Features) == 0
}

// SourceKind distinguishes the search backend that produced a result.
type SourceKind string

const (
	SourceWeb   SourceKind = "web"
	SourceVideo SourceKind = "video"
)

// SearchResult is a single hit from a search backend. Ephemeral: it exists
// only between the search and filter stages of a run.
type SearchResult struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet"`
	Source     string     `json:"source"`
	SourceKind SourceKind `json:"source_kind"`
}

// ScoredResult is a SearchResult annotated with its relevance assessment.
// Never mutated after creation.
type ScoredResult struct {
	SearchResult

	RelevanceScore   float64  `json:"relevance_score"`
	HasRepoReference bool     `json:"has_repo_reference"`
	MatchedTechStack []string `json:"matched_tech_stack"`
	MatchedFeatures  []string `json:"matched_features"`
	MatchedKeywords  []string `json:"matched_keywords"`
	Reasoning        string   `json:"reasoning"`
}

// ExtractionOutcome holds everything pulled from one candidate page.
// Failed outcomes are ordinary values: Failed is true iff every retry
// attempt was exhausted, and the zero content fields are then valid.
type ExtractionOutcome struct {
	SourceURL      string   `json:"source_url"`
	Title          string   `json:"title"`
	TextContent    string   `json:"text_content"`
	RepositoryURLs []string `json:"repository_urls"`
	CodeFragments  []string `json:"code_fragments"`
	Failed         bool     `json:"failed"`
	Attempts       int      `json:"attempts"`
}

// Difficulty buckets the estimated implementation effort of a repository.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// RepositoryMetrics is the quality snapshot pulled from the code-hosting
// metadata collaborator plus derived scores.
type RepositoryMetrics struct {
	Stars           int        `json:"stars"`
	Forks           int        `json:"forks"`
	OpenIssues      int        `json:"open_issues"`
	LastUpdate      time.Time  `json:"last_update"`
	SizeKB          int        `json:"size_kb"`
	FileCount       int        `json:"file_count"`
	LOCEstimate     int        `json:"loc_estimate"`
	ComplexityScore float64    `json:"complexity_score"`
	Difficulty      Difficulty `json:"difficulty"`

	// Carried forward so later pipeline stages never re-contact the
	// metadata collaborator.
	Description   string `json:"description,omitempty"`
	ReadmeExcerpt string `json:"readme_excerpt,omitempty"`
	HasDocs       bool   `json:"has_docs"`
}

// RepositoryCandidate is a deduplicated repository identified during a run.
// CanonicalURL is the dedup key; Sources records which extraction outcomes
// referenced it, for provenance.
type RepositoryCandidate struct {
	CanonicalURL  string            `json:"canonical_url"`
	Sources       []string          `json:"sources"`
	Metrics       RepositoryMetrics `json:"metrics"`
	MeetsCriteria bool              `json:"meets_criteria"`
	Assessed      bool              `json:"assessed"`
}

// FeatureInsight describes one feature the deep analysis found in the
// selected repository.
type FeatureInsight struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	MatchingFiles []string `json:"matching_files,omitempty"`
}

// RepositoryAnalysis is the deep-analysis result for the selected
// repository.
type RepositoryAnalysis struct {
	CanonicalURL string           `json:"canonical_url"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	Features     []FeatureInsight `json:"features"`
}

// ImplementationGuide is a per-feature how-to generated from the analysis.
type ImplementationGuide struct {
	Feature         string   `json:"feature"`
	Overview        string   `json:"overview"`
	CoreConcepts    []string `json:"core_concepts"`
	Steps           []string `json:"steps"`
	CodeExamples    string   `json:"code_examples"`
	Integration     string   `json:"integration"`
	Troubleshooting []string `json:"troubleshooting"`
}

// ToolDescriptor is a callable tool definition derived from discovery
// findings. The descriptor is data only; serving it is the tool-hosting
// layer's job.
type ToolDescriptor struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`

	// Feature is set for per-feature tools and empty for meta-tools.
	Feature string `json:"feature,omitempty"`
}

// RunReport summarizes a workflow run. It is populated regardless of which
// terminal state the run reached, so callers can tell a full success from a
// degraded or partial one.
type RunReport struct {
	RunID             string    `json:"run_id"`
	Query             string    `json:"query"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
	TerminalState     string    `json:"terminal_state"`
	TotalCandidates   int       `json:"total_candidates"`
	QualityCandidates int       `json:"quality_candidates"`
	ScrapeAttempts    int       `json:"scrape_attempts"`
	ScrapeSucceeded   int       `json:"scrape_succeeded"`
	ScrapeFailed      int       `json:"scrape_failed"`
	AverageRelevance  float64   `json:"average_relevance"`
	ToolsRegistered   int       `json:"tools_registered"`
	Diagnostic        string    `json:"diagnostic,omitempty"`
}

// ScrapeSuccessRate returns succeeded/total across all extraction calls in
// the run, or 0 when nothing was scraped. Reporting only, never used for
// control flow.
func (r RunReport) ScrapeSuccessRate() float64 {
	total := r.ScrapeSucceeded + r.ScrapeFailed
	if total == 0 {
		return 0
	}
	return float64(r.ScrapeSucceeded) / float64(total)
}
