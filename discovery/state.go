package discovery

import (
	"time"

	"github.com/jonwraymond/repodiscovery/model"
)

// Workflow step names. These are the nodes of the discovery graph.
const (
	StepQueryAnalysis       = "QueryAnalysis"
	StepClarifyQuery        = "ClarifyQuery"
	StepSearch              = "Search"
	StepFilter              = "Filter"
	StepExtractCandidates   = "ExtractCandidates"
	StepNoCandidatesFound   = "NoCandidatesFound"
	StepEvaluate            = "Evaluate"
	StepNoQualityCandidates = "NoQualityCandidates"
	StepSelect              = "Select"
	StepAnalyze             = "Analyze"
	StepAnalysisError       = "AnalysisError"
	StepBuildGuides         = "BuildGuides"
	StepRegisterTools       = "RegisterTools"
	StepRegistrationError   = "RegistrationError"
	StepComplete            = "Complete"
)

// State is the single shared value threaded through the workflow. Each
// field has exactly one writing step; everything downstream reads only.
type State struct {
	RunID     string
	Query     string
	StartedAt time.Time

	// Threshold is the relevance cutoff for this run. A clarify restart
	// relaxes it.
	Threshold float64

	// Profile is written once by QueryAnalysis and read-only after.
	Profile model.RequirementProfile

	// Results is the merged output of the search step.
	Results []model.SearchResult

	// Scored is the filtered, ranked subset of Results.
	Scored []model.ScoredResult

	// Outcomes holds one extraction outcome per scored result URL.
	Outcomes []model.ExtractionOutcome

	// Candidates is the deduplicated repository set.
	Candidates []model.RepositoryCandidate

	// Quality is the subset of Candidates meeting the policy criteria.
	Quality []model.RepositoryCandidate

	// UseAllCandidates makes selection fall back to the full candidate
	// list when no candidate met the quality bar.
	UseAllCandidates bool

	// FailedAnalyses tracks candidates whose deep analysis failed, so
	// re-selection skips them.
	FailedAnalyses map[string]bool

	// Selected is the candidate chosen for deep analysis.
	Selected *model.RepositoryCandidate

	Analysis model.RepositoryAnalysis
	Guides   []model.ImplementationGuide

	// ToolCount is the number of tools installed by registration.
	ToolCount int

	// Diagnostics accumulates recoverable-failure notes for the report.
	Diagnostics []string

	// ClarifyHint explains what the caller should refine before
	// resuming a clarify-terminated run.
	ClarifyHint string
}

// report builds the run summary from whatever the run accomplished.
func (s *State) report(terminal string, completedAt time.Time) model.RunReport {
	r := model.RunReport{
		RunID:             s.RunID,
		Query:             s.Query,
		StartedAt:         s.StartedAt,
		CompletedAt:       completedAt,
		TerminalState:     terminal,
		TotalCandidates:   len(s.Candidates),
		QualityCandidates: len(s.Quality),
		ToolsRegistered:   s.ToolCount,
	}
	for _, out := range s.Outcomes {
		r.ScrapeAttempts += out.Attempts
		if out.Failed {
			r.ScrapeFailed++
		} else {
			r.ScrapeSucceeded++
		}
	}
	if len(s.Scored) > 0 {
		var sum float64
		for _, sc := range s.Scored {
			sum += sc.RelevanceScore
		}
		r.AverageRelevance = sum / float64(len(s.Scored))
	}
	if len(s.Diagnostics) > 0 {
		r.Diagnostic = s.Diagnostics[len(s.Diagnostics)-1]
	}
	if s.ClarifyHint != "" {
		r.Diagnostic = s.ClarifyHint
	}
	return r
}
