package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/repodiscovery/guides"
	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/quality"
	"github.com/jonwraymond/repodiscovery/registry"
	"github.com/jonwraymond/repodiscovery/relevance"
	"github.com/jonwraymond/repodiscovery/repourl"
	"github.com/jonwraymond/repodiscovery/scrape"
	"github.com/jonwraymond/repodiscovery/toolbuild"
	"github.com/jonwraymond/repodiscovery/websearch"
	"github.com/jonwraymond/repodiscovery/workflow"
)

// Action tags emitted by the discovery steps.
const (
	actClarify      workflow.Action = "clarify"
	actNoCandidates workflow.Action = "no_candidates"
	actNoQuality    workflow.Action = "no_quality"
	actError        workflow.Action = "error"
	actExhausted    workflow.Action = "exhausted"
)

// queryAnalysisStep extracts a requirement profile from the raw query.
type queryAnalysisStep struct {
	oracle guides.Inferrer
	logger *zap.Logger
}

func (s *queryAnalysisStep) Name() string { return StepQueryAnalysis }
func (s *queryAnalysisStep) Actions() []workflow.Action {
	return []workflow.Action{actClarify, workflow.Default}
}

func (s *queryAnalysisStep) Prepare(state *State) (any, error) {
	return state.Query, nil
}

func (s *queryAnalysisStep) Execute(ctx context.Context, input any) (any, error) {
	query := input.(string)
	var profile model.RequirementProfile
	err := s.oracle.Infer(ctx, profilePrompt(query), profileSchema(), &profile)
	if err != nil {
		// Structural failure: no usable profile routes to clarification
		// instead of aborting the run.
		s.logger.Warn("query analysis produced no usable profile", zap.Error(err))
		return model.RequirementProfile{}, nil
	}
	return profile, nil
}

func (s *queryAnalysisStep) Finalize(state *State, input, result any) workflow.Action {
	profile := result.(model.RequirementProfile)
	profile.RawQuery = state.Query
	state.Profile = profile
	if profile.Empty() {
		state.ClarifyHint = "The query was too vague to extract requirements; restate it with concrete technologies or features."
		return actClarify
	}
	return workflow.Default
}

func profilePrompt(query string) string {
	return "Extract search requirements from this developer request: " + query +
		"\n\nReturn JSON with keywords (search terms), tech_stack (languages, frameworks), and features (capabilities the repository must implement)."
}

func profileSchema() *jsonschema.Schema {
	stringArray := &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"keywords":   stringArray,
			"tech_stack": stringArray,
			"features":   stringArray,
		},
		Required: []string{"keywords", "features"},
	}
}

// searchStep fans out to the web and video adapters and merges their
// results deterministically.
type searchStep struct {
	web   *websearch.Adapter
	video *websearch.Adapter
}

func (s *searchStep) Name() string               { return StepSearch }
func (s *searchStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }

func (s *searchStep) Prepare(state *State) (any, error) {
	return state.Profile, nil
}

// rankedResult carries the merge key: position within its own backend's
// ranking, then source kind.
type rankedResult struct {
	result model.SearchResult
	rank   int
}

func (s *searchStep) Execute(ctx context.Context, input any) (any, error) {
	profile := input.(model.RequirementProfile)

	var webResults, videoResults []model.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		webResults = s.web.Search(gctx, profile)
		return nil
	})
	g.Go(func() error {
		videoResults = s.video.Search(gctx, profile)
		return nil
	})
	_ = g.Wait()

	// Merge order must not depend on completion order: sort on backend
	// rank, web before video on ties.
	ranked := make([]rankedResult, 0, len(webResults)+len(videoResults))
	for i, r := range webResults {
		ranked = append(ranked, rankedResult{result: r, rank: i})
	}
	for i, r := range videoResults {
		ranked = append(ranked, rankedResult{result: r, rank: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank < ranked[j].rank
		}
		return ranked[i].result.SourceKind == model.SourceWeb &&
			ranked[j].result.SourceKind != model.SourceWeb
	})

	merged := make([]model.SearchResult, len(ranked))
	for i, r := range ranked {
		merged[i] = r.result
	}
	return merged, nil
}

func (s *searchStep) Finalize(state *State, input, result any) workflow.Action {
	state.Results = result.([]model.SearchResult)
	return workflow.Default
}

// filterStep scores and filters the merged results. Pure computation.
type filterStep struct{}

type filterInput struct {
	results   []model.SearchResult
	profile   model.RequirementProfile
	threshold float64
}

func (s *filterStep) Name() string               { return StepFilter }
func (s *filterStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }

func (s *filterStep) Prepare(state *State) (any, error) {
	return filterInput{results: state.Results, profile: state.Profile, threshold: state.Threshold}, nil
}

func (s *filterStep) Execute(ctx context.Context, input any) (any, error) {
	in := input.(filterInput)
	scorer := relevance.Scorer{Threshold: in.threshold}
	return scorer.Filter(in.results, in.profile), nil
}

func (s *filterStep) Finalize(state *State, input, result any) workflow.Action {
	state.Scored = result.([]model.ScoredResult)
	return workflow.Default
}

// extractStep fetches the surviving result pages concurrently and
// deduplicates the repositories they reference.
type extractStep struct {
	extractor     *scrape.Extractor
	concurrency   int
	minCandidates int
}

func (s *extractStep) Name() string { return StepExtractCandidates }
func (s *extractStep) Actions() []workflow.Action {
	return []workflow.Action{actNoCandidates, workflow.Default}
}

func (s *extractStep) Prepare(state *State) (any, error) {
	urls := make([]string, 0, len(state.Scored))
	seen := make(map[string]struct{}, len(state.Scored))
	for _, r := range state.Scored {
		if _, ok := seen[r.URL]; ok || r.URL == "" {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
	}
	return urls, nil
}

func (s *extractStep) Execute(ctx context.Context, input any) (any, error) {
	urls := input.([]string)
	if len(urls) == 0 {
		return []model.ExtractionOutcome{}, nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]model.ExtractionOutcome, len(urls))
	attempted := make([]bool, len(urls))
	found := newRepoCounter()

	g := new(errgroup.Group)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, url := range urls {
		g.Go(func() error {
			// Skip work queued behind the cancellation point; enough
			// repositories have already been found.
			if fetchCtx.Err() != nil {
				return nil
			}
			attempted[i] = true
			out := s.extractor.Extract(fetchCtx, url)
			slots[i] = out

			if found.add(out.RepositoryURLs) >= s.minCandidates && s.minCandidates > 0 {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic order: input order, skipped slots dropped.
	outcomes := make([]model.ExtractionOutcome, 0, len(urls))
	for i := range slots {
		if attempted[i] {
			outcomes = append(outcomes, slots[i])
		}
	}
	return outcomes, nil
}

func (s *extractStep) Finalize(state *State, input, result any) workflow.Action {
	state.Outcomes = result.([]model.ExtractionOutcome)
	state.Candidates = repourl.Dedupe(state.Outcomes)
	if len(state.Candidates) == 0 {
		return actNoCandidates
	}
	return workflow.Default
}

// noCandidatesStep records the empty outcome and hands off to
// clarification.
type noCandidatesStep struct{}

func (s *noCandidatesStep) Name() string               { return StepNoCandidatesFound }
func (s *noCandidatesStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }
func (s *noCandidatesStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *noCandidatesStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *noCandidatesStep) Finalize(state *State, _, _ any) workflow.Action {
	state.Diagnostics = append(state.Diagnostics, "no repository candidates found")
	state.ClarifyHint = "No repositories were found for this query; add specific technologies or feature names and try again."
	return workflow.Default
}

// evaluateStep assesses candidate quality against the policy.
type evaluateStep struct {
	assessor *quality.Assessor
}

func (s *evaluateStep) Name() string { return StepEvaluate }
func (s *evaluateStep) Actions() []workflow.Action {
	return []workflow.Action{actNoQuality, workflow.Default}
}

func (s *evaluateStep) Prepare(state *State) (any, error) {
	cands := make([]model.RepositoryCandidate, len(state.Candidates))
	copy(cands, state.Candidates)
	return cands, nil
}

func (s *evaluateStep) Execute(ctx context.Context, input any) (any, error) {
	return s.assessor.AssessAll(ctx, input.([]model.RepositoryCandidate)), nil
}

func (s *evaluateStep) Finalize(state *State, input, result any) workflow.Action {
	assessed := result.([]model.RepositoryCandidate)
	state.Candidates = assessed
	state.Quality = state.Quality[:0]
	for _, c := range assessed {
		if c.MeetsCriteria {
			state.Quality = append(state.Quality, c)
		}
	}
	if len(state.Quality) == 0 {
		return actNoQuality
	}
	return workflow.Default
}

// noQualityStep widens selection to the full candidate list.
type noQualityStep struct{}

func (s *noQualityStep) Name() string               { return StepNoQualityCandidates }
func (s *noQualityStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }
func (s *noQualityStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *noQualityStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *noQualityStep) Finalize(state *State, _, _ any) workflow.Action {
	state.UseAllCandidates = true
	state.Diagnostics = append(state.Diagnostics, "no candidate met the quality criteria; selecting from the full list")
	return workflow.Default
}

// selectStep picks the best remaining candidate. Pure ranking.
type selectStep struct{}

type selectInput struct {
	pool   []model.RepositoryCandidate
	failed map[string]bool
}

func (s *selectStep) Name() string { return StepSelect }
func (s *selectStep) Actions() []workflow.Action {
	return []workflow.Action{actExhausted, workflow.Default}
}

func (s *selectStep) Prepare(state *State) (any, error) {
	pool := state.Quality
	if state.UseAllCandidates {
		pool = state.Candidates
	}
	failed := make(map[string]bool, len(state.FailedAnalyses))
	for k, v := range state.FailedAnalyses {
		failed[k] = v
	}
	return selectInput{pool: pool, failed: failed}, nil
}

func (s *selectStep) Execute(ctx context.Context, input any) (any, error) {
	in := input.(selectInput)
	ranked := make([]model.RepositoryCandidate, len(in.pool))
	copy(ranked, in.pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MeetsCriteria != ranked[j].MeetsCriteria {
			return ranked[i].MeetsCriteria
		}
		if ranked[i].Metrics.Stars != ranked[j].Metrics.Stars {
			return ranked[i].Metrics.Stars > ranked[j].Metrics.Stars
		}
		return ranked[i].CanonicalURL < ranked[j].CanonicalURL
	})
	for _, cand := range ranked {
		if !in.failed[cand.CanonicalURL] {
			return &cand, nil
		}
	}
	return (*model.RepositoryCandidate)(nil), nil
}

func (s *selectStep) Finalize(state *State, input, result any) workflow.Action {
	selected := result.(*model.RepositoryCandidate)
	if selected == nil {
		state.ClarifyHint = "Deep analysis failed for every candidate; refine the query and retry."
		return actExhausted
	}
	state.Selected = selected
	return workflow.Default
}

// analyzeStep runs the deep analysis of the selected repository.
type analyzeStep struct {
	analyzer *guides.Analyzer
}

type analyzeInput struct {
	candidate model.RepositoryCandidate
	profile   model.RequirementProfile
}

type analyzeOutcome struct {
	analysis model.RepositoryAnalysis
	err      error
}

func (s *analyzeStep) Name() string { return StepAnalyze }
func (s *analyzeStep) Actions() []workflow.Action {
	return []workflow.Action{actError, workflow.Default}
}

func (s *analyzeStep) Prepare(state *State) (any, error) {
	return analyzeInput{candidate: *state.Selected, profile: state.Profile}, nil
}

func (s *analyzeStep) Execute(ctx context.Context, input any) (any, error) {
	in := input.(analyzeInput)
	analysis, err := s.analyzer.Analyze(ctx, in.candidate, in.profile)
	// Failure is a routing decision, not a workflow abort.
	return analyzeOutcome{analysis: analysis, err: err}, nil
}

func (s *analyzeStep) Finalize(state *State, input, result any) workflow.Action {
	in := input.(analyzeInput)
	out := result.(analyzeOutcome)
	if out.err != nil {
		if state.FailedAnalyses == nil {
			state.FailedAnalyses = make(map[string]bool)
		}
		state.FailedAnalyses[in.candidate.CanonicalURL] = true
		state.Diagnostics = append(state.Diagnostics,
			"analysis failed for "+in.candidate.CanonicalURL+": "+out.err.Error())
		return actError
	}
	state.Analysis = out.analysis
	return workflow.Default
}

// analysisErrorStep is the recovery hop back to selection.
type analysisErrorStep struct {
	logger *zap.Logger
}

func (s *analysisErrorStep) Name() string               { return StepAnalysisError }
func (s *analysisErrorStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }
func (s *analysisErrorStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *analysisErrorStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *analysisErrorStep) Finalize(state *State, _, _ any) workflow.Action {
	s.logger.Info("retrying selection after analysis failure",
		zap.Int("failed", len(state.FailedAnalyses)))
	return workflow.Default
}

// buildGuidesStep generates implementation guides for every analysis
// feature.
type buildGuidesStep struct {
	generator *guides.Generator
}

func (s *buildGuidesStep) Name() string               { return StepBuildGuides }
func (s *buildGuidesStep) Actions() []workflow.Action { return []workflow.Action{workflow.Default} }

func (s *buildGuidesStep) Prepare(state *State) (any, error) {
	return state.Analysis, nil
}

func (s *buildGuidesStep) Execute(ctx context.Context, input any) (any, error) {
	return s.generator.Generate(ctx, input.(model.RepositoryAnalysis)), nil
}

func (s *buildGuidesStep) Finalize(state *State, input, result any) workflow.Action {
	state.Guides = result.([]model.ImplementationGuide)
	return workflow.Default
}

// registerStep converts the findings to tool records and installs them.
type registerStep struct {
	registry *registry.Registry
}

type registerInput struct {
	analysis model.RepositoryAnalysis
	guides   []model.ImplementationGuide
}

type registerOutcome struct {
	tools int
	err   error
}

func (s *registerStep) Name() string { return StepRegisterTools }
func (s *registerStep) Actions() []workflow.Action {
	return []workflow.Action{actError, workflow.Default}
}

func (s *registerStep) Prepare(state *State) (any, error) {
	return registerInput{analysis: state.Analysis, guides: state.Guides}, nil
}

func (s *registerStep) Execute(ctx context.Context, input any) (any, error) {
	in := input.(registerInput)
	records, err := toolbuild.Build(in.analysis, in.guides)
	if err != nil {
		return registerOutcome{err: err}, nil
	}
	if err := s.registry.Install(in.analysis, records); err != nil {
		return registerOutcome{err: err}, nil
	}
	return registerOutcome{tools: len(records)}, nil
}

func (s *registerStep) Finalize(state *State, input, result any) workflow.Action {
	out := result.(registerOutcome)
	if out.err != nil {
		state.Diagnostics = append(state.Diagnostics, "tool registration failed: "+out.err.Error())
		return actError
	}
	state.ToolCount = out.tools
	return workflow.Default
}

// registrationErrorStep degrades to completion with partial results.
type registrationErrorStep struct {
	logger *zap.Logger
}

func (s *registrationErrorStep) Name() string { return StepRegistrationError }
func (s *registrationErrorStep) Actions() []workflow.Action {
	return []workflow.Action{workflow.Default}
}
func (s *registrationErrorStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *registrationErrorStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *registrationErrorStep) Finalize(state *State, _, _ any) workflow.Action {
	s.logger.Warn("completing run without registered tools")
	return workflow.Default
}

// completeStep is the success terminal.
type completeStep struct{}

func (s *completeStep) Name() string               { return StepComplete }
func (s *completeStep) Actions() []workflow.Action { return nil }
func (s *completeStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *completeStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *completeStep) Finalize(*State, any, any) workflow.Action {
	return workflow.Default
}

// clarifyStep is the terminal that waits for a refined query.
type clarifyStep struct{}

func (s *clarifyStep) Name() string               { return StepClarifyQuery }
func (s *clarifyStep) Actions() []workflow.Action { return nil }
func (s *clarifyStep) Prepare(*State) (any, error) {
	return nil, nil
}
func (s *clarifyStep) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}
func (s *clarifyStep) Finalize(state *State, _, _ any) workflow.Action {
	if state.ClarifyHint == "" {
		state.ClarifyHint = "Refine the query and resume the run."
	}
	return workflow.Default
}

// repoCounter tracks distinct canonical repositories across concurrent
// extraction sub-tasks.
type repoCounter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newRepoCounter() *repoCounter {
	return &repoCounter{seen: make(map[string]struct{})}
}

func (c *repoCounter) add(urls []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		c.seen[u] = struct{}{}
	}
	return len(c.seen)
}
