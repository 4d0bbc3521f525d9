package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonwraymond/repodiscovery/guides"
	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/quality"
	"github.com/jonwraymond/repodiscovery/registry"
	"github.com/jonwraymond/repodiscovery/scrape"
	"github.com/jonwraymond/repodiscovery/websearch"
	"github.com/jonwraymond/repodiscovery/workflow"
)

// ErrNoOracle is returned by New when no inference client is provided.
var ErrNoOracle = errors.New("discovery: an oracle is required")

// Options configures a Pipeline. Oracle is required; every other field has
// a working default.
type Options struct {
	// Oracle performs all structured inference: query analysis, deep
	// repository analysis, and guide generation.
	Oracle guides.Inferrer

	// WebBackend and VideoBackend are the raw search providers. Nil
	// defaults to DuckDuckGo, with a YouTube site filter for video.
	WebBackend   websearch.Backend
	VideoBackend websearch.Backend

	// Fetcher retrieves candidate pages. Nil uses plain HTTP.
	Fetcher scrape.Fetcher

	// Metadata answers repository quality lookups. Nil uses the GitHub
	// API without authentication.
	Metadata quality.MetadataClient

	// Registry receives the generated tools. Nil creates a fresh one.
	Registry *registry.Registry

	// Config holds the pipeline tunables. Nil uses DefaultConfig.
	Config *Config

	// Logger is shared by every component. Nil disables logging.
	Logger *zap.Logger
}

// Pipeline is a validated, reusable discovery workflow. One Pipeline can
// serve many runs; all run-specific data lives in the per-run State.
type Pipeline struct {
	engine   *workflow.Engine[State]
	cfg      Config
	registry *registry.Registry
	logger   *zap.Logger
}

// New builds the discovery workflow from opts and validates its routing
// before any run starts.
func New(opts Options) (*Pipeline, error) {
	if opts.Oracle == nil {
		return nil, ErrNoOracle
	}

	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	web := opts.WebBackend
	if web == nil {
		web = &websearch.DuckDuckGo{}
	}
	video := opts.VideoBackend
	if video == nil {
		video = &websearch.DuckDuckGo{SiteFilter: "youtube.com"}
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &scrape.HTTPFetcher{}
	}
	metadata := opts.Metadata
	if metadata == nil {
		metadata = quality.NewGitHubClient(context.Background(), "")
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.New(registry.Config{
			ServerInfo: registry.ServerInfo{Name: "repodiscovery", Version: "0.1.0"},
			Logger:     logger,
		})
	}

	webAdapter := &websearch.Adapter{
		Backend:    web,
		Kind:       model.SourceWeb,
		Source:     "web",
		MaxResults: cfg.MaxResultsPerSource,
		Logger:     logger,
	}
	videoAdapter := &websearch.Adapter{
		Backend:    video,
		Kind:       model.SourceVideo,
		Source:     "video",
		MaxResults: cfg.MaxResultsPerSource,
		Logger:     logger,
	}
	extractor := scrape.NewExtractor(fetcher,
		scrape.NewRetryPolicy(cfg.MaxRetries, cfg.RetryDelay), logger)
	assessor := quality.NewAssessor(metadata, cfg.Quality, logger)
	analyzer := &guides.Analyzer{Oracle: opts.Oracle, Logger: logger}
	generator := &guides.Generator{Oracle: opts.Oracle, Logger: logger}

	eng := workflow.New[State](logger)
	eng.Add(&queryAnalysisStep{oracle: opts.Oracle, logger: logger})
	eng.Add(&searchStep{web: webAdapter, video: videoAdapter})
	eng.Add(&filterStep{})
	eng.Add(&extractStep{
		extractor:     extractor,
		concurrency:   cfg.ExtractConcurrency,
		minCandidates: cfg.MinCandidates,
	})
	eng.Add(&noCandidatesStep{})
	eng.Add(&evaluateStep{assessor: assessor})
	eng.Add(&noQualityStep{})
	eng.Add(&selectStep{})
	eng.Add(&analyzeStep{analyzer: analyzer})
	eng.Add(&analysisErrorStep{logger: logger})
	eng.Add(&buildGuidesStep{generator: generator})
	eng.Add(&registerStep{registry: reg})
	eng.Add(&registrationErrorStep{logger: logger})
	eng.Add(&completeStep{})
	eng.Add(&clarifyStep{})

	eng.Route(StepQueryAnalysis, actClarify, StepClarifyQuery)
	eng.Route(StepQueryAnalysis, workflow.Default, StepSearch)
	eng.Route(StepSearch, workflow.Default, StepFilter)
	eng.Route(StepFilter, workflow.Default, StepExtractCandidates)
	eng.Route(StepExtractCandidates, actNoCandidates, StepNoCandidatesFound)
	eng.Route(StepExtractCandidates, workflow.Default, StepEvaluate)
	eng.Route(StepNoCandidatesFound, workflow.Default, StepClarifyQuery)
	eng.Route(StepEvaluate, actNoQuality, StepNoQualityCandidates)
	eng.Route(StepEvaluate, workflow.Default, StepSelect)
	eng.Route(StepNoQualityCandidates, workflow.Default, StepSelect)
	eng.Route(StepSelect, actExhausted, StepClarifyQuery)
	eng.Route(StepSelect, workflow.Default, StepAnalyze)
	eng.Route(StepAnalyze, actError, StepAnalysisError)
	eng.Route(StepAnalyze, workflow.Default, StepBuildGuides)
	eng.Route(StepAnalysisError, workflow.Default, StepSelect)
	eng.Route(StepBuildGuides, workflow.Default, StepRegisterTools)
	eng.Route(StepRegisterTools, actError, StepRegistrationError)
	eng.Route(StepRegisterTools, workflow.Default, StepComplete)
	eng.Route(StepRegistrationError, workflow.Default, StepComplete)

	if err := eng.Validate(); err != nil {
		return nil, fmt.Errorf("discovery: workflow wiring: %w", err)
	}

	return &Pipeline{engine: eng, cfg: cfg, registry: reg, logger: logger}, nil
}

// Registry returns the tool registry runs install into, for serving.
func (p *Pipeline) Registry() *registry.Registry { return p.registry }

// Run executes the workflow for query. The returned report is populated
// for every terminal state, including clarification and degraded
// completion; the returned state supports Resume after a clarify
// terminal. A non-nil error means the workflow itself failed, and the
// report then covers whatever the run accomplished before failing.
func (p *Pipeline) Run(ctx context.Context, query string) (model.RunReport, *State, error) {
	state := &State{
		RunID:          uuid.NewString(),
		Query:          query,
		StartedAt:      time.Now(),
		Threshold:      p.cfg.RelevanceThreshold,
		FailedAnalyses: make(map[string]bool),
	}
	p.logger.Info("discovery run starting",
		zap.String("run_id", state.RunID),
		zap.String("query", query))

	res, err := p.engine.Run(ctx, state)
	report := state.report(res.Terminal, time.Now())
	if err != nil {
		return report, state, err
	}
	p.logger.Info("discovery run finished",
		zap.String("run_id", state.RunID),
		zap.String("terminal", res.Terminal),
		zap.Int("tools", state.ToolCount))
	return report, state, nil
}

// Resume restarts a clarify-terminated run with a refined query. The
// relevance threshold is relaxed so the broader query yields a wider
// candidate pool; failed-analysis bookkeeping carries over so known-bad
// candidates stay skipped.
func (p *Pipeline) Resume(ctx context.Context, state *State, refinedQuery string) (model.RunReport, error) {
	if refinedQuery != "" {
		state.Query = refinedQuery
	}
	state.Threshold = p.cfg.RelaxedThreshold
	state.resetPools()

	res, err := p.engine.RunFrom(ctx, state, StepQueryAnalysis)
	report := state.report(res.Terminal, time.Now())
	return report, err
}

// resetPools clears the per-pass collections so a resumed run rebuilds
// them from the refined query. Identity, timing, and failure bookkeeping
// survive.
func (s *State) resetPools() {
	s.Profile = model.RequirementProfile{}
	s.Results = nil
	s.Scored = nil
	s.Outcomes = nil
	s.Candidates = nil
	s.Quality = nil
	s.UseAllCandidates = false
	s.Selected = nil
	s.Analysis = model.RepositoryAnalysis{}
	s.Guides = nil
	s.ClarifyHint = ""
}
