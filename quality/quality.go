package quality

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/repourl"
)

// MetadataClient is the code-hosting metadata boundary.
type MetadataClient interface {
	Metadata(ctx context.Context, owner, name string) (model.RepositoryMetrics, error)
}

// Assessor scores candidates against its policy.
type Assessor struct {
	Client MetadataClient
	Policy Policy

	// Logger records lookup failures. Nil disables logging.
	Logger *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewAssessor returns an assessor with the given client and policy.
func NewAssessor(client MetadataClient, policy Policy, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{Client: client, Policy: policy, Logger: logger}
}

func (a *Assessor) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

func (a *Assessor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Assess fills in the candidate's metrics and acceptance flag. Lookup
// failures leave the candidate unassessed rather than dropping it: an
// unreachable repository is still a finding, just an unscored one.
func (a *Assessor) Assess(ctx context.Context, cand model.RepositoryCandidate) model.RepositoryCandidate {
	owner, name, ok := repourl.Split(cand.CanonicalURL)
	if !ok {
		a.logger().Warn("candidate URL is not on a known code host",
			zap.String("url", cand.CanonicalURL))
		return cand
	}

	metrics, err := a.Client.Metadata(ctx, owner, name)
	if err != nil {
		a.logger().Warn("metadata lookup failed",
			zap.String("url", cand.CanonicalURL),
			zap.Error(err))
		return cand
	}

	if metrics.LOCEstimate == 0 {
		metrics.LOCEstimate = metrics.SizeKB * a.Policy.LOCPerKB
	}
	metrics.ComplexityScore = a.Policy.ComplexityScore(metrics)
	now := a.now()
	metrics.Difficulty = a.Policy.Difficulty(metrics, now)

	cand.Metrics = metrics
	cand.MeetsCriteria = a.Policy.MeetsCriteria(metrics, now)
	cand.Assessed = true
	return cand
}

// AssessAll assesses candidates in order, preserving input order.
func (a *Assessor) AssessAll(ctx context.Context, cands []model.RepositoryCandidate) []model.RepositoryCandidate {
	out := make([]model.RepositoryCandidate, len(cands))
	for i, c := range cands {
		out[i] = a.Assess(ctx, c)
	}
	return out
}
