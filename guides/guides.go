package guides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/repourl"
)

// ErrNoFeatures is returned when analysis produced no usable features, so
// there is nothing to build guides or tools from.
var ErrNoFeatures = errors.New("guides: analysis found no features")

// Inferrer is the structured language-model boundary.
type Inferrer interface {
	Infer(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error
}

// Analyzer produces a repository analysis from candidate metadata. It
// works entirely from the metrics already on the candidate; it never
// contacts the code host itself.
type Analyzer struct {
	Oracle Inferrer

	// Logger records analysis failures. Nil disables logging.
	Logger *zap.Logger
}

func (a *Analyzer) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

// Analyze asks the oracle what the repository does and which of the
// required features it implements. Oracle failure or an empty feature list
// is an error: the caller routes it to its recovery branch.
func (a *Analyzer) Analyze(ctx context.Context, cand model.RepositoryCandidate, profile model.RequirementProfile) (model.RepositoryAnalysis, error) {
	var analysis model.RepositoryAnalysis
	err := a.Oracle.Infer(ctx, analysisPrompt(cand, profile), analysisSchema(), &analysis)
	if err != nil {
		a.logger().Warn("repository analysis failed",
			zap.String("url", cand.CanonicalURL),
			zap.Error(err))
		return model.RepositoryAnalysis{}, fmt.Errorf("guides: analyze %s: %w", cand.CanonicalURL, err)
	}
	if len(analysis.Features) == 0 {
		return model.RepositoryAnalysis{}, fmt.Errorf("%w: %s", ErrNoFeatures, cand.CanonicalURL)
	}

	analysis.CanonicalURL = cand.CanonicalURL
	if analysis.Name == "" {
		if _, name, ok := repourl.Split(cand.CanonicalURL); ok {
			analysis.Name = name
		}
	}
	return analysis, nil
}

func analysisPrompt(cand model.RepositoryCandidate, profile model.RequirementProfile) string {
	var b strings.Builder
	b.WriteString("Analyze this code repository for a developer who needs: ")
	b.WriteString(profile.RawQuery)
	b.WriteString("\n\nRepository: ")
	b.WriteString(cand.CanonicalURL)
	if d := cand.Metrics.Description; d != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(d)
	}
	if r := cand.Metrics.ReadmeExcerpt; r != "" {
		b.WriteString("\nREADME excerpt:\n")
		b.WriteString(r)
	}
	if len(profile.Features) > 0 {
		b.WriteString("\n\nRequired features: ")
		b.WriteString(strings.Join(profile.Features, ", "))
	}
	b.WriteString("\n\nReturn JSON with the repository name, a short overview, and the features it implements (name, description, matching_files when identifiable).")
	return b.String()
}

func analysisSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":     {Type: "string"},
			"overview": {Type: "string"},
			"features": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":           {Type: "string"},
						"description":    {Type: "string"},
						"matching_files": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					},
					Required: []string{"name", "description"},
				},
			},
		},
		Required: []string{"overview", "features"},
	}
}

// Generator turns analysis features into implementation guides.
type Generator struct {
	Oracle Inferrer

	// Logger records per-feature degradation. Nil disables logging.
	Logger *zap.Logger
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return zap.NewNop()
}

// Generate produces one guide per analysis feature, in feature order. A
// feature whose guide cannot be generated gets a minimal fallback built
// from the analysis itself.
func (g *Generator) Generate(ctx context.Context, analysis model.RepositoryAnalysis) []model.ImplementationGuide {
	out := make([]model.ImplementationGuide, 0, len(analysis.Features))
	for _, feature := range analysis.Features {
		var guide model.ImplementationGuide
		err := g.Oracle.Infer(ctx, guidePrompt(analysis, feature), guideSchema(), &guide)
		if err != nil {
			g.logger().Warn("guide generation degraded to fallback",
				zap.String("feature", feature.Name),
				zap.Error(err))
			guide = fallbackGuide(analysis, feature)
		}
		guide.Feature = feature.Name
		out = append(out, guide)
	}
	return out
}

func guidePrompt(analysis model.RepositoryAnalysis, feature model.FeatureInsight) string {
	var b strings.Builder
	b.WriteString("Write an implementation guide for the feature \"")
	b.WriteString(feature.Name)
	b.WriteString("\" as implemented in ")
	b.WriteString(analysis.CanonicalURL)
	b.WriteString(".\n\nFeature description: ")
	b.WriteString(feature.Description)
	if len(feature.MatchingFiles) > 0 {
		b.WriteString("\nRelevant files: ")
		b.WriteString(strings.Join(feature.MatchingFiles, ", "))
	}
	b.WriteString("\nRepository overview: ")
	b.WriteString(analysis.Overview)
	b.WriteString("\n\nReturn JSON with overview, core_concepts, steps, code_examples, integration, troubleshooting.")
	return b.String()
}

func guideSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"overview":        {Type: "string"},
			"core_concepts":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"steps":           {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"code_examples":   {Type: "string"},
			"integration":     {Type: "string"},
			"troubleshooting": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"overview", "steps"},
	}
}

// fallbackGuide is the degraded guide used when the oracle cannot produce
// a valid one: enough to point the reader at the source.
func fallbackGuide(analysis model.RepositoryAnalysis, feature model.FeatureInsight) model.ImplementationGuide {
	return model.ImplementationGuide{
		Feature:  feature.Name,
		Overview: feature.Description,
		Steps: []string{
			fmt.Sprintf("Review how %s implements %s: %s", analysis.Name, feature.Name, analysis.CanonicalURL),
		},
	}
}
