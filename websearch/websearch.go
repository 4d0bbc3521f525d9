package websearch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/repodiscovery/model"
)

// DefaultMaxResults bounds how many hits one backend contributes per query.
const DefaultMaxResults = 10

// Backend is a raw search provider. Zero results with a nil error is a
// valid response; errors are reserved for transport or protocol failures.
type Backend interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// Adapter wraps a backend for one source kind and absorbs its failures.
type Adapter struct {
	Backend Backend
	Kind    model.SourceKind

	// Source labels results from this adapter, e.g. "duckduckgo".
	Source string

	// MaxResults caps hits per query. Zero uses DefaultMaxResults.
	MaxResults int

	// Logger records absorbed backend errors. Nil disables logging.
	Logger *zap.Logger
}

func (a *Adapter) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

func (a *Adapter) maxResults() int {
	if a.MaxResults > 0 {
		return a.MaxResults
	}
	return DefaultMaxResults
}

// Search builds a query from the profile, runs it against the backend, and
// stamps each hit with this adapter's source labels. Backend errors are
// logged and converted to an empty list.
func (a *Adapter) Search(ctx context.Context, profile model.RequirementProfile) []model.SearchResult {
	query := BuildQuery(profile, a.Kind)
	results, err := a.Backend.Search(ctx, query, a.maxResults())
	if err != nil {
		a.logger().Warn("search backend failed",
			zap.String("source", a.Source),
			zap.String("kind", string(a.Kind)),
			zap.String("query", query),
			zap.Error(err))
		return nil
	}
	for i := range results {
		results[i].SourceKind = a.Kind
		if results[i].Source == "" {
			results[i].Source = a.Source
		}
	}
	return results
}

// BuildQuery turns a requirement profile into a backend query string. Web
// queries steer toward pages that link source code; video queries steer
// toward walkthroughs.
func BuildQuery(profile model.RequirementProfile, kind model.SourceKind) string {
	parts := []string{profile.RawQuery}
	if len(profile.TechStack) > 0 {
		parts = append(parts, strings.Join(profile.TechStack, " "))
	}
	switch kind {
	case model.SourceVideo:
		parts = append(parts, "tutorial")
	default:
		parts = append(parts, "github repository")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
