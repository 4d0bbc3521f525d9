package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	foundation "github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/jonwraymond/repodiscovery/guides"
	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/search"
	"github.com/jonwraymond/repodiscovery/toolbuild"
)

// Config configures a Registry.
type Config struct {
	SearchConfig *search.Config
	ServerInfo   ServerInfo
	Logger       *zap.Logger
}

// ServerInfo describes this server in the initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

// installedRecord is a record plus its resolved input schema, ready for
// argument validation on every call.
type installedRecord struct {
	record   toolbuild.Record
	resolved *jsonschema.Resolved
}

// Registry hosts the tool records produced by a discovery run. All calls
// go through one generic dispatcher keyed on the record kind; there is no
// per-tool handler code.
type Registry struct {
	config   Config
	searcher *search.Searcher
	logger   *zap.Logger

	mu       sync.RWMutex
	analysis model.RepositoryAnalysis
	records  map[string]installedRecord
	order    []string
	version  uint64
}

// New creates an empty registry with the given config.
func New(cfg Config) *Registry {
	searchCfg := search.Config{}
	if cfg.SearchConfig != nil {
		searchCfg = *cfg.SearchConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config:   cfg,
		searcher: search.NewSearcher(searchCfg),
		logger:   logger,
		records:  make(map[string]installedRecord),
	}
}

// Install replaces the hosted tool set with the records from a discovery
// run. Every descriptor is validated before anything is swapped in, so a
// bad set never partially replaces a good one.
func (r *Registry) Install(analysis model.RepositoryAnalysis, records []toolbuild.Record) error {
	installed := make(map[string]installedRecord, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		name := rec.Descriptor.Name
		if _, dup := installed[name]; dup {
			return fmt.Errorf("%w: duplicate tool name %s", ErrInvalidRequest, name)
		}
		ft := foundationTool(rec.Descriptor, analysis.Name)
		if err := ft.Validate(); err != nil {
			return fmt.Errorf("registry: tool %s: %w", name, err)
		}
		resolved, err := resolveSchema(rec.Descriptor.InputSchema)
		if err != nil {
			return fmt.Errorf("registry: tool %s: %w", name, err)
		}
		installed[name] = installedRecord{record: rec, resolved: resolved}
		order = append(order, name)
	}

	r.mu.Lock()
	r.analysis = analysis
	r.records = installed
	r.order = order
	r.version++
	r.mu.Unlock()

	r.logger.Info("tool set installed",
		zap.String("repository", analysis.CanonicalURL),
		zap.Int("tools", len(order)))
	return nil
}

// foundationTool converts a descriptor into the shared tool model used for
// validation and interop with other MCP tooling.
func foundationTool(desc model.ToolDescriptor, namespace string) foundation.Tool {
	tags := []string{"repodiscovery"}
	if desc.Feature != "" {
		tags = append(tags, "guide")
	}
	return foundation.Tool{
		Tool: mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		},
		Namespace: namespace,
		Tags:      foundation.NormalizeTags(tags),
	}
}

func resolveSchema(raw map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse input schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve input schema: %w", err)
	}
	return resolved, nil
}

// List returns the installed tool descriptors in install order.
func (r *Registry) List() []model.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.records[name].record.Descriptor)
	}
	return out
}

// Get returns one installed record by tool name.
func (r *Registry) Get(name string) (toolbuild.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	if !ok {
		return toolbuild.Record{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return rec.record, nil
}

// Execute runs a tool by name. Arguments are validated against the tool's
// input schema, then the call is answered by the kind dispatcher.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	rec, ok := r.records[name]
	analysis := r.analysis
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := rec.resolved.Validate(normalizeArgs(args)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}

	switch rec.record.Kind {
	case toolbuild.KindFeatureGuide:
		level := guides.ParseDetailLevel(stringArg(args, "detail_level"))
		return map[string]any{"content": guides.Render(*rec.record.Guide, level)}, nil

	case toolbuild.KindListFeatures:
		features := make([]string, 0, len(analysis.Features))
		for _, f := range analysis.Features {
			features = append(features, f.Name)
		}
		return map[string]any{"features": features}, nil

	case toolbuild.KindOverview:
		return map[string]any{"content": overview(analysis)}, nil

	case toolbuild.KindGetGuide:
		feature := stringArg(args, "feature")
		guide, ok := r.guideForFeature(feature)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
		}
		level := guides.ParseDetailLevel(stringArg(args, "detail_level"))
		return map[string]any{"content": guides.Render(guide, level)}, nil

	case toolbuild.KindSearchGuides:
		return r.searchGuides(stringArg(args, "query"), intArg(args, "limit", 5))

	default:
		return nil, fmt.Errorf("%w: record kind %s", ErrExecutionFailed, rec.record.Kind)
	}
}

func (r *Registry) guideForFeature(feature string) (model.ImplementationGuide, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := strings.ToLower(strings.TrimSpace(feature))
	for _, name := range r.order {
		rec := r.records[name].record
		if rec.Kind == toolbuild.KindFeatureGuide && strings.ToLower(rec.Guide.Feature) == want {
			return *rec.Guide, true
		}
	}
	return model.ImplementationGuide{}, false
}

func (r *Registry) searchGuides(query string, limit int) (any, error) {
	r.mu.RLock()
	docs := make([]search.Doc, 0, len(r.order))
	for _, name := range r.order {
		rec := r.records[name].record
		if rec.Kind != toolbuild.KindFeatureGuide {
			continue
		}
		docs = append(docs, search.Doc{
			ID:          rec.Descriptor.Name,
			Name:        rec.Descriptor.Name,
			Feature:     rec.Guide.Feature,
			Description: rec.Descriptor.Description,
			Content:     guides.Render(*rec.Guide, guides.DetailComprehensive),
		})
	}
	r.mu.RUnlock()

	hits, err := r.searcher.Search(docs, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	results := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]any{"tool": h.ID, "score": h.Score})
	}
	return map[string]any{"results": results}, nil
}

func overview(analysis model.RepositoryAnalysis) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(analysis.Name)
	b.WriteString("\n\n")
	b.WriteString(analysis.Overview)
	b.WriteString("\n\nRepository: ")
	b.WriteString(analysis.CanonicalURL)
	if len(analysis.Features) > 0 {
		b.WriteString("\n\nDiscovered features:\n")
		for _, f := range analysis.Features {
			b.WriteString("- ")
			b.WriteString(f.Name)
			b.WriteString(": ")
			b.WriteString(f.Description)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// normalizeArgs round-trips args through JSON so numeric types match what
// the schema validator expects from decoded JSON.
func normalizeArgs(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return args
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Stats summarizes the installed tool set.
type Stats struct {
	TotalTools   int
	FeatureTools int
	MetaTools    int
	Version      uint64
}

// Snapshot returns current registry statistics.
func (r *Registry) Snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{TotalTools: len(r.order), Version: r.version}
	for _, name := range r.order {
		if r.records[name].record.Kind == toolbuild.KindFeatureGuide {
			s.FeatureTools++
		} else {
			s.MetaTools++
		}
	}
	return s
}

// HealthCheck returns nil once a tool set is installed.
func (r *Registry) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return ErrNotInstalled
	}
	return nil
}
