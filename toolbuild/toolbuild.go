package toolbuild

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/jonwraymond/repodiscovery/model"
)

// RecordKind tells the dispatcher how to answer a call on a record.
type RecordKind string

const (
	// KindFeatureGuide serves one feature's implementation guide.
	KindFeatureGuide RecordKind = "feature_guide"

	// KindListFeatures lists every discovered feature.
	KindListFeatures RecordKind = "list_features"

	// KindOverview returns the repository overview.
	KindOverview RecordKind = "repository_overview"

	// KindGetGuide looks up a guide by feature name.
	KindGetGuide RecordKind = "get_guide"

	// KindSearchGuides runs a full-text search over guide content.
	KindSearchGuides RecordKind = "search_guides"
)

// Record is one callable tool: its externally visible descriptor plus the
// data needed to serve it.
type Record struct {
	Descriptor model.ToolDescriptor
	Kind       RecordKind

	// Guide is set for KindFeatureGuide records.
	Guide *model.ImplementationGuide
}

// Meta-tool names. Fixed, not derived from features.
const (
	NameListFeatures = "list_features"
	NameOverview     = "get_repository_overview"
	NameGetGuide     = "get_implementation_guide"
	NameSearchGuides = "search_guides"
)

// Build produces the full record set for a completed discovery: one
// feature-guide tool per guide plus the fixed meta-tools. Record order is
// deterministic: guides in input order, then meta-tools.
func Build(analysis model.RepositoryAnalysis, guideList []model.ImplementationGuide) ([]Record, error) {
	records := make([]Record, 0, len(guideList)+4)
	used := make(map[string]bool, len(guideList)+4)

	// Reserve the meta-tool names so a feature slug can never shadow one.
	for _, name := range []string{NameListFeatures, NameOverview, NameGetGuide, NameSearchGuides} {
		used[name] = true
	}

	for i := range guideList {
		guide := guideList[i]
		name := uniqueName("get_"+Slugify(guide.Feature), used)
		rec := Record{
			Kind:  KindFeatureGuide,
			Guide: &guideList[i],
			Descriptor: model.ToolDescriptor{
				Name:         name,
				Description:  fmt.Sprintf("Implementation guide for %s in %s", guide.Feature, analysis.Name),
				InputSchema:  detailLevelSchema(),
				OutputSchema: contentSchema(),
				Feature:      guide.Feature,
			},
		}
		records = append(records, rec)
	}

	records = append(records,
		Record{
			Kind: KindListFeatures,
			Descriptor: model.ToolDescriptor{
				Name:         NameListFeatures,
				Description:  fmt.Sprintf("List the features discovered in %s", analysis.Name),
				InputSchema:  emptyObjectSchema(),
				OutputSchema: featureListSchema(),
			},
		},
		Record{
			Kind: KindOverview,
			Descriptor: model.ToolDescriptor{
				Name:         NameOverview,
				Description:  fmt.Sprintf("Overview of %s and why it was selected", analysis.Name),
				InputSchema:  emptyObjectSchema(),
				OutputSchema: contentSchema(),
			},
		},
		Record{
			Kind: KindGetGuide,
			Descriptor: model.ToolDescriptor{
				Name:         NameGetGuide,
				Description:  "Fetch the implementation guide for a named feature",
				InputSchema:  getGuideSchema(),
				OutputSchema: contentSchema(),
			},
		},
		Record{
			Kind: KindSearchGuides,
			Descriptor: model.ToolDescriptor{
				Name:         NameSearchGuides,
				Description:  "Full-text search across all implementation guides",
				InputSchema:  searchSchema(),
				OutputSchema: searchResultsSchema(),
			},
		},
	)

	for _, rec := range records {
		if err := ValidateSchema(rec.Descriptor.InputSchema); err != nil {
			return nil, fmt.Errorf("toolbuild: tool %s: %w", rec.Descriptor.Name, err)
		}
	}
	return records, nil
}

// Slugify lowers a feature name into a tool-name-safe slug: lower case,
// runs of non-alphanumerics collapsed to single underscores.
func Slugify(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "feature"
	}
	return slug
}

// uniqueName resolves collisions with a numeric suffix: name, name_2,
// name_3, and so on.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// ValidateSchema checks that a descriptor schema is valid JSON Schema.
func ValidateSchema(raw map[string]any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if _, err := schema.Resolve(nil); err != nil {
		return fmt.Errorf("unresolvable schema: %w", err)
	}
	return nil
}

func detailLevelSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"detail_level": map[string]any{
				"type":        "string",
				"enum":        []any{"brief", "standard", "comprehensive"},
				"description": "How much of the guide to return",
			},
		},
	}
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func contentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
		},
	}
}

func featureListSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"features": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

func getGuideSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feature": map[string]any{
				"type":        "string",
				"description": "Feature name as returned by list_features",
			},
			"detail_level": map[string]any{
				"type": "string",
				"enum": []any{"brief", "standard", "comprehensive"},
			},
		},
		"required": []any{"feature"},
	}
}

func searchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []any{"query"},
	}
}

func searchResultsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"tool":  map[string]any{"type": "string"},
						"score": map[string]any{"type": "number"},
					},
				},
			},
		},
	}
}
