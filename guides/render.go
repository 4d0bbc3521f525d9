package guides

import (
	"strconv"
	"strings"

	"github.com/jonwraymond/repodiscovery/model"
)

// DetailLevel selects how much of a guide a tool call returns.
type DetailLevel string

const (
	DetailBrief         DetailLevel = "brief"
	DetailStandard      DetailLevel = "standard"
	DetailComprehensive DetailLevel = "comprehensive"
)

// ParseDetailLevel maps a request argument to a detail level. Unknown or
// empty values fall back to standard.
func ParseDetailLevel(s string) DetailLevel {
	switch DetailLevel(strings.ToLower(strings.TrimSpace(s))) {
	case DetailBrief:
		return DetailBrief
	case DetailComprehensive:
		return DetailComprehensive
	default:
		return DetailStandard
	}
}

// Render formats a guide as markdown at the requested detail level. Brief
// is overview plus steps; standard adds concepts and integration notes;
// comprehensive adds code examples and troubleshooting.
func Render(g model.ImplementationGuide, level DetailLevel) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(g.Feature)
	b.WriteString("\n\n")
	b.WriteString(g.Overview)
	b.WriteString("\n")

	if level != DetailBrief && len(g.CoreConcepts) > 0 {
		b.WriteString("\n## Core Concepts\n")
		writeList(&b, g.CoreConcepts)
	}

	if len(g.Steps) > 0 {
		b.WriteString("\n## Implementation Steps\n")
		for i, step := range g.Steps {
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(". ")
			b.WriteString(step)
			b.WriteString("\n")
		}
	}

	if level != DetailBrief && g.Integration != "" {
		b.WriteString("\n## Integration\n")
		b.WriteString(g.Integration)
		b.WriteString("\n")
	}

	if level == DetailComprehensive {
		if g.CodeExamples != "" {
			b.WriteString("\n## Code Examples\n")
			b.WriteString(g.CodeExamples)
			b.WriteString("\n")
		}
		if len(g.Troubleshooting) > 0 {
			b.WriteString("\n## Troubleshooting\n")
			writeList(&b, g.Troubleshooting)
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

