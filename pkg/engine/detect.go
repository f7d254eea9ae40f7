package engine

import (
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/parser"
)

// leadingKeywords maps the first keyword of a diagram source, lower-cased,
// to the engine whose language starts with it.
var leadingKeywords = map[string]domain.EngineID{
	"@startuml":       domain.EnginePlantUML,
	"@startmindmap":   domain.EnginePlantUML,
	"@startgantt":     domain.EnginePlantUML,
	"@startwbs":       domain.EnginePlantUML,
	"@startsalt":      domain.EnginePlantUML,
	"@startjson":      domain.EnginePlantUML,
	"@startyaml":      domain.EnginePlantUML,
	"graph":           domain.EngineMermaid,
	"flowchart":       domain.EngineMermaid,
	"sequencediagram": domain.EngineMermaid,
	"classdiagram":    domain.EngineMermaid,
	"statediagram":    domain.EngineMermaid,
	"statediagram-v2": domain.EngineMermaid,
	"erdiagram":       domain.EngineMermaid,
	"gantt":           domain.EngineMermaid,
	"pie":             domain.EngineMermaid,
	"journey":         domain.EngineMermaid,
	"mindmap":         domain.EngineMermaid,
	"timeline":        domain.EngineMermaid,
	"gitgraph":        domain.EngineMermaid,
}

// DetectEngine reports which engine's language source is written in, judged
// by its first meaningful keyword.
func DetectEngine(source string) (domain.EngineID, bool) {
	kw := LeadingKeyword(source)
	if kw == "" {
		return "", false
	}
	id, ok := leadingKeywords[kw]
	return id, ok
}

// LeadingKeyword returns the lower-cased first token of the first line that
// is neither blank nor a comment.
func LeadingKeyword(source string) string {
	return parser.LeadingKeyword(source)
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
