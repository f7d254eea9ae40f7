// Package mermaid is the Mermaid diagram engine.
//
// Mermaid has no static compiler here: it is drawn by mermaid.js in a live
// preview surface, so RenderToArtifact always returns a fallback artifact
// carrying the source for that surface to draw.
package mermaid

import (
	"context"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/engine"
	"github.com/nstogner/diagrammer/pkg/models"
	"github.com/nstogner/diagrammer/pkg/parser"
)

const (
	KindFlowchart domain.Kind = "flowchart"
	KindSequence  domain.Kind = "sequence"
	KindClass     domain.Kind = "class"
	KindState     domain.Kind = "state"
	KindGantt     domain.Kind = "gantt"
	KindPie       domain.Kind = "pie"
	KindER        domain.Kind = "er"
	KindJourney   domain.Kind = "journey"
)

// PreviewReason is the fallback reason for every Mermaid artifact.
const PreviewReason = "rendered in the live preview"

// markers maps each top-level Mermaid keyword to the kind it declares.
var markers = map[string]domain.Kind{
	"flowchart":       KindFlowchart,
	"graph":           KindFlowchart,
	"sequencediagram": KindSequence,
	"classdiagram":    KindClass,
	"statediagram":    KindState,
	"statediagram-v2": KindState,
	"gantt":           KindGantt,
	"pie":             KindPie,
	"erdiagram":       KindER,
	"journey":         KindJourney,
}

// Grammar describes Mermaid replies.
var Grammar = parser.Grammar{
	Name:     "Mermaid",
	Language: "mermaid",
	Markers: []string{
		"flowchart", "graph", "sequenceDiagram", "classDiagram", "stateDiagram",
		"stateDiagram-v2", "gantt", "pie", "erDiagram", "journey",
	},
	Kinds: []domain.Kind{
		KindFlowchart, KindSequence, KindClass, KindState,
		KindGantt, KindPie, KindER, KindJourney,
	},
	Synonyms: map[string]domain.Kind{
		"flow":                KindFlowchart,
		"flow chart":          KindFlowchart,
		"graph":               KindFlowchart,
		"process":             KindFlowchart,
		"activity":            KindFlowchart,
		"interaction":         KindSequence,
		"uml class":           KindClass,
		"state machine":       KindState,
		"timeline":            KindGantt,
		"schedule":            KindGantt,
		"pie chart":           KindPie,
		"entity relationship": KindER,
		"erd":                 KindER,
		"entity":              KindER,
		"user journey":        KindJourney,
	},
}

// Dialect configures the shared prompt generator for Mermaid.
var Dialect = engine.Dialect{
	Engine:   domain.EngineMermaid,
	Grammar:  Grammar,
	Guidance: "Use only syntax supported by current mermaid.js releases. Quote node labels that contain punctuation.",
}

// NewGenerator returns the Mermaid generator backed by p.
func NewGenerator(p models.Provider) *engine.PromptGenerator {
	return engine.NewPromptGenerator(Dialect, p)
}

// Renderer produces source-carrying artifacts for the live preview.
type Renderer struct{}

var _ engine.Renderer = Renderer{}

// NewRenderer creates a Mermaid renderer.
func NewRenderer() Renderer { return Renderer{} }

// RenderToArtifact implements engine.Renderer.
func (Renderer) RenderToArtifact(ctx context.Context, source string) domain.Artifact {
	if a, ok := engine.Preflight(domain.EngineMermaid, source); ok {
		return a
	}
	return engine.FallbackArtifact(domain.EngineMermaid, source, PreviewReason)
}

// LooksLikeValidSource reports whether source starts with a known Mermaid
// keyword. It is a marker check only.
func (Renderer) LooksLikeValidSource(source string) bool {
	_, ok := KindOf(source)
	return ok
}

// KindOf returns the diagram kind declared by the first keyword of source.
func KindOf(source string) (domain.Kind, bool) {
	k, ok := markers[engine.LeadingKeyword(source)]
	return k, ok
}
