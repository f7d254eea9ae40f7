// Package plantuml is the PlantUML diagram engine. Source is delimited by
// @startuml/@enduml and compiled to SVG by a PlantUML server.
package plantuml

import (
	"context"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/engine"
	"github.com/nstogner/diagrammer/pkg/models"
	"github.com/nstogner/diagrammer/pkg/parser"
	"github.com/nstogner/diagrammer/pkg/render"
)

// Kinds supported by the engine.
const (
	KindClass      domain.Kind = "class"
	KindSequence   domain.Kind = "sequence"
	KindActivity   domain.Kind = "activity"
	KindUseCase    domain.Kind = "usecase"
	KindComponent  domain.Kind = "component"
	KindState      domain.Kind = "state"
	KindDeployment domain.Kind = "deployment"
)

// Grammar describes PlantUML replies.
var Grammar = parser.Grammar{
	Name:          "PlantUML",
	Language:      "plantuml",
	StartSentinel: "@startuml",
	EndSentinel:   "@enduml",
	Markers:       []string{"@startuml"},
	Kinds: []domain.Kind{
		KindClass, KindSequence, KindActivity, KindUseCase,
		KindComponent, KindState, KindDeployment,
	},
	Synonyms: map[string]domain.Kind{
		"use case":       KindUseCase,
		"use cases":      KindUseCase,
		"uml class":      KindClass,
		"class model":    KindClass,
		"interaction":    KindSequence,
		"message":        KindSequence,
		"flow":           KindActivity,
		"flowchart":      KindActivity,
		"workflow":       KindActivity,
		"process":        KindActivity,
		"architecture":   KindComponent,
		"components":     KindComponent,
		"state machine":  KindState,
		"statemachine":   KindState,
		"infrastructure": KindDeployment,
	},
}

// Dialect configures the shared prompt generator for PlantUML.
var Dialect = engine.Dialect{
	Engine:   domain.EnginePlantUML,
	Grammar:  Grammar,
	Guidance: "Always wrap the source in @startuml and @enduml. Do not use !include or remote sprites.",
}

// NewGenerator returns the PlantUML generator backed by p.
func NewGenerator(p models.Provider) *engine.PromptGenerator {
	return engine.NewPromptGenerator(Dialect, p)
}

// Renderer renders PlantUML through a compiler.
type Renderer struct {
	compiler render.Compiler
}

var _ engine.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer. A nil compiler always yields fallback
// artifacts.
func NewRenderer(c render.Compiler) *Renderer {
	return &Renderer{compiler: c}
}

// RenderToArtifact implements engine.Renderer.
func (r *Renderer) RenderToArtifact(ctx context.Context, source string) domain.Artifact {
	return engine.Compile(ctx, domain.EnginePlantUML, source, r.compiler)
}

// LooksLikeValidSource reports whether source contains a start sentinel. It
// is a marker check only.
func (r *Renderer) LooksLikeValidSource(source string) bool {
	return strings.HasPrefix(engine.LeadingKeyword(source), "@start")
}
