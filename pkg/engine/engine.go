// Package engine defines diagram engines and the registry that selects
// between them.
//
// An engine is a Generator (requirement text to diagram source, through a
// language model) paired with a Renderer (diagram source to a displayable
// artifact) for one diagram description language.
package engine

import (
	"context"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// Request is the input to a generation.
type Request struct {
	// Requirement is the new user requirement.
	Requirement string
	// History holds the prior user requirements in order.
	History []string
	// KindHint asks for a specific diagram kind. domain.KindUnspecified lets
	// the model infer one.
	KindHint domain.Kind
	// CurrentSource is the diagram being refined, if any.
	CurrentSource string
}

// Generator produces diagram source from natural language.
type Generator interface {
	// Generate builds a prompt from the request, calls the model and parses
	// the reply. It fails with domain.ErrModelUnavailable when no model can
	// be obtained and domain.ErrGenerationFailed on transport errors.
	// Failures are never retried here.
	Generate(ctx context.Context, req Request) (domain.GenerationResult, error)

	// GenerateSessionFilename suggests a filesystem safe slug for a session.
	// It never fails and never returns an empty string.
	GenerateSessionFilename(ctx context.Context, userTexts []string, kind domain.Kind) string

	// Available reports whether the generator can currently reach a model.
	Available(ctx context.Context) bool
}

// Renderer converts diagram source into an artifact.
type Renderer interface {
	// RenderToArtifact never fails. Blank source yields the empty artifact,
	// source of another engine yields the zero artifact, and anything that
	// cannot be rendered yields a fallback artifact embedding the source.
	RenderToArtifact(ctx context.Context, source string) domain.Artifact

	// LooksLikeValidSource is a keyword heuristic, not a grammar check. False
	// positives and negatives are possible.
	LooksLikeValidSource(source string) bool
}

// Registration is one engine as held by the Registry.
type Registration struct {
	ID        domain.EngineID
	Generator Generator
	Renderer  Renderer
}

// Status reports an engine's availability at probe time.
type Status struct {
	ID        domain.EngineID `json:"id"`
	Available bool            `json:"available"`
	Default   bool            `json:"default"`
}
