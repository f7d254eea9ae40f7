package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/models"
	"github.com/nstogner/diagrammer/pkg/parser"
)

// Dialect is what a prompt-based generator needs to know about an engine.
type Dialect struct {
	Engine  domain.EngineID
	Grammar parser.Grammar
	// Guidance is appended to the system instruction.
	Guidance string
}

// PromptGenerator implements Generator on top of a models.Provider. Both
// engines share it and differ only in their Dialect.
type PromptGenerator struct {
	dialect  Dialect
	provider models.Provider
}

var _ Generator = (*PromptGenerator)(nil)

// NewPromptGenerator creates a generator for d. A nil provider makes the
// generator permanently unavailable.
func NewPromptGenerator(d Dialect, p models.Provider) *PromptGenerator {
	return &PromptGenerator{dialect: d, provider: p}
}

// Dialect returns the generator's dialect.
func (g *PromptGenerator) Dialect() Dialect { return g.dialect }

// Available reports whether the underlying provider can serve requests.
func (g *PromptGenerator) Available(ctx context.Context) bool {
	return g.provider != nil && g.provider.Available(ctx)
}

// Generate implements Generator.
func (g *PromptGenerator) Generate(ctx context.Context, req Request) (domain.GenerationResult, error) {
	if !g.Available(ctx) {
		return domain.GenerationResult{}, domain.ErrModelUnavailable
	}

	prompt := g.BuildPrompt(req)
	slog.Debug("Generating diagram", "engine", g.dialect.Engine, "messages", len(prompt), "kindHint", req.KindHint)

	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if strings.TrimSpace(reply) == "" {
		return domain.GenerationResult{}, fmt.Errorf("%w: empty reply", domain.ErrGenerationFailed)
	}

	res := parser.Parse(reply, g.dialect.Grammar)
	res.Engine = g.dialect.Engine
	if res.Conformance != domain.Conformant {
		slog.Info("Model reply did not follow the response format", "engine", g.dialect.Engine, "conformance", res.Conformance, "type", res.Type.Raw)
	}
	return res, nil
}

func (g *PromptGenerator) complete(ctx context.Context, prompt []models.Message) (string, error) {
	stream, err := g.provider.Stream(ctx, prompt)
	if err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			return "", fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	reply, err := models.Accumulate(stream)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	return reply, nil
}

// BuildPrompt returns the ordered prompt for req: the system instruction,
// every prior user requirement, then the new requirement.
func (g *PromptGenerator) BuildPrompt(req Request) []models.Message {
	msgs := []models.Message{{Role: models.RoleSystem, Text: g.systemInstruction(req)}}
	for _, h := range req.History {
		msgs = append(msgs, models.Message{Role: models.RoleUser, Text: h})
	}
	return append(msgs, models.Message{Role: models.RoleUser, Text: req.Requirement})
}

func (g *PromptGenerator) systemInstruction(req Request) string {
	gr := g.dialect.Grammar

	kinds := make([]string, len(gr.Kinds))
	for i, k := range gr.Kinds {
		kinds[i] = string(k)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert at writing %s diagrams. Turn the user's requirements into a single %s diagram.\n", gr.Name, gr.Name)
	sb.WriteString("Earlier user messages are earlier requirements for the same diagram; the last message takes precedence.\n\n")
	fmt.Fprintf(&sb, "Supported diagram types: %s.\n", strings.Join(kinds, ", "))

	hint, ok := gr.Lookup(string(req.KindHint))
	switch {
	case ok:
		fmt.Fprintf(&sb, "Use the %s diagram type.\n", hint)
	case req.KindHint.Specified():
		slog.Warn("Ignoring unsupported diagram kind", "engine", g.dialect.Engine, "kind", req.KindHint)
		fallthrough
	default:
		sb.WriteString("Infer the most suitable diagram type from the requirements.\n")
	}

	if cur := strings.TrimSpace(req.CurrentSource); cur != "" {
		fmt.Fprintf(&sb, "\nThe current diagram is:\n```%s\n%s\n```\nRefine it rather than starting over unless the requirements say otherwise.\n", gr.Language, cur)
	}

	sb.WriteString("\nRespond exactly in this format:\n")
	sb.WriteString("Explanation: <one short paragraph describing the diagram>\n")
	sb.WriteString("Diagram Type: <one of the supported types>\n")
	fmt.Fprintf(&sb, "```%s\n", gr.Language)
	if gr.UsesSentinels() {
		fmt.Fprintf(&sb, "%s\n<diagram source>\n%s\n", gr.StartSentinel, gr.EndSentinel)
	} else {
		sb.WriteString("<diagram source>\n")
	}
	sb.WriteString("```\n")
	if g.dialect.Guidance != "" {
		sb.WriteString("\n")
		sb.WriteString(g.dialect.Guidance)
		sb.WriteString("\n")
	}
	return sb.String()
}

const filenameInstruction = "Suggest a short file name for a diagram session. " +
	"Reply with only the name: two to five lowercase words separated by hyphens, no extension, no quotes."

// GenerateSessionFilename implements Generator. Any model failure falls
// back to FallbackFilename.
func (g *PromptGenerator) GenerateSessionFilename(ctx context.Context, userTexts []string, kind domain.Kind) string {
	fallback := FallbackFilename(userTexts, kind)
	if len(userTexts) == 0 || !g.Available(ctx) {
		return fallback
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Diagram engine: %s\n", g.dialect.Grammar.Name)
	if kind.Specified() {
		fmt.Fprintf(&sb, "Diagram type: %s\n", kind)
	}
	sb.WriteString("Requirements:\n")
	for _, t := range userTexts {
		fmt.Fprintf(&sb, "- %s\n", t)
	}

	reply, err := g.complete(ctx, []models.Message{
		{Role: models.RoleSystem, Text: filenameInstruction},
		{Role: models.RoleUser, Text: sb.String()},
	})
	if err != nil {
		slog.Debug("Filename suggestion failed, using fallback", "error", err)
		return fallback
	}

	line := strings.TrimSpace(reply)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSuffix(strings.ToLower(strings.Trim(line, "`\"' ")), ".json")
	if slug := SanitizeSlug(line); slug != "" {
		return slug
	}
	return fallback
}
