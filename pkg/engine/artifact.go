package engine

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/render"
)

const emptySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="360" height="80" viewBox="0 0 360 80">` +
	`<rect width="360" height="80" fill="#fafafa" stroke="#d0d0d0" stroke-dasharray="4 4"/>` +
	`<text x="180" y="45" font-family="sans-serif" font-size="14" fill="#888" text-anchor="middle">Describe a diagram to get started</text>` +
	`</svg>`

const (
	fallbackLineHeight = 16
	fallbackCharWidth  = 8
	fallbackPadding    = 16
)

// EmptyArtifact is shown when there is no diagram source. It is the same for
// every engine.
func EmptyArtifact() domain.Artifact {
	return domain.Artifact{Kind: domain.ArtifactEmpty, Content: emptySVG}
}

// FallbackArtifact wraps source, line by line, in a minimal SVG so the user
// keeps the generated text when it cannot be drawn.
func FallbackArtifact(id domain.EngineID, source, reason string) domain.Artifact {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	header := fmt.Sprintf("Preview unavailable (%s): %s", id, reason)

	width := len(header)
	for _, l := range lines {
		width = max(width, len([]rune(l)))
	}
	w := width*fallbackCharWidth + 2*fallbackPadding
	h := (len(lines)+2)*fallbackLineHeight + 2*fallbackPadding

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#fffbe6" stroke="#e0c060"/>`, w, h)
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12" fill="#a06000">`, fallbackPadding, fallbackPadding+fallbackLineHeight/2)
	xml.EscapeText(&b, []byte(header))
	b.WriteString(`</text>`)
	b.WriteString(`<text font-family="monospace" font-size="13" fill="#333" xml:space="preserve">`)
	for i, l := range lines {
		fmt.Fprintf(&b, `<tspan x="%d" y="%d">`, fallbackPadding, fallbackPadding+(i+2)*fallbackLineHeight)
		xml.EscapeText(&b, []byte(l))
		b.WriteString(`</tspan>`)
	}
	b.WriteString(`</text></svg>`)

	return domain.Artifact{
		Kind:    domain.ArtifactFallback,
		Engine:  id,
		Content: b.String(),
		Source:  source,
		Reason:  reason,
	}
}

// Preflight handles the inputs every renderer treats alike. It returns the
// empty artifact for blank source and the zero artifact for source written
// for another engine. ok is false when the renderer should proceed.
func Preflight(id domain.EngineID, source string) (domain.Artifact, bool) {
	if isBlank(source) {
		return EmptyArtifact(), true
	}
	if other, found := DetectEngine(source); found && other != id {
		slog.Debug("Source belongs to another engine", "engine", id, "detected", other)
		return domain.Artifact{}, true
	}
	return domain.Artifact{}, false
}

// Compile renders source through c and downgrades any failure to a fallback
// artifact. A nil compiler always falls back.
func Compile(ctx context.Context, id domain.EngineID, source string, c render.Compiler) domain.Artifact {
	if a, ok := Preflight(id, source); ok {
		return a
	}
	if c == nil {
		return FallbackArtifact(id, source, "no renderer configured")
	}
	svg, err := c.Render(ctx, source)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrRenderFailed, err)
		slog.Warn("Rendering degraded to fallback", "engine", id, "error", err)
		return FallbackArtifact(id, source, err.Error())
	}
	return domain.Artifact{Kind: domain.ArtifactSVG, Engine: id, Content: svg, Source: source}
}
