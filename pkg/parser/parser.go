// Package parser turns free-form model replies into structured generation
// results.
//
// Replies are expected, but not guaranteed, to look like:
//
//	Explanation: <one paragraph>
//	Diagram Type: <token>
//	```<language>
//	<source>
//	```
//
// Every extractor is total: a reply that ignores the format still yields a
// usable result, with the deviation recorded in the result's conformance.
package parser

import (
	"regexp"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
)

var (
	diagramTypeRe = regexp.MustCompile(`(?im)^[ \t*#>_-]*diagram[ \t]+type[ \t*_]*:[ \t*_]*(.*?)[ \t]*$`)
	explanationRe = regexp.MustCompile(`(?i)explanation[ \t*_]*:[ \t*_]*`)
	fenceRe       = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")
)

// ExtractDiagramType finds the "Diagram Type:" line and classifies its token.
// The raw token is kept even when it does not map to a kind of g.
func ExtractDiagramType(text string, g Grammar) domain.DiagramType {
	m := diagramTypeRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return domain.DiagramType{}
	}
	raw := m[1]
	if i := strings.IndexAny(raw, "(["); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.Trim(strings.TrimSpace(raw), "*`_")
	kind, _ := g.Lookup(raw)
	return domain.DiagramType{Kind: kind, Raw: raw}
}

// ExtractDiagramKind returns the canonical kind named on the "Diagram Type:"
// line, or domain.KindUnspecified when the line is missing or the token is
// unknown to g.
func ExtractDiagramKind(text string, g Grammar) domain.Kind {
	return ExtractDiagramType(text, g).Kind
}

// ExtractExplanation returns the text between "Explanation:" and the
// "Diagram Type:" line, the first code block, or the end of text.
func ExtractExplanation(text string, g Grammar) string {
	loc := explanationRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	end := len(rest)
	if m := diagramTypeRe.FindStringIndex(rest); m != nil && m[0] < end {
		end = m[0]
	}
	if i := strings.Index(rest, "```"); i >= 0 && i < end {
		end = i
	}
	if g.UsesSentinels() {
		if i := sentinelIndex(rest, g.StartSentinel); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end])
}

// ExtractSourceCode returns the diagram source in text and whether it was
// found through a delimiter. When no delimiter matches, the trimmed whole
// text is returned so a non-conforming reply is never dropped.
//
// A block tagged with the engine language wins, then an untagged block
// holding a start sentinel, then a sentinel in the bare text, then any block
// whose leading keyword is one of the engine markers. Sentinels count only
// at the start of a line, so prose that mentions them is skipped. Sentinel
// engines return the whole delimited span, sentinels included; an
// unterminated start sentinel runs to the end of its block or text.
func ExtractSourceCode(text string, g Grammar) (string, bool) {
	blocks := fenceRe.FindAllStringSubmatch(text, -1)
	for _, b := range blocks {
		if g.Language != "" && strings.EqualFold(b[1], g.Language) {
			if g.UsesSentinels() {
				if src, ok := sentinelSpan(b[2], g.StartSentinel, g.EndSentinel); ok {
					return src, true
				}
			}
			return strings.TrimSpace(b[2]), true
		}
	}

	if g.UsesSentinels() {
		for _, b := range blocks {
			if b[1] != "" {
				continue
			}
			if src, ok := sentinelSpan(b[2], g.StartSentinel, g.EndSentinel); ok {
				return src, true
			}
		}
		if src, ok := sentinelSpan(text, g.StartSentinel, g.EndSentinel); ok {
			return src, true
		}
	}

	for _, b := range blocks {
		if startsWithMarker(b[2], g.Markers) {
			return strings.TrimSpace(b[2]), true
		}
	}

	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return trimmed, false
	}
	return text, false
}

// Parse composes the extractors into a tagged result.
func Parse(text string, g Grammar) domain.GenerationResult {
	typ := ExtractDiagramType(text, g)
	src, found := ExtractSourceCode(text, g)

	conformance := domain.Conformant
	switch {
	case !found:
		conformance = domain.NonConformant
	case typ.State() != domain.TypeKnown:
		conformance = domain.KindMissing
	}

	return domain.GenerationResult{
		Conformance: conformance,
		Source:      src,
		Type:        typ,
		Explanation: ExtractExplanation(text, g),
	}
}

func sentinelSpan(text, start, end string) (string, bool) {
	i := sentinelIndex(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i:]
	if end != "" {
		if j := indexFold(rest, end); j >= 0 {
			return rest[:j+len(end)], true
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimRight(rest, " \t\n"), "```")), true
}

// indexFold is strings.Index ignoring ASCII case. Byte offsets into s are
// preserved.
func indexFold(s, substr string) int {
	return strings.Index(asciiLower(s), asciiLower(substr))
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
