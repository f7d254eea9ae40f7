package parser

import (
	"slices"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// Grammar describes how an engine's source appears inside a model reply and
// which diagram kinds it understands.
type Grammar struct {
	// Name is the human readable language name used in prompts.
	Name string
	// Language is the fence tag for the engine (e.g. "mermaid").
	Language string

	// StartSentinel and EndSentinel delimit source for engines that use them
	// (e.g. "@startuml" / "@enduml"). The sentinels are part of the source.
	StartSentinel string
	EndSentinel   string

	// Markers are the leading keywords that identify source of this engine
	// inside an untagged fenced block. Only the first word of each counts.
	Markers []string

	// Kinds are the canonical kinds, in the order they are presented to the model.
	Kinds []domain.Kind
	// Synonyms maps normalized alternative spellings to canonical kinds.
	Synonyms map[string]domain.Kind
}

// UsesSentinels reports whether source is delimited by start/end sentinels.
func (g Grammar) UsesSentinels() bool { return g.StartSentinel != "" }

// Supports reports whether k is one of the grammar's canonical kinds.
func (g Grammar) Supports(k domain.Kind) bool {
	return slices.Contains(g.Kinds, k)
}

// Lookup maps a raw type token to a canonical kind.
func (g Grammar) Lookup(token string) (domain.Kind, bool) {
	n := normalizeToken(token)
	if n == "" {
		return domain.KindUnspecified, false
	}
	stem := trimKindSuffix(n)
	for _, candidate := range []string{n, strings.ReplaceAll(n, " ", ""), stem, strings.ReplaceAll(stem, " ", "")} {
		if g.Supports(domain.Kind(candidate)) {
			return domain.Kind(candidate), true
		}
		if k, ok := g.Synonyms[candidate]; ok {
			return k, true
		}
	}
	return domain.KindUnspecified, false
}

var tokenSuffixes = []string{" diagram", " chart", " graph"}

// normalizeToken lowercases a type token, drops markdown decoration and
// collapses inner whitespace. Hyphens and underscores count as spaces.
func normalizeToken(token string) string {
	s := strings.ToLower(token)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_':
			return ' '
		case '*', '`', '"', '\'', '.', ',', ';', ':', '!':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// trimKindSuffix drops a trailing "diagram", "chart" or "graph" word.
func trimKindSuffix(s string) string {
	for _, suffix := range tokenSuffixes {
		if trimmed := strings.TrimSuffix(s, suffix); trimmed != "" {
			s = trimmed
		}
	}
	return s
}
