package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/render"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestEmptyArtifactIsEngineIndependent(t *testing.T) {
	for _, id := range []domain.EngineID{domain.EnginePlantUML, domain.EngineMermaid} {
		for _, src := range []string{"", "   ", "\n\t\n"} {
			a, ok := Preflight(id, src)
			assert.Assert(t, ok)
			assert.DeepEqual(t, a, EmptyArtifact())
		}
	}
}

func TestPreflightRejectsOtherEngine(t *testing.T) {
	a, ok := Preflight(domain.EnginePlantUML, "flowchart TD\nA-->B")
	assert.Assert(t, ok)
	assert.Assert(t, a.IsZero())

	_, ok = Preflight(domain.EngineMermaid, "flowchart TD\nA-->B")
	assert.Assert(t, !ok)
}

func TestFallbackArtifactEmbedsEscapedSource(t *testing.T) {
	src := "@startuml\nA -> B : <hello & bye>\n@enduml"
	a := FallbackArtifact(domain.EnginePlantUML, src, "server down")

	assert.Equal(t, a.Kind, domain.ArtifactFallback)
	assert.Equal(t, a.Source, src)
	assert.Assert(t, a.Degraded())
	assert.Check(t, strings.HasPrefix(a.Content, "<svg"))
	assert.Check(t, is.Contains(a.Content, "A -&gt; B : &lt;hello &amp; bye&gt;"))
	assert.Check(t, is.Contains(a.Content, "server down"))
	assert.Check(t, is.Equal(strings.Count(a.Content, "<tspan"), 3))
}

func TestCompile(t *testing.T) {
	ctx := context.Background()
	src := "@startuml\nA -> B\n@enduml"

	ok := render.CompilerFunc(func(ctx context.Context, s string) (string, error) {
		return "<svg>ok</svg>", nil
	})
	a := Compile(ctx, domain.EnginePlantUML, src, ok)
	assert.Equal(t, a.Kind, domain.ArtifactSVG)
	assert.Equal(t, a.Content, "<svg>ok</svg>")

	failing := render.CompilerFunc(func(ctx context.Context, s string) (string, error) {
		return "", errors.New("syntax error on line 2")
	})
	a = Compile(ctx, domain.EnginePlantUML, src, failing)
	assert.Equal(t, a.Kind, domain.ArtifactFallback)
	assert.Check(t, is.Contains(a.Reason, "render failed"))
	assert.Check(t, is.Contains(a.Reason, "syntax error on line 2"))

	a = Compile(ctx, domain.EnginePlantUML, src, nil)
	assert.Equal(t, a.Kind, domain.ArtifactFallback)
}

func TestDetectEngine(t *testing.T) {
	tests := []struct {
		src  string
		want domain.EngineID
		ok   bool
	}{
		{"@startuml\nclass A\n@enduml", domain.EnginePlantUML, true},
		{"' comment\n@StartUML", domain.EnginePlantUML, true},
		{"%% title\nsequenceDiagram\nA->>B: x", domain.EngineMermaid, true},
		{"graph TD;\nA-->B", domain.EngineMermaid, true},
		{"pie title Pets\n\"Dogs\": 3", domain.EngineMermaid, true},
		{"A -> B", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectEngine(tt.src)
		assert.Check(t, is.Equal(got, tt.want), "src %q", tt.src)
		assert.Check(t, is.Equal(ok, tt.ok), "src %q", tt.src)
	}
}

func TestSanitizeSlug(t *testing.T) {
	long := strings.Repeat("ab-", 40)
	tests := []struct{ in, want string }{
		{"Login Flow", "login-flow"},
		{"--Hello,,,  World!!--", "hello-world"},
		{"café über", "caf-ber"},
		{"", ""},
		{long, strings.TrimRight(long[:MaxSlugLength], "-")},
	}
	for _, tt := range tests {
		assert.Check(t, is.Equal(SanitizeSlug(tt.in), tt.want), "input %q", tt.in)
	}
	assert.Assert(t, len(SanitizeSlug(strings.Repeat("x", 80))) == MaxSlugLength)
}

func TestFallbackFilename(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		kind  domain.Kind
		want  string
	}{
		{"three words", []string{"Draw a login flow with two factor auth"}, "", "login-flow-two"},
		{"kind suffix", []string{"user signup process"}, "activity", "user-signup-process-activity"},
		{"only first text", []string{"orders", "payments and refunds"}, "", "orders"},
		{"no meaningful words", []string{"a to of it"}, "class", DefaultFilename},
		{"no texts", nil, "class", DefaultFilename},
		{"non ascii only", []string{"日本語 図"}, "", DefaultFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, FallbackFilename(tt.texts, tt.kind), tt.want)
		})
	}
}
