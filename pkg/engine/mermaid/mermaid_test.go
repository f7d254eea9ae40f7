package mermaid

import (
	"context"
	"strings"
	"testing"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/parser"
)

func TestKindSynonyms(t *testing.T) {
	tests := map[string]domain.Kind{
		"Flowchart":                   KindFlowchart,
		"Flow Chart":                  KindFlowchart,
		"ER Diagram":                  KindER,
		"Entity Relationship Diagram": KindER,
		"Pie Chart":                   KindPie,
		"User Journey":                KindJourney,
		"Use Case":                    domain.KindUnspecified,
	}
	for token, want := range tests {
		got := parser.ExtractDiagramKind("Diagram Type: "+token, Grammar)
		if got != want {
			t.Errorf("%q: got %q, want %q", token, got, want)
		}
	}
}

func TestExtractSourceFromUntaggedFence(t *testing.T) {
	reply := "Explanation: Orders.\nDiagram Type: ER\n```\nerDiagram\n  CUSTOMER ||--o{ ORDER : places\n```"
	res := parser.Parse(reply, Grammar)
	if res.Conformance != domain.Conformant {
		t.Fatalf("conformance = %q", res.Conformance)
	}
	if !strings.HasPrefix(res.Source, "erDiagram") {
		t.Errorf("source = %q", res.Source)
	}
}

func TestProseInUntaggedFenceIsNotSource(t *testing.T) {
	reply := "Explanation: Build steps.\nDiagram Type: flowchart\n```\npipeline copied into the graph\n```"
	if _, found := parser.ExtractSourceCode(reply, Grammar); found {
		t.Error("prose block accepted as mermaid source")
	}
	reply = "Diagram Type: pie\n```\npie title Pets\n  \"Dogs\" : 3\n```"
	if src, found := parser.ExtractSourceCode(reply, Grammar); !found || !strings.HasPrefix(src, "pie title") {
		t.Errorf("got (%q, %v)", src, found)
	}
}

func TestRenderToArtifact(t *testing.T) {
	ctx := context.Background()
	r := NewRenderer()

	if a := r.RenderToArtifact(ctx, " "); a.Kind != domain.ArtifactEmpty {
		t.Errorf("blank: kind = %q", a.Kind)
	}
	if a := r.RenderToArtifact(ctx, "@startuml\nA -> B\n@enduml"); !a.IsZero() {
		t.Errorf("plantuml source: got %+v", a)
	}
	src := "flowchart TD\n  A[Start] --> B{Ok?}"
	a := r.RenderToArtifact(ctx, src)
	if a.Kind != domain.ArtifactFallback || a.Source != src || a.Reason != PreviewReason {
		t.Errorf("got %+v", a)
	}
	if !strings.Contains(a.Content, "A[Start] --&gt; B{Ok?}") {
		t.Errorf("fallback does not embed source: %s", a.Content)
	}
}

func TestKindOf(t *testing.T) {
	if k, ok := KindOf("%% comment\nstateDiagram-v2\n[*] --> A"); !ok || k != KindState {
		t.Errorf("got (%q, %v)", k, ok)
	}
	if NewRenderer().LooksLikeValidSource("hello world") {
		t.Error("prose should not look valid")
	}
}
