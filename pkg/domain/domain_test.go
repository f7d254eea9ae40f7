package domain

import (
	"fmt"
	"testing"
)

func TestDiagramTypeState(t *testing.T) {
	tests := []struct {
		name string
		typ  DiagramType
		want TypeState
	}{
		{"empty", DiagramType{}, TypeUnspecified},
		{"unmapped", DiagramType{Raw: "mindmap"}, TypeUnmapped},
		{"known", DiagramType{Kind: "sequence", Raw: "Sequence"}, TypeKnown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("engine plantuml: %w", ErrGenerationFailed)
	if got := ErrorCode(wrapped); got != "GenerationFailed" {
		t.Errorf("ErrorCode = %q, want GenerationFailed", got)
	}
	if got := ErrorCode(fmt.Errorf("boom")); got != "Internal" {
		t.Errorf("ErrorCode = %q, want Internal", got)
	}
}

func TestSessionUserTexts(t *testing.T) {
	s := Session{Messages: []Message{
		{Role: RoleUser, Text: "a"},
		{Role: RoleBot, Text: "src"},
		{Role: RolePlaceholder},
		{Role: RoleUser, Text: "b"},
	}}
	got := s.UserTexts()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("UserTexts = %v", got)
	}
	if !s.HasPlaceholder() {
		t.Error("expected placeholder")
	}
}
