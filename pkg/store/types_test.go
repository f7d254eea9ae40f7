package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nstogner/diagrammer/pkg/domain"
)

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"array", `[]`},
		{"null", `null`},
		{"missing version", `{"chatHistory":[],"currentPlantUML":""}`},
		{"string version", `{"schemaVersion":"1","chatHistory":[],"currentPlantUML":""}`},
		{"future version", `{"schemaVersion":2,"chatHistory":[],"currentPlantUML":""}`},
		{"negative version", `{"schemaVersion":-3,"chatHistory":[],"currentPlantUML":""}`},
		{"fractional version", `{"schemaVersion":0.5,"chatHistory":[],"currentPlantUML":""}`},
		{"missing history", `{"schemaVersion":1,"currentPlantUML":""}`},
		{"history object", `{"schemaVersion":1,"chatHistory":{},"currentPlantUML":""}`},
		{"missing current", `{"schemaVersion":1,"chatHistory":[]}`},
		{"numeric current", `{"schemaVersion":1,"chatHistory":[],"currentPlantUML":3}`},
		{"numeric type", `{"schemaVersion":1,"chatHistory":[],"currentPlantUML":"","lastDiagramType":7}`},
		{"entry not object", `{"schemaVersion":1,"chatHistory":["hi"],"currentPlantUML":""}`},
		{"bad role", `{"schemaVersion":1,"chatHistory":[{"role":"system","text":"x"}],"currentPlantUML":""}`},
		{"placeholder role", `{"schemaVersion":1,"chatHistory":[{"role":"placeholder","text":""}],"currentPlantUML":""}`},
		{"missing text", `{"schemaVersion":1,"chatHistory":[{"role":"user"}],"currentPlantUML":""}`},
		{"numeric text", `{"schemaVersion":1,"chatHistory":[{"role":"user","text":1}],"currentPlantUML":""}`},
		{"string timestamp", `{"schemaVersion":1,"chatHistory":[{"role":"user","text":"x","timestamp":"now"}],"currentPlantUML":""}`},
		{"numeric id", `{"schemaVersion":1,"chatHistory":[{"role":"user","text":"x","id":5}],"currentPlantUML":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, domain.ErrInvalidSessionFormat) {
				t.Errorf("Decode error = %v, want ErrInvalidSessionFormat", err)
			}
		})
	}
}

func TestDecodeFillsDefaults(t *testing.T) {
	data := `{
		"schemaVersion": 1,
		"chatHistory": [
			{"role": "user", "text": "a login flow"},
			{"role": "bot", "text": "@startuml\n@enduml", "timestamp": 1700000000123, "id": "b1", "kind": "activity", "engine": "plantuml"}
		],
		"currentPlantUML": "@startuml\n@enduml",
		"lastDiagramType": null
	}`
	s, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(s.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(s.Messages))
	}
	user, bot := s.Messages[0], s.Messages[1]
	if user.ID == "" || user.Timestamp.IsZero() {
		t.Errorf("user message defaults not filled: %+v", user)
	}
	if bot.ID != "b1" {
		t.Errorf("bot id = %q", bot.ID)
	}
	if want := time.UnixMilli(1700000000123).UTC(); !bot.Timestamp.Equal(want) {
		t.Errorf("bot timestamp = %v, want %v", bot.Timestamp, want)
	}
	if s.CurrentEngine != domain.EnginePlantUML || s.CurrentKind != "activity" {
		t.Errorf("current = %q/%q, want plantuml/activity", s.CurrentEngine, s.CurrentKind)
	}
}

func TestEncodeDropsPlaceholders(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := domain.Session{
		Messages: []domain.Message{
			{ID: "u1", Role: domain.RoleUser, Text: "hello", Timestamp: ts},
			{ID: "p1", Role: domain.RolePlaceholder, Timestamp: ts},
		},
		CurrentKind: "sequence",
	}
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "p1") || strings.Contains(out, "placeholder") {
		t.Errorf("placeholder exported: %s", out)
	}
	for _, want := range []string{`"schemaVersion": 1`, `"currentPlantUML": ""`, `"lastDiagramType": "sequence"`, `"timestamp": 1714564800000`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestEncodeEmptyHistory(t *testing.T) {
	data, err := Encode(domain.Session{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"chatHistory": []`) {
		t.Errorf("empty history should encode as a list: %s", data)
	}
}
