package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/store/memory"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(filepath.Join(dir, "nested"), "login-flow")
	if filepath.Base(path) != "login-flow.json" {
		t.Fatalf("PathFor = %s", path)
	}

	src := memory.New()
	src.AppendUser("draw a login flow")
	src.AppendBot("@startuml\n:login;\n@enduml", "activity", domain.EnginePlantUML)
	src.SetCurrentDiagram("@startuml\n:login;\n@enduml", "activity", domain.EnginePlantUML)

	if err := Save(src, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := memory.New()
	if err := Load(dst, path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := dst.Snapshot()
	if len(got.Messages) != 2 || got.CurrentSource != src.Snapshot().CurrentSource {
		t.Errorf("loaded session = %+v", got)
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"schemaVersion":"one"}`), 0644); err != nil {
		t.Fatal(err)
	}
	s := memory.New()
	s.AppendUser("keep")

	err := Load(s, path)
	if !errors.Is(err, domain.ErrInvalidSessionFormat) {
		t.Fatalf("Load error = %v, want ErrInvalidSessionFormat", err)
	}
	if len(s.Snapshot().Messages) != 1 {
		t.Error("session mutated by failed load")
	}

	if err := Load(s, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
