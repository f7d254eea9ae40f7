package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/nstogner/diagrammer/pkg/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DIAGRAMMER_PROVIDER", "GEMINI_API_KEY", "DIAGRAMMER_MODEL",
		"DIAGRAMMER_GCP_PROJECT", "DIAGRAMMER_GCP_LOCATION", "DIAGRAMMER_ENGINE",
		"DIAGRAMMER_PLANTUML_URL", "DIAGRAMMER_PLANTUML_DOCKER", "DIAGRAMMER_PLANTUML_IMAGE",
		"DIAGRAMMER_MAX_REQUIREMENT", "DIAGRAMMER_OUTPUT_DIR", "DIAGRAMMER_ARCHIVE",
		"DIAGRAMMER_PREVIEW_ADDR", "DIAGRAMMER_LOG_FILE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Provider != ProviderGemini {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.DefaultEngine != domain.EnginePlantUML {
		t.Errorf("DefaultEngine = %q", cfg.DefaultEngine)
	}
	if cfg.MaxRequirementRunes != 4000 {
		t.Errorf("MaxRequirementRunes = %d", cfg.MaxRequirementRunes)
	}
	if cfg.LogFile != "diagrammer.log" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("logging = %q/%v", cfg.LogFile, cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIAGRAMMER_GCP_PROJECT", "my-project")
	t.Setenv("DIAGRAMMER_ENGINE", "Mermaid")
	t.Setenv("DIAGRAMMER_PLANTUML_DOCKER", "true")
	t.Setenv("DIAGRAMMER_MAX_REQUIREMENT", "120")
	t.Setenv("LOG_LEVEL", "trace")

	cfg := Load()
	if cfg.Provider != ProviderVertex {
		t.Errorf("Provider = %q, want vertex when only a project is set", cfg.Provider)
	}
	if cfg.DefaultEngine != domain.EngineMermaid {
		t.Errorf("DefaultEngine = %q", cfg.DefaultEngine)
	}
	if !cfg.PlantUMLDocker || cfg.MaxRequirementRunes != 120 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != LevelTrace {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Provider:            ProviderVertex,
		DefaultEngine:       "graphviz",
		PlantUMLURL:         "http://localhost:8080",
		PlantUMLDocker:      true,
		MaxRequirementRunes: 0,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"DIAGRAMMER_GCP_PROJECT", "DIAGRAMMER_GCP_LOCATION", "graphviz", "mutually exclusive", "positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
