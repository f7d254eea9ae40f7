// Package config reads settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nstogner/diagrammer/pkg/domain"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderVertex Provider = "vertex"
	ProviderMock   Provider = "mock"
)

// LevelTrace enables HTTP traffic dumps in the Gemini provider.
const LevelTrace = slog.Level(-8)

type Config struct {
	Provider Provider

	GeminiAPIKey string
	ModelName    string // empty selects the provider default
	GCPProjectID string
	GCPLocation  string

	DefaultEngine domain.EngineID

	PlantUMLURL    string
	PlantUMLDocker bool
	PlantUMLImage  string

	MaxRequirementRunes int

	OutputDir   string
	ArchivePath string // empty disables the archive
	PreviewAddr string // empty disables the preview server

	LogFile  string
	LogLevel slog.Level
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", v)
		return def
	}
	return n
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN and ERROR to a level. Anything
// else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads all env vars and builds the config.
func Load() *Config {
	apiKey := getEnv("GEMINI_API_KEY", "")
	project := getEnv("DIAGRAMMER_GCP_PROJECT", "")

	// Without an explicit choice, use whichever backend has credentials.
	defProvider := ProviderGemini
	if apiKey == "" && project != "" {
		defProvider = ProviderVertex
	}

	return &Config{
		Provider: Provider(strings.ToLower(getEnv("DIAGRAMMER_PROVIDER", string(defProvider)))),

		GeminiAPIKey: apiKey,
		ModelName:    getEnv("DIAGRAMMER_MODEL", ""),
		GCPProjectID: project,
		GCPLocation:  getEnv("DIAGRAMMER_GCP_LOCATION", "us-central1"),

		DefaultEngine: domain.EngineID(strings.ToLower(getEnv("DIAGRAMMER_ENGINE", string(domain.EnginePlantUML)))),

		PlantUMLURL:    getEnv("DIAGRAMMER_PLANTUML_URL", ""),
		PlantUMLDocker: getBoolEnv("DIAGRAMMER_PLANTUML_DOCKER", false),
		PlantUMLImage:  getEnv("DIAGRAMMER_PLANTUML_IMAGE", ""),

		MaxRequirementRunes: getIntEnv("DIAGRAMMER_MAX_REQUIREMENT", 4000),

		OutputDir:   getEnv("DIAGRAMMER_OUTPUT_DIR", "."),
		ArchivePath: getEnv("DIAGRAMMER_ARCHIVE", ""),
		PreviewAddr: getEnv("DIAGRAMMER_PREVIEW_ADDR", ""),

		LogFile:  getEnv("DIAGRAMMER_LOG_FILE", "diagrammer.log"),
		LogLevel: ParseLevel(os.Getenv("LOG_LEVEL")),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderGemini, ProviderMock:
	case ProviderVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, fmt.Errorf("DIAGRAMMER_GCP_PROJECT must be set for the vertex provider"))
		}
		if c.GCPLocation == "" {
			errs = append(errs, fmt.Errorf("DIAGRAMMER_GCP_LOCATION must be set for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	switch c.DefaultEngine {
	case domain.EnginePlantUML, domain.EngineMermaid:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.DefaultEngine))
	}

	if c.PlantUMLDocker && c.PlantUMLURL != "" {
		errs = append(errs, fmt.Errorf("DIAGRAMMER_PLANTUML_URL and DIAGRAMMER_PLANTUML_DOCKER are mutually exclusive"))
	}
	if c.MaxRequirementRunes <= 0 {
		errs = append(errs, fmt.Errorf("DIAGRAMMER_MAX_REQUIREMENT must be positive"))
	}
	return errors.Join(errs...)
}
