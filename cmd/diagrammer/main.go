// Diagrammer turns natural-language requirements into PlantUML or Mermaid
// diagrams and refines them over a conversation.
//
// Usage:
//
//	export GEMINI_API_KEY="your-api-key"
//	go run ./cmd/diagrammer [-preview localhost:8765] [-watch requirements.txt]
//
// Type /help inside the program for the list of commands. Every rendered
// diagram is also written to current.svg in the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nstogner/diagrammer/pkg/config"
	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/engine"
	"github.com/nstogner/diagrammer/pkg/engine/mermaid"
	"github.com/nstogner/diagrammer/pkg/engine/plantuml"
	"github.com/nstogner/diagrammer/pkg/models"
	"github.com/nstogner/diagrammer/pkg/models/gemini"
	"github.com/nstogner/diagrammer/pkg/models/vertex"
	"github.com/nstogner/diagrammer/pkg/notify"
	"github.com/nstogner/diagrammer/pkg/orchestrator"
	"github.com/nstogner/diagrammer/pkg/preview"
	"github.com/nstogner/diagrammer/pkg/render"
	"github.com/nstogner/diagrammer/pkg/render/docker"
	"github.com/nstogner/diagrammer/pkg/render/plantumlserver"
	"github.com/nstogner/diagrammer/pkg/store"
	"github.com/nstogner/diagrammer/pkg/store/file"
	"github.com/nstogner/diagrammer/pkg/store/memory"
	"github.com/nstogner/diagrammer/pkg/store/sqlite"
	"github.com/nstogner/diagrammer/pkg/watch"
)

const artifactFile = "current.svg"

func main() {
	cfg := config.Load()

	engineID := flag.String("engine", string(cfg.DefaultEngine), "default diagram engine (plantuml or mermaid)")
	flag.StringVar(&cfg.PreviewAddr, "preview", cfg.PreviewAddr, "serve the live preview on `addr`, e.g. localhost:8765")
	flag.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "sqlite session archive `path`")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for exports and "+artifactFile)
	watchPath := flag.String("watch", "", "submit the content of `file` whenever it is saved")
	loadPath := flag.String("load", "", "start from the session file at `path`")
	flag.Parse()
	cfg.DefaultEngine = domain.EngineID(strings.ToLower(*engineID))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Setup Logging. The TUI owns the terminal, so logs go to a file.
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	defer f.Close()

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel})
	slog.SetDefault(slog.New(handler))
	slog.Info("Logging initialized", "level", cfg.LogLevel)

	if err := run(ctx, cfg, *watchPath, *loadPath); err != nil {
		slog.Error("Diagrammer stopped", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, watchPath, loadPath string) error {
	// 2. Initialize Model
	provider, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	// 3. Initialize Engines
	compiler, closeCompiler, err := newCompiler(cfg)
	if err != nil {
		return err
	}
	defer closeCompiler()

	registry, err := newRegistry(cfg.DefaultEngine, provider, compiler)
	if err != nil {
		return err
	}

	// 4. Session
	st := memory.New()
	if loadPath != "" {
		if err := file.Load(st, loadPath); err != nil {
			return err
		}
		slog.Info("Loaded session file", "path", loadPath)
	}

	var archive store.Archive
	if cfg.ArchivePath != "" {
		db, err := sqlite.New(cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer db.Close()
		archive = db
	}

	// 5. Listeners. The TUI hears everything at once; the SVG file and the
	// preview are debounced.
	events := make(chan tea.Msg, 64)
	sinks := orchestrator.Fanout{artifactWriter(cfg.OutputDir)}

	var o *orchestrator.Orchestrator
	var previewSrv *preview.Server
	if cfg.PreviewAddr != "" {
		previewSrv = preview.New(preview.Options{
			Submit: func(ctx context.Context, text string) error {
				return o.SubmitRequirement(ctx, text, domain.KindUnspecified)
			},
		})
		sinks = append(sinks, previewSrv)
	}
	debounced := notify.NewListener(sinks, notify.DefaultInterval)
	defer debounced.Close()

	o = orchestrator.New(st, registry, orchestrator.Fanout{channelListener(events), debounced}, orchestrator.Options{
		MaxRequirementRunes: cfg.MaxRequirementRunes,
	})

	if previewSrv != nil {
		previewSrv.SessionChanged(o.Session())
		go func() {
			if err := previewSrv.Start(cfg.PreviewAddr); err != nil {
				slog.Error("Preview server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := previewSrv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Preview shutdown failed", "error", err)
			}
		}()
	}

	if watchPath != "" {
		w, err := watch.New(watchPath, 0, func(content string) {
			slog.Info("Requirement file changed", "path", watchPath)
			if err := o.SubmitRequirement(ctx, content, domain.KindUnspecified); err != nil {
				slog.Warn("Watched requirement not applied", "path", watchPath, "error", err)
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	// Initial render for the SVG file and the preview.
	go o.Rerender(ctx)

	a := &app{orch: o, store: st, archive: archive, outputDir: cfg.OutputDir}

	// 6. Start Program
	p := tea.NewProgram(initialModel(ctx, a, events))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	debounced.Flush()
	return nil
}

func newProvider(ctx context.Context, cfg *config.Config) (models.Provider, func(), error) {
	switch cfg.Provider {
	case config.ProviderVertex:
		p, err := vertex.New(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case config.ProviderMock:
		slog.Info("Using the offline mock model")
		return models.Mock{}, func() {}, nil
	default:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY is not set; generation is unavailable")
		}
		p, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
}

// newCompiler picks the PlantUML backend. Without one, PlantUML diagrams are
// shown as fallback artifacts.
func newCompiler(cfg *config.Config) (render.Compiler, func(), error) {
	switch {
	case cfg.PlantUMLDocker:
		m, err := docker.New(cfg.PlantUMLImage)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.Stop(ctx); err != nil {
				slog.Warn("Failed to stop PlantUML container", "error", err)
			}
			m.Close()
		}, nil
	case cfg.PlantUMLURL != "":
		return plantumlserver.New(cfg.PlantUMLURL), func() {}, nil
	default:
		slog.Info("No PlantUML server configured; PlantUML renders as fallback")
		return nil, func() {}, nil
	}
}

func newRegistry(defaultID domain.EngineID, p models.Provider, c render.Compiler) (*engine.Registry, error) {
	r := engine.NewRegistry()
	if err := r.Register(domain.EnginePlantUML, plantuml.NewGenerator(p), plantuml.NewRenderer(c)); err != nil {
		return nil, err
	}
	if err := r.Register(domain.EngineMermaid, mermaid.NewGenerator(p), mermaid.NewRenderer()); err != nil {
		return nil, err
	}
	if err := r.SetDefault(defaultID); err != nil {
		return nil, err
	}
	return r, nil
}

// artifactWriter keeps current.svg in dir up to date.
func artifactWriter(dir string) orchestrator.Callbacks {
	path := filepath.Join(dir, artifactFile)
	return orchestrator.Callbacks{
		OnArtifactReady: func(a domain.Artifact) {
			if a.IsZero() {
				return
			}
			if err := file.Write(path, []byte(a.Content)); err != nil {
				slog.Warn("Failed to write artifact", "path", path, "error", err)
			}
		},
	}
}
