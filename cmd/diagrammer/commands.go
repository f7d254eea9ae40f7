package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/orchestrator"
	"github.com/nstogner/diagrammer/pkg/store"
	"github.com/nstogner/diagrammer/pkg/store/file"
)

const helpText = `Commands:
  <text>            describe or refine the diagram
  /edit N <text>    replace requirement N and regenerate from there
  /clear            start over
  /engine ID|auto   prefer an engine
  /kind K|auto      ask for a diagram kind
  /export [path]    write the session file
  /import path      load a session file
  /save [name]      store the session in the archive
  /open name        load a session from the archive
  /sessions         list archived sessions
  /delete name      remove a session from the archive
  /engines          show engine availability
  /quit             exit`

// command is one line of user input.
type command struct {
	name string // empty for a plain requirement
	args string
}

func parseCommand(input string) command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{args: input}
	}
	name, args, _ := strings.Cut(input[1:], " ")
	return command{name: strings.ToLower(name), args: strings.TrimSpace(args)}
}

// parseEdit splits "N text" where N is the 1-based number shown next to the
// message. It returns the 0-based history index.
func parseEdit(args string) (int, string, error) {
	num, text, _ := strings.Cut(strings.TrimSpace(args), " ")
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("%w: usage: /edit N <text>", domain.ErrInvalidInput)
	}
	return n - 1, strings.TrimSpace(text), nil
}

// parseKind maps "auto" and "" to an unspecified kind.
func parseKind(args string) domain.Kind {
	k := strings.ToLower(strings.TrimSpace(args))
	if k == "" || k == "auto" {
		return domain.KindUnspecified
	}
	return domain.Kind(k)
}

func parseEngine(args string) domain.EngineID {
	id := strings.ToLower(strings.TrimSpace(args))
	if id == "auto" {
		return ""
	}
	return domain.EngineID(id)
}

// app holds what commands act on.
type app struct {
	orch      *orchestrator.Orchestrator
	store     store.Store
	archive   store.Archive // nil when no archive is configured
	outputDir string
}

// doneMsg reports the outcome of a command.
type doneMsg struct {
	info string
	err  error
}

func done(info string, err error) tea.Cmd {
	return func() tea.Msg { return doneMsg{info: info, err: err} }
}

// rejected keeps only errors the orchestrator does not report itself.
func rejected(err error) error {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidIndex) {
		return err
	}
	return nil
}

func (a *app) submit(ctx context.Context, text string, kind domain.Kind) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: rejected(a.orch.SubmitRequirement(ctx, text, kind))}
	}
}

func (a *app) edit(ctx context.Context, args string, kind domain.Kind) tea.Cmd {
	index, text, err := parseEdit(args)
	if err != nil {
		return done("", err)
	}
	return func() tea.Msg {
		return doneMsg{err: rejected(a.orch.EditAndResend(ctx, index, text, kind))}
	}
}

func (a *app) clear(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		a.orch.Clear(ctx)
		return doneMsg{info: "Session cleared."}
	}
}

func (a *app) export(ctx context.Context, path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			path = file.PathFor(a.outputDir, a.orch.SuggestFilename(ctx))
		}
		if err := file.Save(a.store, path); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{info: "Exported to " + path}
	}
}

func (a *app) importFile(ctx context.Context, path string) tea.Cmd {
	if path == "" {
		return done("", fmt.Errorf("%w: usage: /import path", domain.ErrInvalidInput))
	}
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return doneMsg{err: fmt.Errorf("read session file: %w", err)}
		}
		if err := a.orch.Import(ctx, data); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{info: "Imported " + path}
	}
}

var errNoArchive = errors.New("no archive configured (set DIAGRAMMER_ARCHIVE)")

func (a *app) save(ctx context.Context, name string) tea.Cmd {
	if a.archive == nil {
		return done("", errNoArchive)
	}
	return func() tea.Msg {
		if name == "" {
			name = a.orch.SuggestFilename(ctx)
		}
		data, err := a.orch.Export()
		if err != nil {
			return doneMsg{err: err}
		}
		if err := a.archive.Save(ctx, name, data); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{info: "Saved as " + name}
	}
}

func (a *app) open(ctx context.Context, name string) tea.Cmd {
	if a.archive == nil {
		return done("", errNoArchive)
	}
	if name == "" {
		return done("", fmt.Errorf("%w: usage: /open name", domain.ErrInvalidInput))
	}
	return func() tea.Msg {
		data, err := a.archive.Load(ctx, name)
		if err != nil {
			return doneMsg{err: err}
		}
		if err := a.orch.Import(ctx, data); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{info: "Opened " + name}
	}
}

func (a *app) remove(ctx context.Context, name string) tea.Cmd {
	if a.archive == nil {
		return done("", errNoArchive)
	}
	if name == "" {
		return done("", fmt.Errorf("%w: usage: /delete name", domain.ErrInvalidInput))
	}
	return func() tea.Msg {
		if err := a.archive.Delete(ctx, name); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{info: "Deleted " + name}
	}
}

func (a *app) sessions(ctx context.Context) tea.Cmd {
	if a.archive == nil {
		return done("", errNoArchive)
	}
	return func() tea.Msg {
		entries, err := a.archive.List(ctx)
		if err != nil {
			return doneMsg{err: err}
		}
		if len(entries) == 0 {
			return doneMsg{info: "The archive is empty."}
		}
		var sb strings.Builder
		for _, e := range entries {
			kind := string(e.Kind)
			if kind == "" {
				kind = "-"
			}
			fmt.Fprintf(&sb, "%-32s %3d messages  %-10s %s\n", e.Name, e.Messages, kind, e.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return doneMsg{info: strings.TrimRight(sb.String(), "\n")}
	}
}

func (a *app) engines(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		preferred := a.orch.PreferredEngine()
		var lines []string
		for _, s := range a.orch.Engines(ctx) {
			line := string(s.ID)
			if s.Available {
				line += "  available"
			} else {
				line += "  unavailable"
			}
			if s.Default {
				line += "  (default)"
			}
			if s.ID == preferred {
				line += "  (preferred)"
			}
			lines = append(lines, line)
		}
		return doneMsg{info: strings.Join(lines, "\n")}
	}
}
