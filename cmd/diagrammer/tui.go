package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1) // Red
)

// Orchestrator notifications, delivered through the events channel.
type (
	sessionMsg  domain.Session
	artifactMsg domain.Artifact
	resultMsg   domain.GenerationResult
	failureMsg  struct{ code, message string }
)

// channelListener forwards notifications to the TUI. Sends block only when
// the buffer is full, which means the TUI has stopped reading.
func channelListener(ch chan<- tea.Msg) orchestrator.Callbacks {
	return orchestrator.Callbacks{
		OnSessionChanged: func(s domain.Session) { ch <- sessionMsg(s) },
		OnArtifactReady:  func(a domain.Artifact) { ch <- artifactMsg(a) },
		OnError:          func(code, message string) { ch <- failureMsg{code, message} },
		OnResult:         func(r domain.GenerationResult) { ch <- resultMsg(r) },
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

type model struct {
	ctx    context.Context
	app    *app
	events <-chan tea.Msg

	width  int
	height int

	session     domain.Session
	artifact    domain.Artifact
	explanation string
	kindHint    domain.Kind
	notice      string
	err         error

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
}

func initialModel(ctx context.Context, a *app, events <-chan tea.Msg) model {
	ta := textarea.New()
	ta.Placeholder = "Describe a diagram, or /help"
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0 // the orchestrator enforces the requirement limit

	ta.SetWidth(80)
	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Use "light" style to avoid terminal queries that leak into input
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(80),
	)

	m := model{
		ctx:      ctx,
		app:      a,
		events:   events,
		session:  a.orch.Session(),
		viewport: vp,
		textarea: ta,
		spinner:  sp,
		renderer: r,
	}
	m.viewport.SetContent(m.renderSession())
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, tiCmd, vpCmd)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - 4 // Header + status + margins
		if m.viewport.Height < 0 {
			m.viewport.Height = 0
		}

		// Recreate renderer with new width
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("light"),
			glamour.WithWordWrap(max(m.width-4, 20)),
		)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textarea.Value()
			m.textarea.Reset()
			m.err = nil
			m.notice = ""
			return m.run(parseCommand(input))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.session.HasPlaceholder() {
			m.refresh()
		}

	case sessionMsg:
		m.session = domain.Session(msg)
		if len(m.session.Messages) == 0 {
			m.explanation = ""
		}
		m.refresh()
		cmds = append(cmds, waitForEvent(m.events))

	case resultMsg:
		m.explanation = msg.Explanation
		m.refresh()
		cmds = append(cmds, waitForEvent(m.events))

	case artifactMsg:
		m.artifact = domain.Artifact(msg)
		cmds = append(cmds, waitForEvent(m.events))

	case failureMsg:
		slog.Debug("TUI received orchestrator error", "code", msg.code)
		m.err = fmt.Errorf("%s: %s", msg.code, msg.message)
		cmds = append(cmds, waitForEvent(m.events))

	case doneMsg:
		m.err = msg.err
		m.notice = msg.info
	}

	return m, tea.Batch(cmds...)
}

// run dispatches one line of input. Orchestrator calls happen inside the
// returned commands so listener sends never block Update.
func (m model) run(c command) (tea.Model, tea.Cmd) {
	a := m.app
	switch c.name {
	case "":
		if c.args == "" {
			return m, nil
		}
		return m, a.submit(m.ctx, c.args, m.kindHint)
	case "quit", "exit":
		return m, tea.Quit
	case "help":
		m.notice = helpText
	case "edit":
		return m, a.edit(m.ctx, c.args, m.kindHint)
	case "clear":
		return m, a.clear(m.ctx)
	case "engine":
		if err := a.orch.SetPreferredEngine(parseEngine(c.args)); err != nil {
			m.err = err
			return m, nil
		}
		m.notice = "Preferred engine: " + orAuto(string(a.orch.PreferredEngine()))
	case "kind":
		m.kindHint = parseKind(c.args)
		m.notice = "Diagram kind: " + orAuto(string(m.kindHint))
	case "export":
		return m, a.export(m.ctx, c.args)
	case "import":
		return m, a.importFile(m.ctx, c.args)
	case "save":
		return m, a.save(m.ctx, c.args)
	case "open":
		return m, a.open(m.ctx, c.args)
	case "delete":
		return m, a.remove(m.ctx, c.args)
	case "sessions":
		return m, a.sessions(m.ctx)
	case "engines":
		return m, a.engines(m.ctx)
	default:
		m.err = fmt.Errorf("unknown command /%s (try /help)", c.name)
	}
	return m, nil
}

func orAuto(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderSession())
	m.viewport.GotoBottom()
}

func (m model) markdown(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return out
}

func (m model) renderSession() string {
	if len(m.session.Messages) == 0 {
		return faintStyle.Render("No diagram yet. Describe one below, or type /help.")
	}

	var sb strings.Builder
	for i, msg := range m.session.Messages {
		switch msg.Role {
		case domain.RoleUser:
			sb.WriteString(userStyle.Render(fmt.Sprintf("You [%d]:", i+1)))
			sb.WriteString("\n  ")
			sb.WriteString(msg.Text)
			sb.WriteString("\n\n")
		case domain.RoleBot:
			label := "Diagram"
			if msg.Engine != "" {
				label += " · " + string(msg.Engine)
			}
			if msg.Kind.Specified() {
				label += " · " + string(msg.Kind)
			}
			sb.WriteString(senderStyle.Render(label + ":"))
			sb.WriteString("\n")
			sb.WriteString(m.markdown("```" + string(msg.Engine) + "\n" + msg.Text + "\n```"))
		case domain.RolePlaceholder:
			sb.WriteString(m.spinner.View())
			sb.WriteString(faintStyle.Render(" generating"))
			sb.WriteString("\n\n")
		}
	}
	if m.explanation != "" {
		sb.WriteString(m.markdown(m.explanation))
	}
	return sb.String()
}

func (m model) statusLine() string {
	parts := []string{
		"engine " + orAuto(string(m.app.orch.PreferredEngine())),
		"kind " + orAuto(string(m.kindHint)),
	}
	switch m.artifact.Kind {
	case domain.ArtifactSVG:
		parts = append(parts, "rendered "+string(m.artifact.Engine))
	case domain.ArtifactFallback:
		reason := m.artifact.Reason
		if reason == "" {
			reason = "not rendered"
		}
		parts = append(parts, "fallback: "+reason)
	}
	if n := m.app.orch.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("%s %d pending", m.spinner.View(), n))
	}
	return faintStyle.Render(strings.Join(parts, " · "))
}

func (m model) View() string {
	var noticeView, errorView string
	if m.notice != "" {
		noticeView = noticeStyle.Render(m.notice)
	}
	if m.err != nil {
		errorView = errorStyle.Width(m.width).Render(fmt.Sprintf("Error: %v", m.err))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("Diagrammer"),
		m.statusLine(),
		m.viewport.View(),
		noticeView,
		errorView,
		m.textarea.View(),
	)
}
