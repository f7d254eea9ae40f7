// Package orchestrator sequences session mutations with generation and
// rendering. It is the only writer of the session store.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/engine"
	"github.com/nstogner/diagrammer/pkg/store"
)

// DefaultMaxRequirementRunes bounds the length of a requirement.
const DefaultMaxRequirementRunes = 4000

// State is the lifecycle of a single request.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Options configure an Orchestrator.
type Options struct {
	// MaxRequirementRunes defaults to DefaultMaxRequirementRunes.
	MaxRequirementRunes int
	// PreferredEngine is tried first on every request.
	PreferredEngine domain.EngineID
	Logger          *slog.Logger
}

// Orchestrator is the facade used by presentation layers.
type Orchestrator struct {
	store    store.Store
	registry *engine.Registry
	listener Listener
	log      *slog.Logger
	maxRunes int

	mu        sync.RWMutex
	preferred domain.EngineID
	state     State

	pending atomic.Int64
}

// New creates an Orchestrator. A nil listener discards notifications.
func New(s store.Store, r *engine.Registry, l Listener, opts Options) *Orchestrator {
	if l == nil {
		l = Callbacks{}
	}
	if opts.MaxRequirementRunes <= 0 {
		opts.MaxRequirementRunes = DefaultMaxRequirementRunes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		store:     s,
		registry:  r,
		listener:  l,
		log:       opts.Logger,
		maxRunes:  opts.MaxRequirementRunes,
		preferred: opts.PreferredEngine,
	}
}

// SubmitRequirement appends text as a new user message and generates a
// diagram for it. Invalid input is rejected with domain.ErrInvalidInput
// before the session is touched. On a generation failure the user message
// is kept and the error is both returned and reported to the listener.
func (o *Orchestrator) SubmitRequirement(ctx context.Context, text string, kindHint domain.Kind) error {
	text, err := o.validate(text)
	if err != nil {
		return err
	}

	before := o.store.Snapshot()
	o.store.AppendUser(text)
	return o.generate(ctx, engine.Request{
		Requirement:   text,
		History:       before.UserTexts(),
		KindHint:      kindHint,
		CurrentSource: before.CurrentSource,
	})
}

// EditAndResend replaces the user message at index, discards every later
// message and generates again from the edited text.
func (o *Orchestrator) EditAndResend(ctx context.Context, index int, text string, kindHint domain.Kind) error {
	text, err := o.validate(text)
	if err != nil {
		return err
	}
	if err := o.store.EditUserMessageAndTruncate(index, text); err != nil {
		return err
	}

	// A clear or import may have replaced the session since the edit.
	snap := o.store.Snapshot()
	if index >= len(snap.Messages) || snap.Messages[index].Role != domain.RoleUser || snap.Messages[index].Text != text {
		o.log.Info("Discarding superseded edit", "index", index)
		return nil
	}
	prior := domain.Session{Messages: snap.Messages[:index]}
	return o.generate(ctx, engine.Request{
		Requirement:   text,
		History:       prior.UserTexts(),
		KindHint:      kindHint,
		CurrentSource: snap.CurrentSource,
	})
}

func (o *Orchestrator) validate(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: requirement is empty", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > o.maxRunes {
		return "", fmt.Errorf("%w: requirement is %d characters, limit is %d", domain.ErrInvalidInput, n, o.maxRunes)
	}
	return text, nil
}

// generate runs one request through the placeholder lifecycle. The
// requirement must already be the last user message in the store.
func (o *Orchestrator) generate(ctx context.Context, req engine.Request) error {
	placeholder := o.store.AppendPlaceholder()
	log := o.log.With("request", placeholder)

	o.pending.Add(1)
	o.setState(log, StateAwaitingModel)
	o.listener.SessionChanged(o.store.Snapshot())

	res, reg, err := o.registry.GenerateWithFallback(ctx, req, o.PreferredEngine())

	removed := o.store.RemovePlaceholder(placeholder)
	o.pending.Add(-1)

	if !removed {
		// The session was cleared, edited or replaced while the model ran.
		// Failures of such requests are dropped as well.
		log.Info("Discarding superseded generation", "engine", reg.ID, "error", err)
		o.setState(log, StateIdle)
		return nil
	}
	if err != nil {
		log.Warn("Generation failed", "engine", reg.ID, "error", err)
		o.setState(log, StateFailed)
		o.listener.SessionChanged(o.store.Snapshot())
		o.listener.Error(domain.ErrorCode(err), err.Error())
		return err
	}

	o.store.AppendBot(res.Source, res.Kind(), reg.ID)
	o.store.SetCurrentDiagram(res.Source, res.Kind(), reg.ID)
	o.setState(log, StateSuccess)
	log.Info("Generated diagram", "engine", reg.ID, "kind", res.Kind(), "conformance", res.Conformance)

	o.listener.SessionChanged(o.store.Snapshot())
	if rl, ok := o.listener.(ResultListener); ok {
		rl.GenerationSettled(res)
	}
	o.listener.ArtifactReady(o.registry.Render(ctx, res.Source, reg.ID))
	return nil
}

func (o *Orchestrator) setState(log *slog.Logger, s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	log.Debug("Request state", "from", prev, "to", s)
}

// State returns StateAwaitingModel while any request is in flight and the
// outcome of the most recent request otherwise.
func (o *Orchestrator) State() State {
	if o.Pending() > 0 {
		return StateAwaitingModel
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Pending returns the number of requests waiting for the model.
func (o *Orchestrator) Pending() int {
	return int(o.pending.Load())
}

// Clear resets the session and renders the empty template.
func (o *Orchestrator) Clear(ctx context.Context) {
	o.store.Clear()
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	o.log.Info("Session cleared")

	o.listener.SessionChanged(o.store.Snapshot())
	o.listener.ArtifactReady(o.registry.Render(ctx, "", ""))
}

// Export serializes the session.
func (o *Orchestrator) Export() ([]byte, error) {
	return o.store.Export()
}

// Import replaces the session with data and renders the imported diagram
// with the engine its source belongs to. Invalid data fails with
// domain.ErrInvalidSessionFormat and leaves the session unchanged.
func (o *Orchestrator) Import(ctx context.Context, data []byte) error {
	if err := o.store.Import(data); err != nil {
		return err
	}

	snap := o.store.Snapshot()
	if reg, ok := o.registry.Detect(snap.CurrentSource); ok && reg.ID != snap.CurrentEngine {
		o.store.SetCurrentDiagram(snap.CurrentSource, snap.CurrentKind, reg.ID)
		snap.CurrentEngine = reg.ID
	}
	o.log.Info("Session imported", "messages", len(snap.Messages), "engine", snap.CurrentEngine)

	o.listener.SessionChanged(snap)
	o.listener.ArtifactReady(o.registry.Render(ctx, snap.CurrentSource, snap.CurrentEngine))
	return nil
}

// Rerender renders the current diagram again and returns the artifact.
func (o *Orchestrator) Rerender(ctx context.Context) domain.Artifact {
	snap := o.store.Snapshot()
	a := o.registry.Render(ctx, snap.CurrentSource, snap.CurrentEngine)
	o.listener.ArtifactReady(a)
	return a
}

// SetPreferredEngine selects the engine tried first. An empty id restores
// the registry default.
func (o *Orchestrator) SetPreferredEngine(id domain.EngineID) error {
	if id != "" {
		if _, ok := o.registry.Lookup(id); !ok {
			return fmt.Errorf("%w: unknown engine %q", domain.ErrInvalidInput, id)
		}
	}
	o.mu.Lock()
	o.preferred = id
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) PreferredEngine() domain.EngineID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.preferred
}

// Session returns a copy of the current session.
func (o *Orchestrator) Session() domain.Session {
	return o.store.Snapshot()
}

// Engines probes the availability of every registered engine.
func (o *Orchestrator) Engines(ctx context.Context) []engine.Status {
	return o.registry.Status(ctx)
}

// SuggestFilename returns a slug naming the session. It asks the engine of
// the current diagram and falls back to a name derived from the first
// requirement when no engine can serve.
func (o *Orchestrator) SuggestFilename(ctx context.Context) string {
	snap := o.store.Snapshot()
	texts := snap.UserTexts()
	if len(texts) == 0 {
		return engine.FallbackFilename(nil, snap.CurrentKind)
	}

	preferred := snap.CurrentEngine
	if preferred == "" {
		preferred = o.PreferredEngine()
	}
	reg, err := o.registry.Resolve(ctx, preferred)
	if err != nil {
		return engine.FallbackFilename(texts, snap.CurrentKind)
	}
	return reg.Generator.GenerateSessionFilename(ctx, texts, snap.CurrentKind)
}
