package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// Registry owns the set of engines and decides which one serves a request.
// Availability is probed on every call and never cached.
type Registry struct {
	mu        sync.RWMutex
	engines   map[domain.EngineID]Registration
	order     []domain.EngineID
	defaultID domain.EngineID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[domain.EngineID]Registration)}
}

// Register adds an engine. The first registered engine becomes the default
// unless one is already set.
func (r *Registry) Register(id domain.EngineID, g Generator, rd Renderer) error {
	if id == "" || g == nil || rd == nil {
		return fmt.Errorf("register engine %q: id, generator and renderer are required", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[id]; ok {
		return fmt.Errorf("engine %q already registered", id)
	}
	r.engines[id] = Registration{ID: id, Generator: g, Renderer: rd}
	r.order = append(r.order, id)
	if r.defaultID == "" {
		r.defaultID = id
	}
	return nil
}

// SetDefault changes the default engine.
func (r *Registry) SetDefault(id domain.EngineID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[id]; !ok {
		return fmt.Errorf("engine %q not registered", id)
	}
	r.defaultID = id
	return nil
}

// Default returns the default engine id, or "" for an empty registry.
func (r *Registry) Default() domain.EngineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// Lookup returns the registration for id regardless of availability.
func (r *Registry) Lookup(id domain.EngineID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.engines[id]
	return reg, ok
}

// IDs returns the registered engine ids in registration order.
func (r *Registry) IDs() []domain.EngineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.EngineID(nil), r.order...)
}

// candidates returns registrations in resolution order: preferred, default,
// then registration order, without duplicates.
func (r *Registry) candidates(preferred domain.EngineID) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[domain.EngineID]bool, len(r.order))
	var out []Registration
	add := func(id domain.EngineID) {
		if id == "" || seen[id] {
			return
		}
		if reg, ok := r.engines[id]; ok {
			seen[id] = true
			out = append(out, reg)
		}
	}
	add(preferred)
	add(r.defaultID)
	for _, id := range r.order {
		add(id)
	}
	return out
}

// Resolve picks the engine for a request: preferred if given and available,
// else the default if available, else the first registered engine that is
// available. It fails with domain.ErrNoEngineAvailable otherwise.
func (r *Registry) Resolve(ctx context.Context, preferred domain.EngineID) (Registration, error) {
	for _, reg := range r.candidates(preferred) {
		if reg.Generator.Available(ctx) {
			if preferred != "" && reg.ID != preferred {
				slog.Info("Preferred engine unavailable, falling back", "preferred", preferred, "engine", reg.ID)
			}
			return reg, nil
		}
		slog.Debug("Engine unavailable", "engine", reg.ID)
	}
	return Registration{}, domain.ErrNoEngineAvailable
}

// GenerateWithFallback resolves an engine and runs its generator. The
// returned registration identifies the engine that produced the result.
func (r *Registry) GenerateWithFallback(ctx context.Context, req Request, preferred domain.EngineID) (domain.GenerationResult, Registration, error) {
	reg, err := r.Resolve(ctx, preferred)
	if err != nil {
		return domain.GenerationResult{}, Registration{}, err
	}
	res, err := reg.Generator.Generate(ctx, req)
	if err != nil {
		return domain.GenerationResult{}, reg, fmt.Errorf("engine %s: %w", reg.ID, err)
	}
	res.Engine = reg.ID
	return res, reg, nil
}

// Status probes every engine in registration order.
func (r *Registry) Status(ctx context.Context) []Status {
	def := r.Default()
	var out []Status
	for _, id := range r.IDs() {
		reg, _ := r.Lookup(id)
		out = append(out, Status{
			ID:        id,
			Available: reg.Generator.Available(ctx),
			Default:   id == def,
		})
	}
	return out
}

// Detect returns the registered engine whose language source belongs to.
func (r *Registry) Detect(source string) (Registration, bool) {
	id, ok := DetectEngine(source)
	if !ok {
		return Registration{}, false
	}
	return r.Lookup(id)
}

// Render renders source with the engine it belongs to, falling back to the
// given engine and then the default when the language is not recognised.
func (r *Registry) Render(ctx context.Context, source string, engine domain.EngineID) domain.Artifact {
	if isBlank(source) {
		return EmptyArtifact()
	}
	reg, ok := r.Detect(source)
	if !ok {
		if reg, ok = r.Lookup(engine); !ok {
			reg, ok = r.Lookup(r.Default())
		}
	}
	if !ok {
		return FallbackArtifact(engine, source, "no engine registered")
	}
	return reg.Renderer.RenderToArtifact(ctx, source)
}
