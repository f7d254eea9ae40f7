package orchestrator

import "github.com/nstogner/diagrammer/pkg/domain"

// Listener receives notifications from the Orchestrator. Methods are called
// synchronously from the goroutine running the operation and must not block.
type Listener interface {
	// SessionChanged is called once per logical session mutation.
	SessionChanged(s domain.Session)
	// ArtifactReady is called after each render.
	ArtifactReady(a domain.Artifact)
	// Error reports a failed generation. code is a domain.ErrorCode name.
	Error(code, message string)
}

// ResultListener is an optional extension of Listener for presentations
// that show the model's explanation next to the diagram.
type ResultListener interface {
	GenerationSettled(res domain.GenerationResult)
}

// Callbacks adapts plain functions to Listener. Nil fields are ignored.
type Callbacks struct {
	OnSessionChanged func(domain.Session)
	OnArtifactReady  func(domain.Artifact)
	OnError          func(code, message string)
	OnResult         func(domain.GenerationResult)
}

var (
	_ Listener       = Callbacks{}
	_ ResultListener = Callbacks{}
)

func (c Callbacks) SessionChanged(s domain.Session) {
	if c.OnSessionChanged != nil {
		c.OnSessionChanged(s)
	}
}

func (c Callbacks) ArtifactReady(a domain.Artifact) {
	if c.OnArtifactReady != nil {
		c.OnArtifactReady(a)
	}
}

func (c Callbacks) Error(code, message string) {
	if c.OnError != nil {
		c.OnError(code, message)
	}
}

func (c Callbacks) GenerationSettled(res domain.GenerationResult) {
	if c.OnResult != nil {
		c.OnResult(res)
	}
}

// Fanout forwards every notification to each listener in order.
type Fanout []Listener

var _ ResultListener = Fanout(nil)

func (f Fanout) SessionChanged(s domain.Session) {
	for _, l := range f {
		l.SessionChanged(s)
	}
}

func (f Fanout) ArtifactReady(a domain.Artifact) {
	for _, l := range f {
		l.ArtifactReady(a)
	}
}

func (f Fanout) Error(code, message string) {
	for _, l := range f {
		l.Error(code, message)
	}
}

func (f Fanout) GenerationSettled(res domain.GenerationResult) {
	for _, l := range f {
		if rl, ok := l.(ResultListener); ok {
			rl.GenerationSettled(res)
		}
	}
}
