package domain

import "time"

// EngineID identifies a diagram engine (a generator and renderer pair for one
// diagram description language).
type EngineID string

const (
	EnginePlantUML EngineID = "plantuml"
	EngineMermaid  EngineID = "mermaid"
)

// Kind is an engine-specific diagram category such as "sequence" or "class".
// The zero value means the generator should infer the kind.
type Kind string

// KindUnspecified lets the generator pick the most suitable kind.
const KindUnspecified Kind = ""

// Specified reports whether k names a concrete kind.
func (k Kind) Specified() bool { return k != KindUnspecified }

// Message is one entry of the session history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Kind and Engine are only set on bot messages. They allow the current
	// diagram to be recovered after the history is truncated.
	Kind   Kind     `json:"kind,omitempty"`
	Engine EngineID `json:"engine,omitempty"`
}

// IsPlaceholder reports whether m marks an in-flight generation.
func (m Message) IsPlaceholder() bool { return m.Role == RolePlaceholder }

// Session is a point-in-time copy of the conversation and the active diagram.
type Session struct {
	SchemaVersion int       `json:"schemaVersion"`
	Messages      []Message `json:"messages"`
	// CurrentSource is the source of the most recent successful bot message,
	// or the empty template when there is none.
	CurrentSource string   `json:"currentSource"`
	CurrentKind   Kind     `json:"currentKind,omitempty"`
	CurrentEngine EngineID `json:"currentEngine,omitempty"`
}

// UserTexts returns the texts of all user messages in order.
func (s Session) UserTexts() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			out = append(out, m.Text)
		}
	}
	return out
}

// HasPlaceholder reports whether any generation is still in flight.
func (s Session) HasPlaceholder() bool {
	for _, m := range s.Messages {
		if m.IsPlaceholder() {
			return true
		}
	}
	return false
}

// TypeState distinguishes the three states a diagram type can be in.
type TypeState int

const (
	// TypeUnspecified means no type token was given.
	TypeUnspecified TypeState = iota
	// TypeUnmapped means a token was present but is not a kind of the engine.
	TypeUnmapped
	// TypeKnown means the token mapped to a valid kind.
	TypeKnown
)

func (s TypeState) String() string {
	switch s {
	case TypeUnmapped:
		return "unmapped"
	case TypeKnown:
		return "known"
	default:
		return "unspecified"
	}
}

// DiagramType is the UI-level view of a diagram kind. Raw keeps the token as
// the model wrote it so an unmapped value can still be shown.
type DiagramType struct {
	Kind Kind
	Raw  string
}

// State classifies t.
func (t DiagramType) State() TypeState {
	switch {
	case t.Kind.Specified():
		return TypeKnown
	case t.Raw != "":
		return TypeUnmapped
	default:
		return TypeUnspecified
	}
}

// Conformance records how closely a model reply followed the response protocol.
type Conformance string

const (
	// Conformant replies carried a recognised kind and a delimited source block.
	Conformant Conformance = "conformant"
	// KindMissing replies carried a delimited source block but no usable kind.
	KindMissing Conformance = "kind_missing"
	// NonConformant replies had no delimited source; the whole text is used.
	NonConformant Conformance = "non_conformant"
)

// GenerationResult is the structured form of a model reply.
type GenerationResult struct {
	Conformance Conformance
	Source      string
	Type        DiagramType
	Explanation string
	Engine      EngineID
}

// Kind is shorthand for r.Type.Kind.
func (r GenerationResult) Kind() Kind { return r.Type.Kind }

// ArtifactKind tags the content of an Artifact.
type ArtifactKind string

const (
	// ArtifactNone is returned by a renderer for source that belongs to a
	// different engine.
	ArtifactNone ArtifactKind = ""
	// ArtifactEmpty is the fixed artifact shown when there is no source.
	ArtifactEmpty ArtifactKind = "empty"
	// ArtifactSVG is a rendered vector image.
	ArtifactSVG ArtifactKind = "svg"
	// ArtifactFallback is an SVG wrapper embedding the unrendered source.
	ArtifactFallback ArtifactKind = "fallback"
)

// Artifact is the displayable output of a renderer.
type Artifact struct {
	Kind    ArtifactKind `json:"kind"`
	Engine  EngineID     `json:"engine,omitempty"`
	Content string       `json:"content"`
	// Source is the diagram source the artifact was produced from.
	Source string `json:"source,omitempty"`
	// Reason explains why a fallback was produced.
	Reason string `json:"reason,omitempty"`
}

// IsZero reports whether a is the "not mine" result.
func (a Artifact) IsZero() bool { return a.Kind == ArtifactNone }

// Degraded reports whether the artifact is a fallback rather than a render.
func (a Artifact) Degraded() bool { return a.Kind == ArtifactFallback }
