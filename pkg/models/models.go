package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnavailable is returned when a provider has no usable backing model,
// for example because it is not configured.
var ErrUnavailable = errors.New("model provider unavailable")

// Role tags a prompt message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Message is one role-tagged entry of a prompt.
type Message struct {
	Role Role
	Text string
}

// Provider represents a service that provides LLMs (e.g. Gemini on AI Studio
// or Vertex AI).
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Available reports whether the provider can currently serve requests.
	// It must be cheap enough to call before every generation.
	Available(ctx context.Context) bool

	// List returns the names of models the provider can use.
	List(ctx context.Context) ([]string, error)

	// Stream sends an ordered prompt to the model and returns a stream of
	// reply fragments. It returns ErrUnavailable when no model can be obtained.
	Stream(ctx context.Context, messages []Message) (Stream, error)
}

// Stream abstracts the fragments of a streamed reply.
type Stream interface {
	// Recv returns the next text fragment. It returns io.EOF after the last one.
	Recv() (string, error)
	Close() error
}

// Accumulate drains s into a single string and closes it.
func Accumulate(s Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), fmt.Errorf("receive fragment: %w", err)
		}
		sb.WriteString(frag)
	}
}

// SplitSystem separates system messages from the conversation. System texts
// are joined with blank lines; the remaining messages keep their order.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Text)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// MergeTurns joins consecutive messages of the same role. Gemini rejects
// conversations where a role repeats.
func MergeTurns(messages []Message) []Message {
	var out []Message
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Text += "\n\n" + m.Text
			continue
		}
		out = append(out, m)
	}
	return out
}
