package models

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Mock is an offline Provider that answers every prompt with a fixed
// protocol-conforming reply. It is selected with DIAGRAMMER_PROVIDER=mock.
type Mock struct{}

var _ Provider = Mock{}

func (Mock) Name() string { return "mock" }

func (Mock) Available(ctx context.Context) bool { return true }

func (Mock) List(ctx context.Context) ([]string, error) { return []string{"mock"}, nil }

// Stream replies with a diagram in whichever language the system
// instruction asks for.
func (Mock) Stream(ctx context.Context, messages []Message) (Stream, error) {
	system, turns := SplitSystem(messages)
	if len(turns) == 0 {
		return nil, fmt.Errorf("mock: prompt has no user message")
	}
	req := strings.TrimSpace(turns[len(turns)-1].Text)
	label := strings.ReplaceAll(firstLine(req), "\"", "'")

	var reply string
	switch {
	case strings.Contains(system, "short file name"):
		reply = "mock-" + strings.Join(strings.Fields(strings.ToLower(label)), "-")
	case strings.Contains(system, "Mermaid"):
		reply = fmt.Sprintf("Explanation: Offline sketch of %q.\nDiagram Type: flowchart\n```mermaid\nflowchart TD\n    A[\"%s\"] --> B[Done]\n```\n", label, label)
	default:
		reply = fmt.Sprintf("Explanation: Offline sketch of %q.\nDiagram Type: activity\n```plantuml\n@startuml\nstart\n:%s;\nstop\n@enduml\n```\n", label, label)
	}
	return &textStream{frags: strings.SplitAfter(reply, "\n")}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type textStream struct {
	frags []string
}

func (s *textStream) Recv() (string, error) {
	if len(s.frags) == 0 {
		return "", io.EOF
	}
	f := s.frags[0]
	s.frags = s.frags[1:]
	return f, nil
}

func (s *textStream) Close() error { return nil }
