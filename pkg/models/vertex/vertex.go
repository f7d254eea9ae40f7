// Package vertex implements models.Provider on Vertex AI through the Google
// Gen AI SDK. Credentials come from Application Default Credentials.
package vertex

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/nstogner/diagrammer/pkg/models"
	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Provider implements models.Provider using Vertex AI.
type Provider struct {
	client    *genai.Client
	modelName string
}

// Verify interface compliance.
var _ models.Provider = (*Provider)(nil)

// New creates a Vertex AI provider for the given project and location.
func New(ctx context.Context, project, location, modelName string) (*Provider, error) {
	if project == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set: %w", models.ErrUnavailable)
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	return &Provider{client: client, modelName: modelName}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "vertex" }

// Available reports whether a client was created.
func (p *Provider) Available(ctx context.Context) bool { return p.client != nil }

// List returns the models that support content generation.
func (p *Provider) List(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		for _, action := range m.SupportedActions {
			if action == "generateContent" {
				names = append(names, m.Name)
				break
			}
		}
	}
	return names, nil
}

// Stream sends the prompt to the model and returns a stream of fragments.
func (p *Provider) Stream(ctx context.Context, messages []models.Message) (models.Stream, error) {
	system, turns := models.SplitSystem(messages)
	turns = models.MergeTurns(turns)
	if len(turns) == 0 {
		return nil, fmt.Errorf("vertex: prompt has no user message")
	}
	slog.Debug("Vertex.Stream", "model", p.modelName, "messageCount", len(turns))

	var contents []*genai.Content
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(streamCtx, p.modelName, contents, cfg))
	return &vertexStream{next: next, stop: stop, cancel: cancel}, nil
}

// vertexStream adapts the SDK's push iterator to models.Stream.
type vertexStream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
}

func (s *vertexStream) Recv() (string, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if txt := responseText(resp); txt != "" {
			return txt, nil
		}
	}
}

func (s *vertexStream) Close() error {
	s.stop()
	s.cancel()
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}
