package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/nstogner/diagrammer/pkg/models"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// LevelTrace is a custom log level for detailed HTTP traffic.
	LevelTrace = slog.Level(-8)

	// DefaultModel is used when no model name is configured.
	DefaultModel = "gemini-2.0-flash"
)

// Provider implements models.Provider using the Gemini API with an API key.
// A Provider without a key reports itself unavailable until Configure is
// called.
type Provider struct {
	modelName string

	mu     sync.RWMutex
	client *genai.Client
}

// Verify interface compliance.
var _ models.Provider = (*Provider)(nil)

// New creates a new Provider. An empty apiKey yields an unconfigured provider.
func New(ctx context.Context, apiKey, modelName string) (*Provider, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	p := &Provider{modelName: modelName}
	if apiKey == "" {
		return p, nil
	}
	if err := p.Configure(ctx, apiKey); err != nil {
		return nil, err
	}
	return p, nil
}

// Configure replaces the API key used by the provider.
func (p *Provider) Configure(ctx context.Context, apiKey string) error {
	httpClient := &http.Client{
		Transport: &loggingTransport{
			base:   http.DefaultTransport,
			apiKey: apiKey,
		},
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}

	p.mu.Lock()
	old := p.client
	p.client = client
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	slog.Info("Gemini provider configured", "model", p.modelName)
	return nil
}

type loggingTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A custom http.Client bypasses the library's own key injection.
	if t.apiKey != "" && req.Header.Get("x-goog-api-key") == "" && req.URL.Query().Get("key") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("x-goog-api-key", t.apiKey)
	}

	if !slog.Default().Enabled(req.Context(), LevelTrace) {
		return t.base.RoundTrip(req)
	}

	reqDump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		slog.Debug("Failed to dump Gemini request", "error", err)
	} else {
		slog.Log(req.Context(), LevelTrace, "Gemini REST Request", "url", req.URL.String(), "dump", string(reqDump))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Streaming bodies are not dumped; reading them would consume the stream.
	isStream := strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") ||
		strings.Contains(req.URL.Query().Get("alt"), "sse")

	respDump, err := httputil.DumpResponse(resp, !isStream)
	if err != nil {
		slog.Debug("Failed to dump Gemini response", "error", err)
	} else {
		slog.Log(req.Context(), LevelTrace, "Gemini REST Response", "isStream", isStream, "dump", string(respDump))
	}

	return resp, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Available reports whether an API key has been configured.
func (p *Provider) Available(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

// Close releases resources.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func (p *Provider) currentClient() (*genai.Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, fmt.Errorf("gemini: no API key: %w", models.ErrUnavailable)
	}
	return p.client, nil
}

// List returns available models.
func (p *Provider) List(ctx context.Context) ([]string, error) {
	client, err := p.currentClient()
	if err != nil {
		return nil, err
	}
	iter := client.ListModels(ctx)
	var names []string
	for {
		model, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		slog.Debug("Found Gemini model", "name", model.Name)
		names = append(names, model.Name)
	}
	return names, nil
}

// Stream sends the prompt to the configured model and returns a stream.
func (p *Provider) Stream(ctx context.Context, messages []models.Message) (models.Stream, error) {
	client, err := p.currentClient()
	if err != nil {
		return nil, err
	}

	system, turns := models.SplitSystem(messages)
	turns = models.MergeTurns(turns)
	if len(turns) == 0 {
		return nil, fmt.Errorf("gemini: prompt has no user message")
	}
	slog.Debug("Gemini.Stream: Request Parameters", "model", p.modelName, "messageCount", len(turns))

	gm := client.GenerativeModel(p.modelName)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	var history []*genai.Content
	for _, msg := range turns {
		role := "user"
		if msg.Role == models.RoleModel {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Text)},
		})
	}

	cs := gm.StartChat()
	cs.History = history[:len(history)-1]
	last := turns[len(turns)-1]

	iter := cs.SendMessageStream(ctx, genai.Text(last.Text))
	return &geminiStream{iter: iter}, nil
}

// geminiStream wraps the response iterator.
type geminiStream struct {
	iter *genai.GenerateContentResponseIterator
}

func (s *geminiStream) Recv() (string, error) {
	for {
		resp, err := s.iter.Next()
		if err == iterator.Done {
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

func (s *geminiStream) Close() error {
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	}
	return sb.String()
}
