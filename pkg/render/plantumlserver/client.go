// Package plantumlserver renders PlantUML through the HTTP API of a
// PlantUML server (https://github.com/plantuml/plantuml-server).
package plantumlserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nstogner/diagrammer/pkg/render"
)

// DefaultTimeout bounds a single render request.
const DefaultTimeout = 20 * time.Second

// maxResponseBytes caps the SVG size read from the server.
const maxResponseBytes = 8 << 20

// Client posts diagram source to {BaseURL}/svg.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ render.Compiler = (*Client)(nil)

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Render implements render.Compiler.
func (c *Client) Render(ctx context.Context, source string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/svg", strings.NewReader(source))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("plantuml server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read plantuml response: %w", err)
	}
	slog.Debug("PlantUML render", "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))

	// Syntax errors come back as 400 with an SVG describing the error.
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("plantuml server error %d: %s", resp.StatusCode, summarize(body))
	}
	svg := string(body)
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("plantuml server returned non-SVG content")
	}
	return svg, nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("plantuml server status %d", resp.StatusCode)
	}
	return nil
}

func summarize(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
