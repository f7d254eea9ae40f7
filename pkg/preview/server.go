// Package preview serves a browser page that shows the current diagram and
// follows it live. PlantUML arrives as rendered SVG; Mermaid source is drawn
// in the page by mermaid.js.
package preview

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/nstogner/diagrammer/pkg/domain"
	"github.com/nstogner/diagrammer/pkg/engine"
	"github.com/nstogner/diagrammer/pkg/orchestrator"
)

//go:embed static
var staticFS embed.FS

// SubmitFunc submits a requirement typed into the page.
type SubmitFunc func(ctx context.Context, text string) error

// Options configure a Server.
type Options struct {
	// Submit enables requirement input from the page. Nil makes the page
	// read-only.
	Submit SubmitFunc
}

// Server serves the preview page and API. It is an orchestrator.Listener
// and keeps the latest session and artifact it was given.
type Server struct {
	submit SubmitFunc
	srv    *http.Server

	mu       sync.RWMutex
	session  domain.Session
	artifact domain.Artifact
	clients  map[*client]struct{}
}

var _ orchestrator.Listener = (*Server)(nil)

// New creates a new Server.
func New(opts Options) *Server {
	return &Server{
		submit:   opts.Submit,
		artifact: engine.EmptyArtifact(),
		clients:  make(map[*client]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("GET /api/artifact", s.handleGetArtifact)
	mux.HandleFunc("POST /api/requirements", s.handleSubmit)

	// WebSocket
	mux.HandleFunc("/api/live", s.handleLiveWebSocket)

	mux.HandleFunc("/", s.handleStatic)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	srv := s.srv
	s.mu.Unlock()

	slog.Info("Starting preview server", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	for c := range s.clients {
		c.close()
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// SessionChanged implements orchestrator.Listener.
func (s *Server) SessionChanged(sess domain.Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.broadcast(Frame{Session: &sess})
}

// ArtifactReady implements orchestrator.Listener.
func (s *Server) ArtifactReady(a domain.Artifact) {
	s.mu.Lock()
	s.artifact = a
	s.mu.Unlock()
	s.broadcast(Frame{Artifact: &a})
}

// Error implements orchestrator.Listener.
func (s *Server) Error(code, message string) {
	s.broadcast(Frame{Error: &ErrorInfo{Code: code, Message: message}})
}

func (s *Server) current() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, a := s.session, s.artifact
	return Frame{Session: &sess, Artifact: &a}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
		return
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		slog.Error("Failed to open static assets", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.FileServer(http.FS(sub)).ServeHTTP(w, r)
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API Error", "error", err)
	s.jsonResponse(w, status, ErrorInfo{Code: domain.ErrorCode(err), Message: err.Error()})
}
