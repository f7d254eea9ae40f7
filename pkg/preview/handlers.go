package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// Frame is pushed to live clients. Only the fields that changed are set,
// except for the first frame after connecting which carries both.
type Frame struct {
	Session  *domain.Session  `json:"session,omitempty"`
	Artifact *domain.Artifact `json:"artifact,omitempty"`
	Error    *ErrorInfo       `json:"error,omitempty"`
}

// ErrorInfo describes a failure using the domain error codes.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitRequest is the body of POST /api/requirements and of requirement
// messages sent over the live socket.
type SubmitRequest struct {
	Requirement string `json:"requirement"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, *s.current().Session)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	a := *s.current().Artifact
	if r.URL.Query().Get("format") == "svg" {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte(a.Content))
		return
	}
	s.jsonResponse(w, http.StatusOK, a)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.submit == nil {
		s.errorResponse(w, http.StatusMethodNotAllowed, fmt.Errorf("requirement input is disabled"))
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}
	if err := s.submit(r.Context(), req.Requirement); err != nil {
		s.errorResponse(w, statusFor(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, *s.current().Session)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelUnavailable), errors.Is(err, domain.ErrNoEngineAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
