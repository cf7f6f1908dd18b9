// Package server is the HTTP transport for the planning service. It owns
// wire deserialization and validation, CORS policy, and the mapping from
// orchestrator outcomes to status codes; planning semantics live below it.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/logging"
	"github.com/entrhq/pilot/pkg/orchestrator"
	"github.com/entrhq/pilot/pkg/planner"
	"github.com/entrhq/pilot/pkg/types"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
)

// maxRequestBytes caps the /plan request body. Page snapshots are large but
// bounded; anything beyond this is abuse.
const maxRequestBytes = 4 << 20

// Server serves the planning API.
type Server struct {
	orch     *orchestrator.Orchestrator
	logger   *logging.Logger
	allowAll bool
	origins  []glob.Glob
}

// New creates a server over the orchestrator. CORS origin patterns from the
// settings are compiled once here; "*" allows every origin. logger may be
// nil.
func New(orch *orchestrator.Orchestrator, settings config.ServerSettings, logger *logging.Logger) (*Server, error) {
	s := &Server{
		orch:   orch,
		logger: logger,
	}

	for _, pattern := range settings.CORSOrigins {
		if pattern == "*" {
			s.allowAll = true
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid CORS origin pattern %q: %w", pattern, err)
		}
		s.origins = append(s.origins, g)
	}

	return s, nil
}

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.cors(mux)
}

// errorResponse is the wire shape for boundary rejections.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	var req types.PlanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validatePlanRequest(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.infof("[%s] plan requested: goal=%q url=%s provider=%q candidates=%d",
		requestID, req.UserRequest, req.Page.URL, req.Provider, len(req.Page.Candidates))

	resp, err := s.orch.Plan(r.Context(), &req)
	if err != nil {
		if errors.Is(err, planner.ErrUnknownProvider) || errors.Is(err, planner.ErrConfiguration) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.errorf("[%s] planning failed: %v", requestID, err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("planning failed: %v", err))
		return
	}

	s.infof("[%s] plan produced: steps=%d error=%q", requestID, len(resp.Steps), resp.Error)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.Providers())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validatePlanRequest enforces the wire schema the planners assume.
func validatePlanRequest(req *types.PlanRequest) error {
	if strings.TrimSpace(req.UserRequest) == "" {
		return fmt.Errorf("userRequest is required")
	}
	if req.Page.URL == "" {
		return fmt.Errorf("page.url is required")
	}
	for i, c := range req.Page.Candidates {
		if c.Selector == "" {
			return fmt.Errorf("page.candidates[%d]: selector is required", i)
		}
		if c.Tag == "" {
			return fmt.Errorf("page.candidates[%d]: tag is required", i)
		}
	}
	return nil
}

// cors applies the origin policy and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if s.allowAll {
		return true
	}
	for _, g := range s.origins {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) infof(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, v...)
	}
}

func (s *Server) errorf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, v...)
	}
}
