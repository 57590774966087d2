// Package server exposes the validation pipeline over HTTP so other
// services can ask for a verdict without linking the library.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/c360studio/webguard/audit"
	"github.com/c360studio/webguard/metrics"
	"github.com/c360studio/webguard/urlcheck"
)

// Server answers validation queries against a swappable guard. The
// guard is replaced atomically on config reload; in-flight requests
// finish against the guard they started with.
type Server struct {
	mu     sync.RWMutex
	guard  *urlcheck.Guard
	audit  *audit.Publisher
	logger *slog.Logger
}

// New creates a server over the given guard. The audit publisher may
// be nil, in which case decisions are not published.
func New(guard *urlcheck.Guard, auditPub *audit.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		guard:  guard,
		audit:  auditPub,
		logger: logger,
	}
}

// SetGuard swaps the active guard. Used on config reload.
func (s *Server) SetGuard(guard *urlcheck.Guard) {
	s.mu.Lock()
	s.guard = guard
	s.mu.Unlock()
}

// Guard returns the active guard.
func (s *Server) Guard() *urlcheck.Guard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guard
}

// RegisterHTTPHandlers registers the server's routes on mux.
func (s *Server) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/v1/check", s.handleCheck)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
}

// CheckRequest is the body of a validation query.
type CheckRequest struct {
	URL string `json:"url"`
}

// CheckResponse is the verdict for one URL.
type CheckResponse struct {
	RequestID string `json:"request_id"`
	URL       string `json:"url"`
	Host      string `json:"host,omitempty"`
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	host, err := s.Guard().Check(req.URL)
	metrics.RecordDecision(err)

	resp := CheckResponse{
		RequestID: uuid.NewString(),
		URL:       req.URL,
		Host:      host,
		Allowed:   err == nil,
		Reason:    metrics.Reason(err),
	}
	if err != nil {
		resp.Detail = err.Error()
	}

	s.publishDecision(req.URL, host, err)

	s.logger.Info("validation decision",
		"request_id", resp.RequestID,
		"url", req.URL,
		"allowed", resp.Allowed,
		"reason", resp.Reason)

	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// publishDecision sends the decision to the audit stream when one is
// configured. Publish failures are logged, never surfaced: the verdict
// stands whether or not the audit trail hears about it.
func (s *Server) publishDecision(rawURL, host string, err error) {
	if s.audit == nil {
		return
	}
	event := audit.NewEvent(rawURL, host, err)
	if pubErr := s.audit.Publish(event); pubErr != nil {
		s.logger.Warn("failed to publish audit event",
			"event_id", event.ID,
			"error", pubErr)
	}
}
