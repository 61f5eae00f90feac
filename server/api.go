package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lexcodex/autoforge/agents"
	"github.com/lexcodex/autoforge/persistence"
)

// APIServer exposes run management over HTTP for scripts and dashboards.
type APIServer struct {
	Manager *RunManager
	Logger  *log.Logger
}

// StartRunRequest is the POST /api/runs payload.
type StartRunRequest struct {
	Description string `json:"description"`
	ProjectType string `json:"project_type"`
	Workspace   string `json:"workspace"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context
// cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	if s.Logger != nil {
		s.Logger.Printf("API listening on %s", addr)
	}
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *APIServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
}

// Handler builds the route table. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)
	mux.HandleFunc("/api/resume", s.handleResume)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistoryRun)
	return mux
}

// handleRuns serves POST (start a run) and GET (list runs).
func (s *APIServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req StartRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		run, err := s.Manager.Start(req.Description, req.ProjectType, req.Workspace)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusAccepted, run)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Manager.List())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleRun serves GET /api/runs/{id} and POST /api/runs/{id}/interrupt.
func (s *APIServer) handleRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "interrupt" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := s.Manager.Interrupt(id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "interrupt requested"})
		return
	}

	if len(parts) != 1 || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, ok := s.Manager.Get(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleResume serves POST /api/resume with a workspace to continue.
func (s *APIServer) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	run, err := s.Manager.Resume(req.Workspace)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// HistoryEntry is one persisted run with its audit trail.
type HistoryEntry struct {
	Run         *persistence.RunRecord   `json:"run"`
	Transitions []persistence.Transition `json:"transitions"`
	Approvals   []persistence.Approval   `json:"approvals,omitempty"`
	Result      *agents.Result           `json:"result,omitempty"`
}

// handleHistory serves GET /api/history: runs persisted across restarts,
// newest first. The in-memory /api/runs list only covers this process.
func (s *APIServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.Manager.History(limit)
	if err != nil {
		http.Error(w, err.Error(), historyStatus(err))
		return
	}
	if runs == nil {
		runs = []*persistence.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleHistoryRun serves GET /api/history/{id}: the persisted record, its
// state transitions, and the final result artifact when one was saved.
func (s *APIServer) handleHistoryRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history/"), "/")
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	rec, trail, err := s.Manager.HistoryRun(id)
	if err != nil {
		http.Error(w, err.Error(), historyStatus(err))
		return
	}
	entry := HistoryEntry{Run: rec, Transitions: trail}
	if approvals, err := s.Manager.HistoryApprovals(id); err == nil {
		entry.Approvals = approvals
	}
	if result, err := s.Manager.HistoryResult(id); err == nil {
		entry.Result = result
	}
	writeJSON(w, http.StatusOK, entry)
}

func historyStatus(err error) int {
	if errors.Is(err, ErrHistoryDisabled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusNotFound
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
