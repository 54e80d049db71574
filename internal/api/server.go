package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/convexport/internal/hermes"
	"github.com/MikeSquared-Agency/convexport/internal/store"
)

// recentRunsLimit bounds the run list on the status endpoint.
const recentRunsLimit = 10

// RunLister lists catalogued export runs. *store.Store satisfies it.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]store.ExportRun, error)
}

// ExportTrigger starts an export run in the background.
type ExportTrigger func(req hermes.ExportRequest) error

type Server struct {
	router     *chi.Mux
	port       int
	apiToken   string
	runs       RunLister
	trigger    ExportTrigger
	inputRoot  string
	outputRoot string
	logger     *slog.Logger
	now        func() time.Time
}

// ServerOption configures optional Server behaviour.
type ServerOption func(*Server)

// WithExportRoots limits requested exports to inputs under inputRoot and
// output directories under outputRoot. Both default to the working directory.
func WithExportRoots(inputRoot, outputRoot string) ServerOption {
	return func(s *Server) {
		s.inputRoot = inputRoot
		s.outputRoot = outputRoot
	}
}

// NewServer builds the HTTP API. runs and trigger may be nil; the matching
// features are then reported as unavailable. Export requests also require
// apiToken to be set.
func NewServer(port int, apiToken string, runs RunLister, trigger ExportTrigger, logger *slog.Logger, opts ...ServerOption) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		apiToken: apiToken,
		runs:     runs,
		trigger:  trigger,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)
	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/api/v1/render", s.renderConversation)
		r.Post("/api/v1/exports", s.requestExport)
	})

	return s
}

// Handler exposes the router, e.g. for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runSummary struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	OutputDir  string     `json:"output_dir"`
	DryRun     bool       `json:"dry_run"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Duplicates int        `json:"duplicates"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type statusResponse struct {
	Service string       `json:"service"`
	Status  string       `json:"status"`
	Catalog bool         `json:"catalog"`
	Exports bool         `json:"exports"`
	Runs    []runSummary `json:"runs,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Service: "convexport",
		Status:  "ok",
		Catalog: s.runs != nil,
		Exports: s.exportsEnabled(),
	}

	if s.runs != nil {
		runs, err := s.runs.RecentRuns(r.Context(), recentRunsLimit)
		if err != nil {
			s.logger.Warn("failed to list export runs", "error", err)
			resp.Status = "degraded"
		}
		for _, run := range runs {
			resp.Runs = append(resp.Runs, runSummary{
				ID:         run.ID.String(),
				Input:      run.Input,
				OutputDir:  run.OutputDir,
				DryRun:     run.DryRun,
				Total:      run.Total,
				Succeeded:  run.Succeeded,
				Failed:     run.Failed,
				Skipped:    run.Skipped,
				Duplicates: run.Duplicates,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) exportsEnabled() bool {
	return s.trigger != nil && s.apiToken != ""
}

// requestExport handles POST /api/v1/exports. The run happens in the
// background; the response only acknowledges it.
func (s *Server) requestExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "exports are not enabled on this server")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	req, err := hermes.ParseExportRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Confine(s.inputRoot, s.outputRoot); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	if err := s.trigger(*req); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "input": req.Input})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
