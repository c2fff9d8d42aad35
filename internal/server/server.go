package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/letterfit/internal/fit"
	"github.com/cwbudde/letterfit/internal/formula"
	"github.com/cwbudde/letterfit/internal/opt"
	"github.com/cwbudde/letterfit/internal/words"
)

// maxRequestBody caps the size of a job creation request.
const maxRequestBody = 1 << 20

// Server represents the HTTP server.
type Server struct {
	jobManager *JobManager
	addr       string
	defaults   opt.Config
	server     *http.Server
	baseCtx    context.Context
	stopJobs   context.CancelFunc
}

// NewServer creates a new HTTP server. Job requests are decoded on top of
// defaults, so omitted fields keep their default values.
func NewServer(addr string, defaults opt.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		addr:       addr,
		defaults:   defaults,
		baseCtx:    ctx,
		stopJobs:   cancel,
	}
}

// Handler returns the routed API handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/schema", s.handleSchema)
	mux.HandleFunc("/api/v1/spell/", s.handleSpell)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, cancels running jobs and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.stopJobs()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.jobManager.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// handleJobs handles /api/v1/jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*.
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Job ID required")
		return
	}

	jobID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	case parts[1] == "results":
		s.handleGetResults(w, r, jobID)
	case parts[1] == "explain" && len(parts) == 3:
		s.handleExplain(w, r, jobID, parts[2])
	case parts[1] == "cancel":
		s.handleCancelJob(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// handleCreateJob handles POST /api/v1/jobs.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	config := s.defaults

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	if err := config.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.jobManager.CreateJob(config)
	s.jobManager.Start(s.baseCtx, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status.
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	response := map[string]any{
		"id":               job.ID,
		"state":            job.State,
		"config":           job.Config,
		"generation":       job.Generation,
		"bestFitness":      job.BestFitness,
		"solvedCount":      job.SolvedCount,
		"totalCount":       job.TotalCount,
		"maxError":         job.MaxError,
		"mutationRate":     job.MutationRate,
		"staleGenerations": job.Stale,
		"best":             job.Best,
		"elapsed":          job.Elapsed().Seconds(),
		"startTime":        job.StartTime,
		"endTime":          job.EndTime,
		"error":            job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetResults handles GET /api/v1/jobs/:id/results.
func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Result == nil {
		writeError(w, http.StatusNotFound, "No results yet")
		return
	}
	writeJSON(w, http.StatusOK, job.Result)
}

// ExplainResponse is the evaluation trace of one number under a job's best
// assignment.
type ExplainResponse struct {
	Number   int64           `json:"number"`
	Spelling string          `json:"spelling"`
	Formula  string          `json:"formula"`
	Value    float64         `json:"value"`
	Error    float64         `json:"error"`
	Solved   bool            `json:"solved"`
	Guarded  bool            `json:"guarded"`
	Steps    []formula.Step  `json:"steps"`
	Best     *fit.Assignment `json:"best"`
}

// handleExplain handles GET /api/v1/jobs/:id/explain/:n.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request, jobID, raw string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid number: %q", raw))
		return
	}
	if job.Best == nil {
		writeError(w, http.StatusNotFound, "No results yet")
		return
	}

	eval, err := fit.NewEvaluator(n, n, job.Config.Rules, fit.WithNegativeWeight(job.Config.NegativeWeight))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	value, trace, err := eval.Explain(n, job.Best)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	d := value - float64(n)
	writeJSON(w, http.StatusOK, ExplainResponse{
		Number:   n,
		Spelling: words.Spell(n),
		Formula:  trace.Format(job.Config.DecimalPrecision),
		Value:    value,
		Error:    d * d,
		Solved:   d < fit.SolvedTolerance && d > -fit.SolvedTolerance,
		Guarded:  trace.Guarded(),
		Steps:    trace.Steps,
		Best:     job.Best,
	})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	err := s.jobManager.CancelJob(jobID)
	var notRunning *NotRunningError
	switch {
	case errors.Is(err, &NotFoundError{}):
		writeError(w, http.StatusNotFound, "Job not found")
	case errors.As(err, &notRunning):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": jobID, "status": "cancelling"})
	}
}

// handleSchema handles GET /api/v1/schema.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	data, err := opt.Schema()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	http.ServeContent(w, r, "schema.json", time.Time{}, bytes.NewReader(data))
}

// handleSpell handles GET /api/v1/spell/:n and returns the spelling with its
// compiled formula under the server's default rules.
func (s *Server) handleSpell(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/spell/")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid number: %q", raw))
		return
	}

	spelling := words.Spell(n)
	tree, err := formula.Compile(spelling, s.defaults.Rules)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number":   n,
		"spelling": spelling,
		"formula":  tree.String(),
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
