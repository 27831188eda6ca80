// Package server implements the structmine HTTP API.
//
// The API exposes the detection pipeline over HTTP: clients POST raw MPS
// text and receive the ranked decompositions as JSON. Completed runs are
// persisted through a store.Store so run history is queryable.
//
// # Endpoints
//
//   - GET  /healthz            liveness probe
//   - POST /api/detect         run detection on an MPS body
//   - GET  /api/runs           list recorded runs
//   - GET  /api/runs/{id}      fetch one recorded run
//
// Detection runs are serialized with a mutex: the pipeline is CPU-bound and
// the incidence matrix of a large model dominates memory, so concurrent
// detections would thrash rather than help.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/structmine/structmine/pkg/cache"
	"github.com/structmine/structmine/pkg/pipeline"
	"github.com/structmine/structmine/pkg/store"
)

// maxModelBytes caps the accepted MPS body size.
const maxModelBytes = 64 << 20

// Config configures the API server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Cache backs the detection cache. Nil disables caching.
	Cache cache.Cache

	// Keyer derives cache keys. Nil uses the default keyer; deployments
	// sharing one Redis wrap it in a cache.ScopedKeyer.
	Keyer cache.Keyer

	// Store persists run records. Nil falls back to an in-memory store.
	Store store.Store

	// Logger receives request and pipeline logs. Nil uses log.Default().
	Logger *log.Logger

	// ReadTimeout and WriteTimeout bound request handling. Detection on
	// large models is slow, so the write timeout defaults generously.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ValidateAndSetDefaults checks required fields and applies defaults.
func (c *Config) ValidateAndSetDefaults() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Store == nil {
		c.Store = store.NewMemoryStore()
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Minute
	}
	return nil
}

// Server is the structmine HTTP API server.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	router chi.Router

	// detectMu serializes detection runs.
	detectMu sync.Mutex
}

// New creates a server with all routes registered.
func New(cfg Config) (*Server, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		runner: pipeline.NewRunner(cfg.Cache, cfg.Keyer, cfg.Logger),
		store:  cfg.Store,
		logger: cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/detect", s.handleDetect)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	s.router = r

	return s, nil
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
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

// Close releases the server's pipeline and store resources.
func (s *Server) Close(ctx context.Context) error {
	err := s.runner.Close()
	if serr := s.store.Close(ctx); err == nil {
		err = serr
	}
	return err
}

// logRequests logs one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDetect runs the detection pipeline on the request body.
//
// Query parameters:
//   - name:       model name when the MPS header carries none
//   - score:      ranking score (default "classic")
//   - max_rounds: detector rounds
//   - detectors:  comma-separated detector names
//   - refresh:    bypass the detection cache when "true"
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxModelBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty request body, expected MPS text"))
		return
	}
	if len(body) > maxModelBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("model exceeds %d bytes", maxModelBytes))
		return
	}

	opts, err := optionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts.Source = body
	opts.Logger = s.logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.detectMu.Lock()
	start := time.Now()
	result, err := s.runner.Execute(r.Context(), opts)
	duration := time.Since(start)
	s.detectMu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	rec := newRunRecord(&opts, result, duration)
	if err := s.store.SaveRun(r.Context(), rec); err != nil {
		s.logger.Warnf("Could not persist run %s: %v", rec.ID, err)
	}

	writeJSON(w, http.StatusOK, newDetectResponse(rec, result))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	recs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": recs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// optionsFromQuery builds pipeline options from detect query parameters.
func optionsFromQuery(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Name:  q.Get("name"),
		Score: q.Get("score"),
	}
	if raw := q.Get("max_rounds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid max_rounds %q", raw)
		}
		opts.MaxRounds = n
	}
	if raw := q.Get("detectors"); raw != "" {
		opts.Detectors = strings.Split(raw, ",")
	}
	if q.Get("refresh") == "true" {
		opts.Refresh = true
	}
	return opts, nil
}

// newRunRecord summarizes a pipeline result for persistence.
func newRunRecord(opts *pipeline.Options, result *pipeline.Result, duration time.Duration) *store.RunRecord {
	rec := &store.RunRecord{
		ID:        uuid.NewString(),
		Model:     result.Model.Name(),
		ModelHash: result.ModelHash,
		NConss:    result.Stats.NConss,
		NVars:     result.Stats.NVars,
		NNonzeros: result.Stats.NNonzeros,
		NDecomps:  len(result.Decomps),
		Detectors: opts.EnabledDetectors(),
		Duration:  duration,
		CreatedAt: time.Now().UTC(),
	}
	if result.Best != nil {
		rec.Best = store.BestDecomp{
			NBlocks:    result.Best.NBlocks(),
			NMaster:    len(result.Best.Masterconss()),
			NLinking:   len(result.Best.Linkingvars()),
			Score:      opts.Score,
			ScoreValue: result.BestValue,
		}
	}
	return rec
}
