// Package server exposes the HTTP surface: causal queries (sync and SSE),
// derivative artifact generation, the dataset view and the findings archive.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asktra-labs/asktra/internal/artifacts"
	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/pipeline"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/internal/resilience"
	"github.com/asktra-labs/asktra/internal/store"
	"github.com/asktra-labs/asktra/pkg/llm"
)

// Options wires the server's collaborators.
type Options struct {
	Pipeline *pipeline.Pipeline
	Data     *dataset.Provider
	Prompts  *prompts.Store
	// Client answers artifact requests; BundleClient answers bundle
	// requests and falls back to Client when nil.
	Client       llm.Client
	BundleClient llm.Client
	// Archive may be nil; the findings endpoints then 404.
	Archive store.Store

	BundleFallback bool
	AllowedOrigins []string
}

// Server handles HTTP requests.
type Server struct {
	opts Options
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.BundleClient == nil {
		opts.BundleClient = opts.Client
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{opts: opts}
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/dataset", s.handleDataset)
	r.Post("/ask", s.handleAsk)
	r.Post("/ask-stream", s.handleAskStream)
	r.Post("/emit-docs", s.handleEmitDocs)
	r.Post("/emit-reconciliation-patch", s.handleEmitReconciliationPatch)
	r.Post("/reconciliation-bundle", s.handleBundle)
	r.Get("/findings", s.handleListFindings)
	r.Get("/findings/{id}", s.handleGetFinding)

	return r
}

// requestLogger logs each request with its id, path and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"error": detail})
}

// statusFor maps failures to HTTP statuses: client input errors are 400,
// missing credentials and transient upstream conditions are 503, the rest
// is 500.
func statusFor(err error) int {
	switch {
	case eris.Is(err, artifacts.ErrInvalidInput):
		return http.StatusBadRequest
	case eris.Is(err, llm.ErrNoCredential):
		return http.StatusServiceUnavailable
	case resilience.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondFailure(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "asktra",
		"endpoints": []string{
			"POST /ask",
			"POST /ask-stream",
			"POST /emit-docs",
			"POST /emit-reconciliation-patch",
			"POST /reconciliation-bundle",
			"GET /dataset",
			"GET /findings",
			"GET /findings/{id}",
			"GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "asktra"})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.opts.Data.Load(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ds)
}
