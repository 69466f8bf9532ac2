// Package api exposes the audit pipeline over HTTP.
//
// The surface is deliberately small: one endpoint per pipeline stage
// (transcribe, score, summarize) plus run retrieval, health probes, and the
// Prometheus metrics bridge. Stage endpoints accept either a persisted run id
// or inline payloads, so the service works both as a stateful pipeline and as
// a stateless scoring oracle.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callscope/callaudit/internal/audit"
	"github.com/callscope/callaudit/internal/health"
	"github.com/callscope/callaudit/internal/observe"
	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/store"
	"github.com/callscope/callaudit/internal/summary"
	"github.com/callscope/callaudit/internal/transcribe"
)

// defaultMaxUploadBytes caps multipart audio uploads at 100 MiB.
const defaultMaxUploadBytes = 100 << 20

// Config carries the dependencies for a Server. Store is required; the
// stage services are optional and their endpoints return 503 when absent,
// so a deployment without (say) an STT provider still serves scoring.
type Config struct {
	Transcriber *transcribe.Service
	Auditor     *audit.Auditor
	Summarizer  *summary.Generator
	Store       store.Store
	Rubric      *rubric.Rubric

	// Knowledge holds the pre-rendered knowledge blocks injected into every
	// scoring prompt.
	Knowledge audit.PromptInputs

	Health  *health.Handler
	Metrics *observe.Metrics

	// MaxUploadBytes overrides the upload cap. Zero means the default.
	MaxUploadBytes int64
}

// Server routes HTTP requests to the pipeline services.
type Server struct {
	transcriber *transcribe.Service
	auditor     *audit.Auditor
	summarizer  *summary.Generator
	runs        store.Store
	rubric      *rubric.Rubric
	knowledge   audit.PromptInputs
	health      *health.Handler
	metrics     *observe.Metrics
	maxUpload   int64
}

// New creates a Server from cfg. The store must be non-nil.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("api: store must not be nil")
	}
	if cfg.Auditor != nil && cfg.Rubric == nil {
		return nil, errors.New("api: auditor configured without a rubric")
	}
	s := &Server{
		transcriber: cfg.Transcriber,
		auditor:     cfg.Auditor,
		summarizer:  cfg.Summarizer,
		runs:        cfg.Store,
		rubric:      cfg.Rubric,
		knowledge:   cfg.Knowledge,
		health:      cfg.Health,
		metrics:     cfg.Metrics,
		maxUpload:   cfg.MaxUploadBytes,
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUploadBytes
	}
	return s, nil
}

// Handler builds the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/transcriptions", s.handleTranscribe)
	mux.HandleFunc("POST /v1/scores", s.handleScore)
	mux.HandleFunc("POST /v1/summaries", s.handleSummarize)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)

	return observe.Middleware(s.metrics)(mux)
}

// errorEnvelope is the JSON body of every non-2xx response.
type errorEnvelope struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
