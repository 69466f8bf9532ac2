// Package app wires all callaudit subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithConfigPath, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/callscope/callaudit/internal/api"
	"github.com/callscope/callaudit/internal/audit"
	"github.com/callscope/callaudit/internal/config"
	"github.com/callscope/callaudit/internal/health"
	"github.com/callscope/callaudit/internal/knowledge"
	"github.com/callscope/callaudit/internal/observe"
	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/store"
	"github.com/callscope/callaudit/internal/summary"
	"github.com/callscope/callaudit/internal/transcribe"
	"github.com/callscope/callaudit/pkg/provider/llm"
	"github.com/callscope/callaudit/pkg/provider/stt"
)

// shutdownTimeout bounds the HTTP server drain during Run teardown.
const shutdownTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured; the matching pipeline stage serves 503.
// Populated by main.go via the config registry, usually wrapped in the
// resilience fallback groups.
type Providers struct {
	STT stt.Provider
	LLM llm.Provider
}

// App owns all subsystem lifetimes and serves the audit pipeline over HTTP.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	runs     store.Store
	health   *health.Handler
	metrics  *observe.Metrics
	logLevel *slog.LevelVar
	handler  *swapHandler
	server   *http.Server
	watcher  *config.Watcher

	// configPath enables hot reload when set.
	configPath string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a run store instead of connecting one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.runs = s }
}

// WithConfigPath enables configuration hot reload by watching path.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevel injects the level var backing the process logger so reloads
// can retune it.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: storage connection, rubric
// and knowledge loading, pipeline service construction, and route assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		metrics:   observe.DefaultMetrics(),
		handler:   &swapHandler{},
	}
	for _, o := range opts {
		o(a)
	}
	if a.logLevel == nil {
		a.logLevel = new(slog.LevelVar)
	}

	// ── 1. Run storage ───────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Pipeline services + routes ────────────────────────────────────
	if err := a.rebuildPipeline(cfg); err != nil {
		return nil, fmt.Errorf("app: build pipeline: %w", err)
	}

	// ── 3. Config hot reload ─────────────────────────────────────────────
	if err := a.initWatcher(); err != nil {
		return nil, fmt.Errorf("app: init config watcher: %w", err)
	}

	// ── 4. HTTP server ───────────────────────────────────────────────────
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects the PostgreSQL run store, or falls back to the
// in-memory store when no DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.runs != nil {
		a.health = health.New()
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, runs are not persisted across restarts")
		a.runs = store.NewMemStore()
		a.health = health.New()
		return nil
	}

	pg, pool, err := store.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	a.runs = pg
	a.health = health.New(health.DatabaseChecker("postgres", pool))
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	slog.Info("connected run store", "backend", "postgres")
	return nil
}

// rebuildPipeline constructs the stage services from cfg and swaps the HTTP
// route table in place. Called at startup and again on every hot reload of a
// scoring, knowledge, or transcription section.
func (a *App) rebuildPipeline(cfg *config.Config) error {
	var (
		transcriber *transcribe.Service
		auditor     *audit.Auditor
		summarizer  *summary.Generator
		rb          *rubric.Rubric
		err         error
	)

	if a.providers.STT != nil {
		transcriber, err = transcribe.New(a.providers.STT, transcribe.Config{
			LanguageHints:      cfg.Transcription.LanguageHints,
			DisableDiarization: cfg.Transcription.DisableDiarization,
			MergeThreshold:     cfg.Transcription.MergeThreshold,
			RawSpeakerLabels:   cfg.Transcription.RawSpeakerLabels,
			ContextHints:       cfg.Transcription.ContextHints,
			ContextText:        cfg.Transcription.ContextText,
		})
		if err != nil {
			return err
		}
	}

	if a.providers.LLM != nil {
		if cfg.Scoring.RubricPath != "" {
			rb, err = rubric.Load(cfg.Scoring.RubricPath)
			if err != nil {
				return fmt.Errorf("load rubric: %w", err)
			}

			var auditOpts []audit.Option
			if len(cfg.Scoring.BrandVariants) > 0 {
				auditOpts = append(auditOpts, audit.WithBrandChecker(audit.NewBrandChecker(cfg.Scoring.BrandVariants)))
			}
			policy := scoring.DefaultFatalPolicy()
			if len(cfg.Scoring.FatalCriteria) > 0 {
				policy = scoring.NewFatalPolicy(cfg.Scoring.FatalCriteria...)
			}
			auditor, err = audit.New(a.providers.LLM, policy, auditOpts...)
			if err != nil {
				return err
			}
			slog.Info("rubric loaded",
				"title", rb.Title,
				"version", rb.Version,
				"mode", string(rb.Mode()),
				"fatal_criteria", len(cfg.Scoring.FatalCriteria))
		} else {
			slog.Warn("llm provider configured without scoring.rubric_path, scoring disabled")
		}

		summarizer, err = summary.New(a.providers.LLM)
		if err != nil {
			return err
		}
	}

	srv, err := api.New(api.Config{
		Transcriber: transcriber,
		Auditor:     auditor,
		Summarizer:  summarizer,
		Store:       a.runs,
		Rubric:      rb,
		Knowledge:   a.loadKnowledge(cfg),
		Health:      a.health,
		Metrics:     a.metrics,
	})
	if err != nil {
		return err
	}
	a.handler.swap(srv.Handler())
	return nil
}

// loadKnowledge renders the advisory knowledge blocks for the scoring
// prompt. Every source is optional; a missing or broken file degrades to
// the renderer's "not available" placeholder rather than failing startup.
func (a *App) loadKnowledge(cfg *config.Config) audit.PromptInputs {
	var in audit.PromptInputs

	var base *knowledge.Base
	if path := cfg.Knowledge.CombinedPath; path != "" {
		var err error
		base, err = knowledge.LoadBase(path)
		if err != nil {
			slog.Warn("failed to load knowledge base, scoring without it", "path", path, "err", err)
		}
	}
	in.FactSheet = knowledge.FactSheet(base)
	in.FAQSheet = knowledge.FAQSheet(knowledge.LoadFAQ(cfg.Knowledge.FAQPaths))

	script, err := knowledge.LoadScript(cfg.Knowledge.ScriptPath)
	if err != nil {
		slog.Warn("failed to load calling script", "path", cfg.Knowledge.ScriptPath, "err", err)
	}
	in.Script = script

	return in
}

// initWatcher starts the config file watcher when a config path was given.
func (a *App) initWatcher() error {
	if a.configPath == "" {
		return nil
	}
	w, err := config.NewWatcher(a.configPath, a.onConfigChange)
	if err != nil {
		return err
	}
	a.watcher = w
	a.closers = append(a.closers, func() error {
		w.Stop()
		return nil
	})
	slog.Info("config hot reload enabled", "path", a.configPath)
	return nil
}

// onConfigChange applies a validated config revision. Only the log level
// and the scoring, knowledge, and transcription sections reload in place;
// provider and storage changes require a restart.
func (a *App) onConfigChange(old, new *config.Config) {
	diff := config.Diff(old, new)
	if !diff.Any() {
		slog.Info("config file changed but no reloadable section differs, restart to apply")
		return
	}

	if diff.LogLevelChanged {
		a.logLevel.Set(SlogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}

	if diff.ScoringChanged || diff.KnowledgeChanged || diff.TranscriptionChanged {
		if err := a.rebuildPipeline(new); err != nil {
			slog.Error("config reload failed, keeping previous pipeline", "err", err)
			return
		}
		slog.Info("pipeline reloaded",
			"scoring", diff.ScoringChanged,
			"knowledge", diff.KnowledgeChanged,
			"transcription", diff.TranscriptionChanged)
	}

	a.cfg = new
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
// It returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tls := a.cfg.Server.TLS
		slog.Info("http server listening", "addr", a.server.Addr, "tls", tls != nil)

		var err error
		if tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Handler exposes the route table, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.handler
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// SlogLevel converts a config.LogLevel to its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// swapHandler lets the hot reload path replace the route table without
// restarting the listener.
type swapHandler struct {
	mu sync.RWMutex
	h  http.Handler
}

func (s *swapHandler) swap(h http.Handler) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.h
	s.mu.RUnlock()
	if h == nil {
		http.Error(w, "service initialising", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}
