// Package api implements the HTTP gateway of the report engine. Handlers are
// methods on *Server. The gateway owns everything the engine does not:
// authentication, request decoding, the render pool, response streaming,
// metrics and the render audit log.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/nyashahama/risk-report-engine/internal/metrics"
	"github.com/nyashahama/risk-report-engine/internal/report"
	"github.com/nyashahama/risk-report-engine/internal/store"
	"github.com/nyashahama/risk-report-engine/internal/worker"
)

// ─── COLLABORATOR INTERFACES ──────────────────────────────────────────────────

// Renderer is the engine surface the handlers need. *report.Engine satisfies
// it; tests substitute stubs.
type Renderer interface {
	RenderCustomerRequest(req report.CustomerRequest) (*report.Rendered, error)
	RenderBulk(req report.BulkRequest) (*report.Rendered, error)
	RenderPlaceholder(reportID string) (*report.Rendered, error)
}

// RenderLog records successful renders. *store.Store and store.Discard
// satisfy it.
type RenderLog interface {
	RecordRender(ctx context.Context, rec store.RenderRecord) (store.RenderEntry, error)
}

// ─── SERVER ───────────────────────────────────────────────────────────────────

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// CORSAllowedOrigin is echoed in Access-Control-Allow-Origin.
	CORSAllowedOrigin string

	// MaxBodyBytes caps request bodies. Customer requests carry base64 chart
	// images, so this is far above a typical JSON API limit.
	MaxBodyBytes int64

	// JWTSecret verifies HS256 bearer tokens. Empty disables authentication.
	JWTSecret string

	// JWTIssuer, when set, must match the token's "iss" claim.
	JWTIssuer string

	// RequestTimeout bounds each request end to end. It should exceed the
	// render pool's per-render deadline.
	RequestTimeout time.Duration
}

// Server holds all shared dependencies.
type Server struct {
	engine   Renderer
	pool     worker.Executor
	log      RenderLog
	metrics  *metrics.Metrics
	validate *validator.Validate

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(
	engine Renderer,
	pool worker.Executor,
	renderLog RenderLog,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 20 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if renderLog == nil {
		renderLog = store.Discard{}
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank rejects whitespace-only ids, which "required" lets through.
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	s := &Server{
		engine:   engine,
		pool:     pool,
		log:      renderLog,
		metrics:  m,
		validate: v,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health and metrics ────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// ── Reports ───────────────────────────────────────────────────────────────
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/generate", s.handleGenerate)
		r.Post("/bulk-generate", s.handleBulkGenerate)
		r.Get("/download/{reportId}", s.handleDownload)
	})

	return r
}
