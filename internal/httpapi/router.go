// Package httpapi exposes the scheduler-facing trigger routes.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pulsex-swap-sync/internal/export"
	"pulsex-swap-sync/internal/observability"
	"pulsex-swap-sync/internal/swapsync"
)

// Runner performs one invocation per call.
type Runner interface {
	Sync(ctx context.Context) (*swapsync.Result, error)
	Export(ctx context.Context) (*export.Result, error)
}

// Handler serves the trigger routes and tracks the outcome of recent runs.
type Handler struct {
	runner  Runner
	logger  *zap.Logger
	started time.Time
	now     func() time.Time

	mu     sync.Mutex
	status Status
}

// Status is the JSON body of GET /status.
type Status struct {
	Uptime          string    `json:"uptime"`
	SyncRuns        int       `json:"sync_runs"`
	SyncFailures    int       `json:"sync_failures"`
	LastSyncAt      time.Time `json:"last_sync_at,omitempty"`
	LastSyncMessage string    `json:"last_sync_message,omitempty"`
	LastSyncError   string    `json:"last_sync_error,omitempty"`
	LastWatermark   int64     `json:"last_watermark"`
	ExportRuns      int       `json:"export_runs"`
	LastExportAt    time.Time `json:"last_export_at,omitempty"`
	LastExportError string    `json:"last_export_error,omitempty"`
}

// NewHandler creates a Handler.
func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		runner:  runner,
		logger:  logger,
		started: time.Now(),
		now:     time.Now,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(noStore)

	r.Get("/api/cron", h.handleSync)
	r.Get("/api/cron/export", h.handleExport)
	r.Get("/status", h.handleStatus)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())

	return r
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Sync(r.Context())

	h.mu.Lock()
	h.status.SyncRuns++
	h.status.LastSyncAt = h.now().UTC()
	if err != nil {
		h.status.SyncFailures++
		h.status.LastSyncError = err.Error()
		h.status.LastSyncMessage = ""
	} else {
		h.status.LastSyncError = ""
		h.status.LastSyncMessage = result.Message()
		h.status.LastWatermark = result.LatestTimestamp
	}
	h.mu.Unlock()

	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, h.logger, result.Message())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Export(r.Context())

	h.mu.Lock()
	h.status.ExportRuns++
	h.status.LastExportAt = h.now().UTC()
	h.status.LastExportError = ""
	if err != nil {
		h.status.LastExportError = err.Error()
	}
	h.mu.Unlock()

	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, h.logger, result.Message())
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	status := h.status
	h.mu.Unlock()

	status.Uptime = h.now().Sub(h.started).Truncate(time.Second).String()
	writeJSON(w, h.logger, http.StatusOK, status)
}

// noStore disables caching of trigger responses.
func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
