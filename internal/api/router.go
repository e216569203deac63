package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/mutker/netpulse/internal/cache"
	"codeberg.org/mutker/netpulse/internal/logger"
	"codeberg.org/mutker/netpulse/internal/remediation"
	"codeberg.org/mutker/netpulse/internal/store"
)

// Remediator triggers a device power cycle and reports its terminal
// outcome. Satisfied by remediation.Controller.
type Remediator interface {
	Run(ctx context.Context, reason string) (remediation.Result, error)
}

// Liveness reports the last connectivity probe result. Satisfied by
// probe.Watcher.
type Liveness interface {
	Up() bool
}

// Handler is the HTTP surface over the read path and the remediation
// trigger.
type Handler struct {
	store      store.Store
	cache      *cache.Service
	remediator Remediator
	liveness   Liveness
}

func NewHandler(st store.Store, cacheSvc *cache.Service, remediator Remediator, liveness Liveness) *Handler {
	return &Handler{
		store:      st,
		cache:      cacheSvc,
		remediator: remediator,
		liveness:   liveness,
	}
}

// NewRouter registers all routes behind the shared middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aggregate", handler.aggregateWindow)
		r.Get("/status", handler.status)
		r.Post("/remediate", handler.remediate)
	})

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
