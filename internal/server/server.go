// Package server implements the HTTP transport for the Radagast gateway:
// the data plane on the main port and the admin control plane on its own port.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugener/radagast/internal/admin"
	"github.com/eugener/radagast/internal/analytics"
	"github.com/eugener/radagast/internal/app"
	"github.com/eugener/radagast/internal/promptcache"
	"github.com/eugener/radagast/internal/provider"
	"github.com/eugener/radagast/internal/ratelimit"
	"github.com/eugener/radagast/internal/telemetry"
)

// Deps holds all dependencies for both HTTP planes.
type Deps struct {
	Dispatcher *app.Dispatcher
	Registry   *provider.Registry
	Cache      *promptcache.Cache
	Limiter    *ratelimit.Limiter
	Stats      *analytics.Aggregator
	State      *admin.State
	Metrics    *telemetry.Metrics  // nil = no metrics middleware
	Gatherer   prometheus.Gatherer // nil = /metrics disabled
}

// New creates the data-plane handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Post("/chat", s.handleChat)

	return r
}

// NewAdmin creates the control-plane handler. It shares the middleware stack
// but never the chat route: operational traffic stays off the data port.
func NewAdmin(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/dashboard", s.handleDashboard)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/admin", func(r chi.Router) {
		r.Get("/system-prompt", s.handleGetSystemPrompt)
		r.Put("/system-prompt", s.handleSetSystemPrompt)
		r.Get("/guardrails", s.handleGetGuardrails)
		r.Put("/guardrails", s.handleSetGuardrails)
		r.Get("/rate-limit", s.handleGetRateLimit)
		r.Put("/rate-limit", s.handleSetRateLimit)
		r.Delete("/rate-limit", s.handleDeleteRateLimit)
		r.Get("/logging", s.handleGetLogging)
		r.Put("/logging", s.handleSetLogging)
		r.Get("/verbose", s.handleGetVerbose)
		r.Put("/verbose", s.handleSetVerbose)
		r.Get("/cache", s.handleGetCache)
		r.Delete("/cache", s.handleFlushCache)
		r.Get("/stats", s.handleStats)
		r.Get("/providers", s.handleProviders)
	})

	return r
}

type server struct {
	deps Deps
}

var (
	okBody  = []byte("ok")
	plainCT = []string{"text/plain"}
)

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}
