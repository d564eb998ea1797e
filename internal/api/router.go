// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures the operational HTTP surface.
type RouterConfig struct {
	// HealthRateLimit is the per-IP request limit per minute on /health.
	// 0 disables limiting.
	HealthRateLimit int

	// ReadinessTimeout bounds one /health/ready evaluation.
	ReadinessTimeout time.Duration

	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the chi router:
//
//	GET /health/live
//	GET /health/ready
//	GET /metrics
func NewRouter(cfg RouterConfig, readiness ReadinessChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)
	r.Use(PrometheusMetrics)

	health := NewHealthHandlers(readiness, cfg.ReadinessTimeout)
	r.Route("/health", func(r chi.Router) {
		r.Use(RateLimitByIP(cfg.HealthRateLimit, time.Minute))
		r.Use(SecurityHeaders())
		r.Get("/live", health.Live)
		r.Get("/ready", health.Ready)
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return r
}
