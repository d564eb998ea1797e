// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/stitchboard/internal/eventprocessor"
)

// ReadinessChecker reports the health of the service's dependencies.
// *eventprocessor.HealthChecker satisfies it.
type ReadinessChecker interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	readiness ReadinessChecker
	timeout   time.Duration
	startTime time.Time
}

// NewHealthHandlers creates the health handlers. A nil readiness checker
// makes /health/ready always report ready.
func NewHealthHandlers(readiness ReadinessChecker, timeout time.Duration) *HealthHandlers {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HealthHandlers{
		readiness: readiness,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// Live reports that the process is up. It never touches dependencies.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &Response{
		Status: "success",
		Data: map[string]any{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
	})
}

// Ready returns 200 while every dependency is healthy or degraded, and
// 503 otherwise. A degraded bus still serves traffic through the direct
// fallback.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if h.readiness == nil {
		respondJSON(w, r, http.StatusOK, &Response{
			Status: "ready",
			Data:   map[string]any{"ready_to_serve": true},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	health := h.readiness.CheckAll(ctx)

	statusCode := http.StatusOK
	status := "ready"
	if !health.Healthy {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, r, statusCode, &Response{
		Status: status,
		Data:   health,
	})
}
