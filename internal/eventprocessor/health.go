// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"context"
	"maps"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	// HealthStatusHealthy indicates all components are functioning normally.
	HealthStatusHealthy HealthStatusType = "healthy"
	// HealthStatusDegraded indicates some components are experiencing issues but still operational.
	HealthStatusDegraded HealthStatusType = "degraded"
	// HealthStatusUnhealthy indicates critical components are failing.
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Healthy   bool           `json:"healthy"`
	Degraded  bool           `json:"degraded,omitempty"`
	Name      string         `json:"name"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	LastCheck time.Time      `json:"last_check"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that support health checking.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// HealthCheckFunc adapts a plain ping to HealthCheckable.
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck implements HealthCheckable.
func (f HealthCheckFunc) HealthCheck(ctx context.Context) ComponentHealth {
	if err := f(ctx); err != nil {
		return ComponentHealth{Healthy: false, Error: err.Error()}
	}
	return ComponentHealth{Healthy: true}
}

// OverallHealth represents the aggregated health status of all components.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs registered checks concurrently, each bounded by a
// timeout.
type HealthChecker struct {
	timeout    time.Duration
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates a health checker. A non-positive timeout
// defaults to 5s.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout:    timeout,
		components: make(map[string]HealthCheckable),
	}
}

// RegisterComponent registers a component for health checking.
func (h *HealthChecker) RegisterComponent(name string, component HealthCheckable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component
}

// CheckAll performs health checks on all registered components.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	components := maps.Clone(h.components)
	h.mu.RUnlock()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(components)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, component := range components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := h.check(ctx, name, component)

			mu.Lock()
			defer mu.Unlock()
			overall.Components[name] = result
			if !result.Healthy {
				overall.Healthy = false
				overall.Status = HealthStatusUnhealthy
			} else if result.Degraded && overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}()
	}
	wg.Wait()

	return overall
}

func (h *HealthChecker) check(ctx context.Context, name string, component HealthCheckable) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resultCh := make(chan ComponentHealth, 1)
	go func() {
		resultCh <- component.HealthCheck(checkCtx)
	}()

	var result ComponentHealth
	select {
	case result = <-resultCh:
	case <-checkCtx.Done():
		result = ComponentHealth{Healthy: false, Error: "health check timeout"}
	}
	result.Name = name
	result.LastCheck = time.Now()
	return result
}

// HealthCheck implements HealthCheckable for Publisher.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{Healthy: false, Error: ErrPublisherClosed.Error()}
	}
	if !p.IsConnected() {
		return ComponentHealth{Healthy: true, Degraded: true, Message: "broker disconnected, direct fallback active"}
	}

	details := map[string]any{}
	if p.circuitBreaker != nil {
		state := p.circuitBreaker.State()
		details["circuit_breaker_state"] = state.String()

		switch state {
		case gobreaker.StateOpen:
			return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker is open, direct fallback active", Details: details}
		case gobreaker.StateHalfOpen:
			return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker is half-open", Details: details}
		}
	}

	return ComponentHealth{Healthy: true, Message: "publisher is operational", Details: details}
}

// HealthCheck implements HealthCheckable for Router.
func (r *Router) HealthCheck(_ context.Context) ComponentHealth {
	if !r.IsRunning() {
		return ComponentHealth{Healthy: false, Error: "router is not running"}
	}
	return ComponentHealth{
		Healthy: true,
		Message: "router is running",
		Details: map[string]any{"handlers": len(r.handlers)},
	}
}

// HealthCheck implements HealthCheckable for Consumer.
func (c *Consumer) HealthCheck(_ context.Context) ComponentHealth {
	stats := c.Stats()
	return ComponentHealth{
		Healthy: true,
		Details: map[string]any{
			"received":     stats.Received,
			"processed":    stats.Processed,
			"deduplicated": stats.Deduplicated,
			"poisoned":     stats.Poisoned,
			"failed":       stats.Failed,
		},
	}
}

// HealthCheck implements HealthCheckable for EmbeddedServer.
func (s *EmbeddedServer) HealthCheck(_ context.Context) ComponentHealth {
	if !s.IsRunning() {
		return ComponentHealth{Healthy: false, Error: "embedded NATS server is not running"}
	}
	if !s.JetStreamEnabled() {
		return ComponentHealth{Healthy: false, Error: "JetStream is not enabled"}
	}
	return ComponentHealth{Healthy: true, Details: map[string]any{"client_url": s.clientURL}}
}

// HealthCheck implements HealthCheckable for StreamInitializer.
func (s *StreamInitializer) HealthCheck(ctx context.Context) ComponentHealth {
	if !s.IsHealthy(ctx) {
		return ComponentHealth{Healthy: false, Error: "stream " + s.config.Name + " is unavailable"}
	}
	return ComponentHealth{Healthy: true, Details: map[string]any{"stream": s.config.Name}}
}
