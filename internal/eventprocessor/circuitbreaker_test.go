// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stitchboard/internal/metrics"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

var errBoom = errors.New("boom")

func TestNewCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cfg := DefaultCircuitBreakerConfig("test-open")
	cfg.FailureThreshold = 3
	cb := NewCircuitBreaker(nopLogger(), cfg)

	if got := CircuitBreakerState(cb); got != "closed" {
		t.Fatalf("Expected closed breaker, got %s", got)
	}

	for range 3 {
		_, _ = cb.Execute(func() (any, error) { return nil, errBoom })
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open breaker, got %s", cb.State())
	}
	if _, err := cb.Execute(func() (any, error) { return nil, nil }); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")); got != 2 {
		t.Errorf("Expected state gauge 2, got %v", got)
	}
}

func TestNewCircuitBreaker_Recovers(t *testing.T) {
	t.Parallel()

	cfg := DefaultCircuitBreakerConfig("test-recover")
	cfg.FailureThreshold = 1
	cfg.MaxRequests = 1
	cfg.Timeout = 20 * time.Millisecond
	cb := NewCircuitBreaker(nopLogger(), cfg)

	_, _ = cb.Execute(func() (any, error) { return nil, errBoom })
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open breaker, got %s", cb.State())
	}

	time.Sleep(40 * time.Millisecond)
	if cb.State() != gobreaker.StateHalfOpen {
		t.Fatalf("Expected half-open breaker, got %s", cb.State())
	}

	if _, err := cb.Execute(func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("Expected closed breaker after the half-open request, got %s", cb.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-recover")); got != 0 {
		t.Errorf("Expected state gauge 0, got %v", got)
	}
}
