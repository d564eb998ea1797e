// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeRunner blocks in Run until ctx is canceled, unless runErr is set.
type fakeRunner struct {
	runErr  error
	started chan struct{}
	closed  atomic.Int32
}

func newFakeRunner(runErr error) *fakeRunner {
	return &fakeRunner{runErr: runErr, started: make(chan struct{})}
}

func (r *fakeRunner) Run(ctx context.Context) error {
	close(r.started)
	if r.runErr != nil {
		return r.runErr
	}
	<-ctx.Done()
	return nil
}

func (r *fakeRunner) Close() error {
	r.closed.Add(1)
	return nil
}

func TestBusConsumerService_StopsOnCancel(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner(nil)
	svc := NewBusConsumerService(nopLogger(), func() (BusRunner, error) { return runner, nil }, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("Runner did not start")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if runner.closed.Load() != 1 {
		t.Errorf("Expected runner closed once, got %d", runner.closed.Load())
	}
}

func TestBusConsumerService_Failures(t *testing.T) {
	t.Parallel()

	errBuild := errors.New("nats unavailable")
	errRun := errors.New("subscribe failed")

	tests := []struct {
		name    string
		factory BusRunnerFactory
		want    error
	}{
		{
			name:    "factory error",
			factory: func() (BusRunner, error) { return nil, errBuild },
			want:    errBuild,
		},
		{
			name:    "run error",
			factory: func() (BusRunner, error) { return newFakeRunner(errRun), nil },
			want:    errRun,
		},
		{
			name: "run returns nil early",
			factory: func() (BusRunner, error) {
				return &earlyExitRunner{}, nil
			},
			want: ErrRunnerStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewBusConsumerService(nopLogger(), tt.factory, time.Second)
			err := svc.Serve(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

type earlyExitRunner struct{}

func (earlyExitRunner) Run(context.Context) error { return nil }
func (earlyExitRunner) Close() error              { return nil }

func TestBusConsumerService_RebuildsRunnerOnRestart(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	factory := func() (BusRunner, error) {
		if builds.Add(1) < 3 {
			return newFakeRunner(errors.New("transient")), nil
		}
		return newFakeRunner(nil), nil
	}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewBusConsumerService(nopLogger(), factory, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for builds.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if got := builds.Load(); got < 3 {
		t.Errorf("Expected a fresh runner per restart (>=3 builds), got %d", got)
	}
}

func TestNewBusConsumerService_DefaultTimeout(t *testing.T) {
	t.Parallel()

	svc := NewBusConsumerService(nopLogger(), nil, 0)
	if svc.closeTimeout != 30*time.Second {
		t.Errorf("Expected 30s, got %v", svc.closeTimeout)
	}
	if svc.String() != "bus-consumer" {
		t.Errorf("Expected bus-consumer, got %s", svc.String())
	}
}
