// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
)

// ErrRunnerStopped is returned when the bus consumer stops on its own.
var ErrRunnerStopped = errors.New("bus consumer stopped unexpectedly")

// BusRunner is one run of the bus consumer, typically a message router
// bound to its subscriber. Run blocks until ctx is canceled or the runner
// fails; Close releases it.
type BusRunner interface {
	Run(ctx context.Context) error
	Close() error
}

// BusRunnerFactory builds a fresh runner. A watermill router cannot be run
// again once closed, so every restart needs a new one.
type BusRunnerFactory func() (BusRunner, error)

// BusConsumerService supervises the notification bus consumer.
type BusConsumerService struct {
	factory      BusRunnerFactory
	closeTimeout time.Duration
	name         string
	logger       zerolog.Logger
}

// NewBusConsumerService creates the service. A non-positive closeTimeout
// means 30s.
func NewBusConsumerService(logger *zerolog.Logger, factory BusRunnerFactory, closeTimeout time.Duration) *BusConsumerService {
	if closeTimeout <= 0 {
		closeTimeout = 30 * time.Second
	}
	return &BusConsumerService{
		factory:      factory,
		closeTimeout: closeTimeout,
		name:         "bus-consumer",
		logger:       logging.Component(logger, "bus_service"),
	}
}

// Serve implements suture.Service. Build and run failures are returned so
// the supervisor restarts the consumer with backoff.
func (s *BusConsumerService) Serve(ctx context.Context) error {
	runner, err := s.factory()
	if err != nil {
		return fmt.Errorf("build bus consumer: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Run(ctx)
	}()
	s.logger.Info().Msg("Bus consumer started")

	select {
	case runErr := <-errCh:
		s.close(runner)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if runErr == nil {
			return ErrRunnerStopped
		}
		return fmt.Errorf("bus consumer failed: %w", runErr)

	case <-ctx.Done():
		s.close(runner)
		select {
		case <-errCh:
		case <-time.After(s.closeTimeout):
			s.logger.Warn().Dur("timeout", s.closeTimeout).Msg("Bus consumer did not stop in time")
		}
		s.logger.Info().Msg("Bus consumer stopped")
		return ctx.Err()
	}
}

func (s *BusConsumerService) close(runner BusRunner) {
	if err := runner.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Closing bus consumer failed")
	}
}

// String implements fmt.Stringer.
func (s *BusConsumerService) String() string {
	return s.name
}
