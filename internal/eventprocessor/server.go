// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
)

// serverReadyTimeout bounds how long NewEmbeddedServer waits for the
// listener.
const serverReadyTimeout = 30 * time.Second

// EmbeddedServer wraps the NATS server with lifecycle management.
// It gives single-instance deployments a JetStream broker with no external
// dependency.
type EmbeddedServer struct {
	server    *server.Server
	config    ServerConfig
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server with
// JetStream enabled. A Port of -1 picks a random free port.
func NewEmbeddedServer(logger *zerolog.Logger, cfg *ServerConfig) (*EmbeddedServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: server config required", ErrInvalidConfig)
	}

	opts := &server.Options{
		ServerName:         "stitchboard",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		MaxPayload:         1024 * 1024, // 1MB
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLoggerV2(&natsLogger{logger: logging.Component(logger, "nats_server")}, false, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, errors.New("NATS server not ready within timeout")
	}

	return &EmbeddedServer{
		server:    ns,
		config:    *cfg,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it to exit or ctx to end.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		s.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// JetStreamEnabled returns whether JetStream is enabled.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.server.JetStreamEnabled()
}

// natsLogger routes nats-server log lines into zerolog.
type natsLogger struct {
	logger zerolog.Logger
}

func (l *natsLogger) Noticef(format string, v ...any) { l.logger.Info().Msgf(format, v...) }
func (l *natsLogger) Warnf(format string, v ...any)   { l.logger.Warn().Msgf(format, v...) }
func (l *natsLogger) Errorf(format string, v ...any)  { l.logger.Error().Msgf(format, v...) }
func (l *natsLogger) Debugf(format string, v ...any)  { l.logger.Debug().Msgf(format, v...) }
func (l *natsLogger) Tracef(format string, v ...any)  { l.logger.Trace().Msgf(format, v...) }

// Fatalf logs at error level and leaves process exit to the supervisor.
func (l *natsLogger) Fatalf(format string, v ...any) { l.logger.Error().Msgf(format, v...) }
