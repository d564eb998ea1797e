// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	eventIDKey       contextKey = "event_id"
	loggerKey        contextKey = "logger"
)

// GenerateCorrelationID returns a short random ID for log correlation.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns ctx carrying the correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns ctx carrying a fresh correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithEventID tags ctx with the bus event being processed.
func ContextWithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext returns the bus event ID or "".
func EventIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger stored in ctx, or the global one.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the correlation_id and event_id from ctx attached.
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Bus publish failed")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith returns a context builder pre-populated from ctx.
func CtxWith(ctx context.Context) zerolog.Context {
	return withIDs(ctx, LoggerFromContext(ctx).With())
}

// Enrich attaches the correlation_id and event_id from ctx to a component
// logger.
//
//	log := logging.Enrich(ctx, t.logger)
//	log.Warn().Err(err).Msg("Bus publish failed")
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Enrich(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	return withIDs(ctx, logger.With()).Logger()
}

func withIDs(ctx context.Context, logCtx zerolog.Context) zerolog.Context {
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := EventIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("event_id", id)
	}
	return logCtx
}

// WithComponent creates a child of the global logger tagged with component.
//
//	logger := logging.WithComponent("fanout")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

// Component tags logger with component, using the global logger when
// logger is nil.
//
//	m.logger = logging.Component(logger, "fanout")
func Component(logger *zerolog.Logger, component string) zerolog.Logger {
	if logger == nil {
		return WithComponent(component)
	}
	return logger.With().Str("component", component).Logger()
}
