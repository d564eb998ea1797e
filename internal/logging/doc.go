// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package logging provides centralized zerolog-based structured logging for Stitchboard.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Err(err).Msg("Failed to open store")
//
// Components take a *zerolog.Logger and tag it with their name:
//
//	d.logger = logging.Component(logger, "fanout")
//
// Passing nil selects the global logger; tests pass a pointer to zerolog.Nop().
//
// # Context
//
// Correlation and bus event IDs travel in context.Context and are added to
// entries by Ctx:
//
//	ctx = logging.ContextWithEventID(ctx, env.EventID)
//	logging.Ctx(ctx).Warn().Err(err).Msg("Delivery failed")
//
// The acting user is never read from context. Operations that need it take
// it as an explicit argument.
//
// # Adapters
//
//   - SlogHandler: slog.Handler for sutureslog (supervisor events).
//   - WatermillAdapter: watermill.LoggerAdapter for the NATS publisher and
//     subscriber.
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send(), and prefer structured
// fields over formatted strings:
//
//	logging.Info().Str("receiver_id", id).Int("batch", n).Msg("Batch dispatched")
package logging
