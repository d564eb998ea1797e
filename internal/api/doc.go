// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package api is the operational HTTP surface: liveness and readiness
// endpoints plus the Prometheus scrape endpoint, routed with chi.
//
// Notifications themselves are produced by domain events and read through
// notify.Inbox; there is no REST API for them here.
//
// Readiness aggregates the registered health checks (store, NATS server,
// stream, publisher, consumer router). Degraded components still count as
// ready because bus failures fall back to direct delivery.
package api
