// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import "errors"

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrNilPublisher is returned when a publisher is built around nil.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrPublisherClosed is returned by publishes after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrUnsupportedSchemaVersion marks an envelope this build cannot decode.
var ErrUnsupportedSchemaVersion = errors.New("unsupported envelope schema version")

// ErrEmptyPayload marks a bus message with no body.
var ErrEmptyPayload = errors.New("empty message payload")

// ErrUnknownEventKind marks a domain event envelope of a kind this build
// does not handle.
var ErrUnknownEventKind = errors.New("unknown domain event kind")
