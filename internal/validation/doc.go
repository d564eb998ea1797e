// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct
// metadata). It validates notification requests before they are published
// or persisted, bus envelopes after decoding, and the loaded configuration.
//
// Field names in errors follow the json tag, falling back to the koanf tag,
// so a failure reads "receiverId is required" or "batch_size must be at
// least 1".
//
// Custom tags:
//   - subject_token: a NATS subject with no wildcards or whitespace.
package validation
