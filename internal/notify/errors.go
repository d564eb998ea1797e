// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"errors"
	"fmt"

	"github.com/tomtom215/stitchboard/internal/store"
)

// ErrNotFound is returned when a referenced user or record does not exist.
// It is the store sentinel, so errors.Is works across both packages.
var ErrNotFound = store.ErrNotFound

// ErrFanOutTimeout marks a broadcast whose batches did not finish before the
// join deadline. It is logged, never returned: see FanOutResult.TimedOut.
var ErrFanOutTimeout = errors.New("fan-out join timed out")

// TransportError is a failed bus publish. BusTransport recovers from it by
// falling back to direct delivery.
type TransportError struct {
	Subject string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bus publish to %s failed: %v", e.Subject, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BatchTaskError is a failed delivery to one recipient of a broadcast.
// It is logged per recipient and does not stop the batch.
type BatchTaskError struct {
	Batch       int
	RecipientID string
	Err         error
}

func (e *BatchTaskError) Error() string {
	return fmt.Sprintf("batch %d: delivery to %s failed: %v", e.Batch, e.RecipientID, e.Err)
}

func (e *BatchTaskError) Unwrap() error {
	return e.Err
}
