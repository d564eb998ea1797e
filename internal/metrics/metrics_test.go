// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDelivery(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		ntype     string
		reason    string
	}{
		{"direct success", TransportDirect, "COMMENT", ""},
		{"bus success", TransportBus, "NEW_PATTERN", ""},
		{"direct not found", TransportDirect, "COMMENT", "not_found"},
		{"bus publish failure", TransportBus, "COMMENT", "publish"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.reason == "" {
				before := testutil.ToFloat64(NotificationsDelivered.WithLabelValues(tt.transport, tt.ntype))
				RecordDelivery(tt.transport, tt.ntype, time.Millisecond, "")
				after := testutil.ToFloat64(NotificationsDelivered.WithLabelValues(tt.transport, tt.ntype))
				if after-before != 1 {
					t.Errorf("Expected delivered counter +1, got %v", after-before)
				}
				return
			}

			before := testutil.ToFloat64(NotificationDeliveryErrors.WithLabelValues(tt.transport, tt.reason))
			RecordDelivery(tt.transport, tt.ntype, time.Millisecond, tt.reason)
			after := testutil.ToFloat64(NotificationDeliveryErrors.WithLabelValues(tt.transport, tt.reason))
			if after-before != 1 {
				t.Errorf("Expected error counter +1, got %v", after-before)
			}
		})
	}
}

func TestRecordFanOut(t *testing.T) {
	batches := testutil.ToFloat64(FanOutBatches)
	timeouts := testutil.ToFloat64(FanOutTimeouts)

	RecordFanOut(3, 20*time.Millisecond, false)
	RecordFanOut(2, 100*time.Millisecond, true)

	if got := testutil.ToFloat64(FanOutBatches) - batches; got != 5 {
		t.Errorf("Expected 5 batches recorded, got %v", got)
	}
	if got := testutil.ToFloat64(FanOutTimeouts) - timeouts; got != 1 {
		t.Errorf("Expected 1 timeout recorded, got %v", got)
	}
}

func TestRecordFanOutRecipient(t *testing.T) {
	ok := testutil.ToFloat64(FanOutRecipients.WithLabelValues("delivered"))
	failed := testutil.ToFloat64(FanOutRecipients.WithLabelValues("failed"))

	RecordFanOutRecipient(nil)
	RecordFanOutRecipient(errors.New("store down"))

	if got := testutil.ToFloat64(FanOutRecipients.WithLabelValues("delivered")) - ok; got != 1 {
		t.Errorf("Expected 1 delivered, got %v", got)
	}
	if got := testutil.ToFloat64(FanOutRecipients.WithLabelValues("failed")) - failed; got != 1 {
		t.Errorf("Expected 1 failed, got %v", got)
	}
}

func TestTrackBatch(t *testing.T) {
	before := testutil.ToFloat64(FanOutActiveBatches)
	TrackBatch(true)
	TrackBatch(true)
	TrackBatch(false)
	if got := testutil.ToFloat64(FanOutActiveBatches) - before; got != 1 {
		t.Errorf("Expected active batches +1, got %v", got)
	}
	TrackBatch(false)
}

func TestRecordNATSCounters(t *testing.T) {
	published := testutil.ToFloat64(NATSMessagesPublished)
	dedup := testutil.ToFloat64(NATSMessagesDeduplicated)
	poisoned := testutil.ToFloat64(NATSMessagesPoisoned.WithLabelValues("decode"))

	RecordNATSPublish()
	RecordNATSDeduplicated()
	RecordNATSPoisoned("decode")

	if testutil.ToFloat64(NATSMessagesPublished)-published != 1 {
		t.Error("Expected published counter to increase")
	}
	if testutil.ToFloat64(NATSMessagesDeduplicated)-dedup != 1 {
		t.Error("Expected dedup counter to increase")
	}
	if testutil.ToFloat64(NATSMessagesPoisoned.WithLabelValues("decode"))-poisoned != 1 {
		t.Error("Expected poisoned counter to increase")
	}
}

func TestRecordDomainEvent(t *testing.T) {
	tests := []struct {
		kind      string
		result    string
		wantLabel string
	}{
		{"comment_created", "processed", "comment_created"},
		{"", "poisoned", "unknown"},
	}

	for _, tt := range tests {
		counter := DomainEventsConsumed.WithLabelValues(tt.wantLabel, tt.result)
		before := testutil.ToFloat64(counter)
		RecordDomainEvent(tt.kind, tt.result)
		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("RecordDomainEvent(%q, %q): expected %s counter +1, got %v", tt.kind, tt.result, tt.wantLabel, got)
		}
	}
}

func TestRecordCircuitBreakerState(t *testing.T) {
	RecordCircuitBreakerState("nats-publisher", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("nats-publisher")); got != 2 {
		t.Errorf("Expected state 2, got %v", got)
	}
}

func TestRecordInboxOperation(t *testing.T) {
	before := testutil.ToFloat64(InboxOperations.WithLabelValues("mark_read", "error"))
	RecordInboxOperation("mark_read", errors.New("not found"))
	if testutil.ToFloat64(InboxOperations.WithLabelValues("mark_read", "error"))-before != 1 {
		t.Error("Expected inbox error counter to increase")
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health/ready", "503"))
	RecordAPIRequest("GET", "/health/ready", "503", 3*time.Millisecond)
	if testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health/ready", "503"))-before != 1 {
		t.Error("Expected api request counter to increase")
	}
}
