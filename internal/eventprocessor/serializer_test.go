// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/stitchboard/internal/models"
)

func testRequest() models.NotificationRequest {
	return models.NotificationRequest{
		Title:      "New comment",
		Message:    "Mai commented on your chart",
		Link:       "/free-patterns/p1",
		ReceiverID: "u2",
		SenderID:   "u1",
		Type:       models.NotificationTypeComment,
	}
}

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Add(-time.Second)
	env, err := NewEnvelope(testRequest())
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", CurrentSchemaVersion, env.SchemaVersion)
	}
	if env.EventID == "" {
		t.Error("Expected event id to be set")
	}
	if env.Timestamp.Before(before) {
		t.Errorf("Expected recent timestamp, got %v", env.Timestamp)
	}

	other, _ := NewEnvelope(testRequest())
	if other.EventID == env.EventID {
		t.Error("Expected distinct event ids")
	}
}

func TestSerializer_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSerializer()
	env, _ := NewEnvelope(testRequest())

	data, err := s.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.EventID != env.EventID || got.SchemaVersion != env.SchemaVersion {
		t.Errorf("Envelope header mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(env.Timestamp) {
		t.Errorf("Expected timestamp %v, got %v", env.Timestamp, got.Timestamp)
	}
	if got.NotificationRequest != env.NotificationRequest {
		t.Errorf("Expected request %+v, got %+v", env.NotificationRequest, got.NotificationRequest)
	}
}

func TestSerializer_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     string
		wantErr     error
		wantAnyErr  bool
		wantVersion int
		wantType    models.NotificationType
	}{
		{
			name:        "missing version reads as 1",
			payload:     `{"eventId":"e1","title":"t","message":"m","receiverId":"u2","notificationType":"COMMENT"}`,
			wantVersion: 1,
		},
		{
			name:        "explicit version 1",
			payload:     `{"schemaVersion":1,"eventId":"e1","receiverId":"u2","notificationType":"NEW_BLOG"}`,
			wantVersion: 1,
		},
		{
			name:        "type is normalized",
			payload:     `{"schemaVersion":1,"eventId":"e1","receiverId":"u2","notificationType":" new_pattern "}`,
			wantVersion: 1,
			wantType:    models.NotificationTypeNewPattern,
		},
		{
			name:       "unknown type",
			payload:    `{"schemaVersion":1,"eventId":"e1","receiverId":"u2","notificationType":"LIKE"}`,
			wantAnyErr: true,
		},
		{
			name:       "missing type",
			payload:    `{"schemaVersion":1,"eventId":"e1","receiverId":"u2"}`,
			wantAnyErr: true,
		},
		{
			name:    "future version",
			payload: `{"schemaVersion":2,"eventId":"e1","receiverId":"u2"}`,
			wantErr: ErrUnsupportedSchemaVersion,
		},
		{
			name:    "negative version",
			payload: `{"schemaVersion":-1,"eventId":"e1"}`,
			wantErr: ErrUnsupportedSchemaVersion,
		},
		{
			name:    "empty",
			payload: "",
			wantErr: ErrEmptyPayload,
		},
		{
			name:       "not json",
			payload:    "granny square",
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, err := NewSerializer().Unmarshal([]byte(tt.payload))

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantAnyErr:
				if err == nil {
					t.Error("Expected an error")
				}
				if errors.Is(err, ErrUnsupportedSchemaVersion) || errors.Is(err, ErrEmptyPayload) {
					t.Errorf("Expected a decode error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if env.SchemaVersion != tt.wantVersion {
					t.Errorf("Expected version %d, got %d", tt.wantVersion, env.SchemaVersion)
				}
				if tt.wantType != "" && env.Type != tt.wantType {
					t.Errorf("Expected type %s, got %s", tt.wantType, env.Type)
				}
			}
		})
	}
}

func TestSerializer_MarshalRequiresEventID(t *testing.T) {
	t.Parallel()

	s := NewSerializer()
	if _, err := s.Marshal(nil); err == nil {
		t.Error("Expected error for nil envelope")
	}
	if _, err := s.Marshal(&Envelope{NotificationRequest: testRequest()}); err == nil {
		t.Error("Expected error for envelope without event id")
	}
}

func TestSerializer_NewMessage(t *testing.T) {
	t.Parallel()

	env, _ := NewEnvelope(testRequest())
	msg, err := NewSerializer().NewMessage(env)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	if msg.UUID != env.EventID {
		t.Errorf("Expected message UUID %s, got %s", env.EventID, msg.UUID)
	}
	if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != env.EventID {
		t.Errorf("Expected Nats-Msg-Id %s, got %s", env.EventID, got)
	}
	if got := msg.Metadata.Get(MetadataNotificationType); got != "COMMENT" {
		t.Errorf("Expected notification type metadata COMMENT, got %s", got)
	}

	decoded, err := NewSerializer().Unmarshal(msg.Payload)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.ReceiverID != "u2" {
		t.Errorf("Expected receiver u2, got %s", decoded.ReceiverID)
	}
}
