// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/stitchboard/internal/models"
)

// CurrentSchemaVersion is the envelope version this build writes.
// Envelopes without a version are read as version 1.
const CurrentSchemaVersion = 1

// Message metadata keys.
const (
	MetadataNotificationType = "notification_type"
	MetadataCorrelationID    = "correlation_id"
)

// Envelope is the wire form of a bus notification: the request fields plus
// an event ID used for broker and consumer deduplication.
type Envelope struct {
	SchemaVersion int       `json:"schemaVersion"`
	EventID       string    `json:"eventId"`
	Timestamp     time.Time `json:"timestamp"`

	models.NotificationRequest
}

// NewEnvelope wraps req with a fresh UUIDv7 event ID.
func NewEnvelope(req models.NotificationRequest) (*Envelope, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	return &Envelope{
		SchemaVersion:       CurrentSchemaVersion,
		EventID:             id.String(),
		Timestamp:           time.Now().UTC(),
		NotificationRequest: req,
	}, nil
}

// Serializer handles envelope encoding/decoding for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an envelope to JSON bytes.
func (s *Serializer) Marshal(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, errors.New("nil envelope")
	}
	if env.EventID == "" {
		return nil, errors.New("envelope has no event id")
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON bytes to an envelope. A missing schemaVersion is
// read as 1; any version newer than CurrentSchemaVersion is rejected with
// ErrUnsupportedSchemaVersion. The notification type is normalized and
// must be a known one.
func (s *Serializer) Unmarshal(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	if env.SchemaVersion == 0 {
		env.SchemaVersion = 1
	}
	if env.SchemaVersion < 0 || env.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, env.SchemaVersion)
	}

	t, err := models.ParseNotificationType(string(env.Type))
	if err != nil {
		return nil, fmt.Errorf("decode envelope %s: %w", env.EventID, err)
	}
	env.Type = t
	return &env, nil
}

// NewMessage encodes env as a watermill message. The event ID becomes the
// message UUID and the Nats-Msg-Id header, so JetStream drops duplicates
// published inside the stream's duplicate window.
func (s *Serializer) NewMessage(env *Envelope) (*message.Message, error) {
	data, err := s.Marshal(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(env.EventID, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, env.EventID)
	msg.Metadata.Set(MetadataNotificationType, string(env.Type))
	return msg, nil
}
