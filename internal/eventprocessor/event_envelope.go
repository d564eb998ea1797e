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

// MetadataEventKind carries the domain event kind on bus messages.
const MetadataEventKind = "event_kind"

// EventEnvelope is the wire form of a domain event published by business
// code in another process. Exactly one body field is set, matching Kind.
type EventEnvelope struct {
	SchemaVersion int              `json:"schemaVersion"`
	EventID       string           `json:"eventId"`
	Timestamp     time.Time        `json:"timestamp"`
	Kind          models.EventKind `json:"kind"`

	CommentCreated      *models.CommentCreated      `json:"commentCreated,omitempty"`
	NewContentPublished *models.NewContentPublished `json:"newContentPublished,omitempty"`
}

// NewEventEnvelope wraps evt with a fresh UUIDv7 event ID.
func NewEventEnvelope(evt models.DomainEvent) (*EventEnvelope, error) {
	if evt == nil {
		return nil, errors.New("nil domain event")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	env := &EventEnvelope{
		SchemaVersion: CurrentSchemaVersion,
		EventID:       id.String(),
		Timestamp:     time.Now().UTC(),
		Kind:          evt.Kind(),
	}
	switch e := evt.(type) {
	case models.CommentCreated:
		env.CommentCreated = &e
	case models.NewContentPublished:
		env.NewContentPublished = &e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventKind, evt.Kind())
	}
	return env, nil
}

// DomainEvent returns the event carried by the envelope.
func (e *EventEnvelope) DomainEvent() (models.DomainEvent, error) {
	switch e.Kind {
	case models.EventCommentCreated:
		if e.CommentCreated == nil {
			return nil, fmt.Errorf("event %s: missing %s body", e.EventID, e.Kind)
		}
		return *e.CommentCreated, nil
	case models.EventNewContentPublished:
		if e.NewContentPublished == nil {
			return nil, fmt.Errorf("event %s: missing %s body", e.EventID, e.Kind)
		}
		return *e.NewContentPublished, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
}

// EventSubject returns the subject events of kind are published to under
// prefix, for example "events.comment_created".
func EventSubject(prefix string, kind models.EventKind) string {
	return prefix + "." + string(kind)
}

// MarshalEvent converts an event envelope to JSON bytes.
func (s *Serializer) MarshalEvent(env *EventEnvelope) ([]byte, error) {
	if env == nil {
		return nil, errors.New("nil event envelope")
	}
	if env.EventID == "" {
		return nil, errors.New("event envelope has no event id")
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEvent decodes an event envelope and checks that its body matches
// its kind. Schema versions follow the same rules as Unmarshal.
func (s *Serializer) UnmarshalEvent(data []byte) (*EventEnvelope, models.DomainEvent, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyPayload
	}

	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	if env.SchemaVersion == 0 {
		env.SchemaVersion = 1
	}
	if env.SchemaVersion < 0 || env.SchemaVersion > CurrentSchemaVersion {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, env.SchemaVersion)
	}

	evt, err := env.DomainEvent()
	if err != nil {
		return nil, nil, err
	}
	return &env, evt, nil
}

// NewEventMessage encodes env as a watermill message, using the event ID as
// message UUID and Nats-Msg-Id.
func (s *Serializer) NewEventMessage(env *EventEnvelope) (*message.Message, error) {
	data, err := s.MarshalEvent(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(env.EventID, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, env.EventID)
	msg.Metadata.Set(MetadataEventKind, string(env.Kind))
	return msg, nil
}
