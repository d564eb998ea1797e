// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type sampleRequest struct {
	Title      string `json:"title" validate:"required,max=10"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Kind       string `json:"kind" validate:"omitempty,oneof=COMMENT SYSTEM"`
}

type sampleConfig struct {
	Subject   string `koanf:"subject" validate:"subject_token"`
	BatchSize int    `koanf:"batch_size" validate:"min=1"`
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(&sampleRequest{Title: "hi", ReceiverID: "u1", Kind: "COMMENT"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateStruct(&sampleConfig{Subject: "notifications.comment", BatchSize: 50}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantMsg   string
	}{
		{"missing receiver", &sampleRequest{Title: "hi"}, "receiverId", "receiverId is required"},
		{"title too long", &sampleRequest{Title: "a very long title", ReceiverID: "u1"}, "title", "title must be at most 10 characters"},
		{"bad enum", &sampleRequest{Title: "hi", ReceiverID: "u1", Kind: "LIKE"}, "kind", "kind must be one of: COMMENT SYSTEM"},
		{"wildcard subject", &sampleConfig{Subject: "notifications.>", BatchSize: 1}, "subject", "subject must be a NATS subject without wildcards"},
		{"zero batch", &sampleConfig{Subject: "notifications", BatchSize: 0}, "batch_size", "batch_size must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *RequestValidationError, got %T", err)
			}
			if !verr.HasField(tt.wantField) {
				t.Errorf("Expected field %s in %+v", tt.wantField, verr.Fields)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestSubjectToken(t *testing.T) {
	valid := []string{"notifications", "notifications.comment", "a.b.c"}
	invalid := []string{"", ".notifications", "notifications.", "a..b", "a b", "a.*", "a.>"}

	for _, s := range valid {
		if err := ValidateStruct(&sampleConfig{Subject: s, BatchSize: 1}); err != nil {
			t.Errorf("Expected %q to be valid, got %v", s, err)
		}
	}
	for _, s := range invalid {
		if err := ValidateStruct(&sampleConfig{Subject: s, BatchSize: 1}); err == nil {
			t.Errorf("Expected %q to be rejected", s)
		}
	}
}
