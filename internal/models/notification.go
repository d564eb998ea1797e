// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package models

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Notification Types
// ============================================================================

// NotificationType classifies a notification. The string values are part of
// the bus wire format and the persisted record, so they must not change.
type NotificationType string

const (
	NotificationTypeComment    NotificationType = "COMMENT"
	NotificationTypeSystem     NotificationType = "SYSTEM"
	NotificationTypeNewPattern NotificationType = "NEW_PATTERN"
	NotificationTypeNewProduct NotificationType = "NEW_PRODUCT"
	NotificationTypeNewBlog    NotificationType = "NEW_BLOG"
)

// NotificationTypes lists every known notification type.
var NotificationTypes = []NotificationType{
	NotificationTypeComment,
	NotificationTypeSystem,
	NotificationTypeNewPattern,
	NotificationTypeNewProduct,
	NotificationTypeNewBlog,
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Category returns the lower-case subject token for the type,
// e.g. "comment" or "new_pattern".
func (t NotificationType) Category() string {
	return strings.ToLower(string(t))
}

// ParseNotificationType converts a wire value into a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown notification type %q", s)
	}
	return t, nil
}

// ============================================================================
// Requests and Records
// ============================================================================

// NotificationRequest is the unit of work handed from the resolver to a
// delivery transport. It is never persisted as-is.
type NotificationRequest struct {
	Title      string           `json:"title" validate:"required,max=255"`
	Message    string           `json:"message" validate:"required,max=2000"`
	Link       string           `json:"link,omitempty" validate:"omitempty,max=512"`
	ReceiverID string           `json:"receiverId" validate:"required"`
	SenderID   string           `json:"senderId,omitempty"`
	Type       NotificationType `json:"notificationType" validate:"required,oneof=COMMENT SYSTEM NEW_PATTERN NEW_PRODUCT NEW_BLOG"`
}

// IsSelfNotification reports whether the request targets its own sender.
func (r NotificationRequest) IsSelfNotification() bool {
	return r.SenderID != "" && r.SenderID == r.ReceiverID
}

// NotificationRecord is a persisted notification owned by its receiver.
type NotificationRecord struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Link       string           `json:"link,omitempty"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"createdAt"`
	ReceiverID string           `json:"receiverId"`
	SenderID   string           `json:"senderId,omitempty"`
	Type       NotificationType `json:"notificationType"`
}

// NewRecord builds an unread record from a request. ID and CreatedAt are
// left for the caller or the store to assign.
func NewRecord(req NotificationRequest) *NotificationRecord {
	return &NotificationRecord{
		Title:      req.Title,
		Message:    req.Message,
		Link:       req.Link,
		Read:       false,
		ReceiverID: req.ReceiverID,
		SenderID:   req.SenderID,
		Type:       req.Type,
	}
}

// UserInfo is the directory view of a user.
type UserInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// ============================================================================
// Pagination
// ============================================================================

// Page is one page of an ordered result set.
type Page[T any] struct {
	Contents      []T   `json:"contents"`
	PageNo        int   `json:"pageNo"`
	PageSize      int   `json:"pageSize"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Last          bool  `json:"last"`
}

// NewPage computes the page metadata for a zero-based page number.
func NewPage[T any](contents []T, pageNo, pageSize int, total int64) Page[T] {
	if contents == nil {
		contents = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{
		Contents:      contents,
		PageNo:        pageNo,
		PageSize:      pageSize,
		TotalPages:    totalPages,
		TotalElements: total,
		Last:          pageNo >= totalPages-1,
	}
}

// NormalizePaging clamps page and size to sane bounds.
func NormalizePaging(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	switch {
	case size <= 0:
		size = 10
	case size > 100:
		size = 100
	}
	return page, size
}
