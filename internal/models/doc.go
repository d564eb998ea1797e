// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package models defines the data types shared by the notification subsystem.

# Domain Events

DomainEvent is a closed sum type raised by business actions:

  - CommentCreated carries a CommentSnapshot. Replies point at their parent,
    and Root walks up to the top-level comment, whose Target is the
    authoritative content reference for the whole thread.
  - NewContentPublished announces a blog post, free pattern or product.

# Notifications

NotificationRequest is the unpersisted message a transport delivers.
NotificationRecord is its stored form, with an ID, creation time and read
flag. NotificationType values match the wire and storage strings exactly
(COMMENT, NEW_PATTERN, NEW_BLOG, NEW_PRODUCT, SYSTEM).

Page and NormalizePaging shape inbox listings.
*/
package models
