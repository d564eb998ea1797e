// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"fmt"

	"github.com/tomtom215/stitchboard/internal/models"
)

const (
	titleNewComment = "New comment"
	titleMentioned  = "You were mentioned in a comment"
)

func ownerCommentRequest(commenter models.UserInfo, target models.ContentRef) models.NotificationRequest {
	return models.NotificationRequest{
		Title:      titleNewComment,
		Message:    fmt.Sprintf("%s commented on your %s", commenter.DisplayName, target.Kind.Noun()),
		Link:       target.Kind.Path(target.ID),
		ReceiverID: target.OwnerID,
		SenderID:   commenter.ID,
		Type:       models.NotificationTypeComment,
	}
}

func mentionRequest(commenter models.UserInfo, mentionedID string, target models.ContentRef) models.NotificationRequest {
	return models.NotificationRequest{
		Title:      titleMentioned,
		Message:    fmt.Sprintf("%s mentioned you in a comment", commenter.DisplayName),
		Link:       target.Kind.Path(target.ID),
		ReceiverID: mentionedID,
		SenderID:   commenter.ID,
		Type:       models.NotificationTypeComment,
	}
}

// publishedRequest builds the broadcast notification, e.g.
// "New chart" / "Mai just posted chart Granny Square".
func publishedRequest(creator models.UserInfo, evt models.NewContentPublished, receiverID string) models.NotificationRequest {
	noun := evt.ContentKind.Noun()
	return models.NotificationRequest{
		Title:      "New " + noun,
		Message:    fmt.Sprintf("%s just posted %s %s", creator.DisplayName, noun, evt.ContentName),
		Link:       evt.ContentKind.Path(evt.ContentID),
		ReceiverID: receiverID,
		SenderID:   creator.ID,
		Type:       evt.ContentKind.PublishedType(),
	}
}
