package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
)

// Publisher moves drafts into the published collection. The transition is
// one-way.
type Publisher struct {
	content       repositories.ContentRepository
	notifications repositories.NotificationRepository
	logger        *slog.Logger
}

// NewPublisher creates a Publisher. notifications may be nil.
func NewPublisher(content repositories.ContentRepository, notifications repositories.NotificationRepository, logger *slog.Logger) *Publisher {
	return &Publisher{content: content, notifications: notifications, logger: logger}
}

// Publish turns the draft into a new post and returns the post's id.
//
// The post is written before the draft is removed, so a failed create leaves
// the draft untouched. When the post was created but the draft could not be
// removed, the new id is returned together with the error and the draft
// lingers until DeleteDraft is retried.
func (p *Publisher) Publish(ctx context.Context, draftID string) (string, error) {
	draft, err := p.content.FindDraft(ctx, draftID)
	if err != nil {
		return "", fmt.Errorf("publish draft %s: %w", draftID, err)
	}

	// Counters start from zero whatever the draft carried.
	post, err := p.content.CreatePost(ctx, draft.Input())
	if err != nil {
		return "", fmt.Errorf("publish draft %s: %w", draftID, err)
	}

	if err := p.content.DeleteDraft(ctx, draftID); err != nil {
		p.logger.Error("published draft could not be removed",
			"draft_id", draftID, "post_id", post.ID, "error", err)
		return post.ID, fmt.Errorf("remove published draft %s: %w", draftID, err)
	}

	p.logger.Info("draft published", "draft_id", draftID, "post_id", post.ID)
	p.notify(ctx, "Published: "+post.Title)
	return post.ID, nil
}

func (p *Publisher) notify(ctx context.Context, message string) {
	if p.notifications == nil {
		return
	}
	if _, err := p.notifications.Add(ctx, message, models.NotificationPost); err != nil {
		p.logger.Warn("publish notification dropped", "error", err)
	}
}
