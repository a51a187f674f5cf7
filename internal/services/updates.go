package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
)

// UpdateChecker raises a notification when a user's posts have seen activity.
type UpdateChecker struct {
	content       repositories.ContentRepository
	interactions  repositories.InteractionRepository
	notifications repositories.NotificationRepository
	now           repositories.Clock
	logger        *slog.Logger
}

// NewUpdateChecker creates an UpdateChecker.
func NewUpdateChecker(
	content repositories.ContentRepository,
	interactions repositories.InteractionRepository,
	notifications repositories.NotificationRepository,
	now repositories.Clock,
	logger *slog.Logger,
) *UpdateChecker {
	return &UpdateChecker{
		content:       content,
		interactions:  interactions,
		notifications: notifications,
		now:           now,
		logger:        logger,
	}
}

// CheckForUpdates counts the user's posts whose last interaction is later
// than since. When there is at least one, a single aggregate notification is
// added and returned; otherwise it returns nil.
func (u *UpdateChecker) CheckForUpdates(ctx context.Context, userID string, since time.Time) (*models.Notification, error) {
	active := 0
	for _, post := range u.content.ListPostsByAuthor(ctx, userID) {
		if u.interactions.GetStats(ctx, post.ID).LastInteraction.After(since) {
			active++
		}
	}
	if active == 0 {
		return nil, nil
	}

	n, err := u.notifications.Add(ctx, fmt.Sprintf("%d of your posts have new activity", active), models.NotificationInteraction)
	if err != nil {
		return nil, fmt.Errorf("check updates for %s: %w", userID, err)
	}
	u.logger.Debug("activity notification added", "user_id", userID, "posts", active)
	return n, nil
}

// CheckSinceLastLogin checks for activity since the stored last-login and
// then moves the marker to now. The marker stays put when the check fails.
func (u *UpdateChecker) CheckSinceLastLogin(ctx context.Context, userID string) (*models.Notification, error) {
	n, err := u.CheckForUpdates(ctx, userID, u.notifications.LastLogin(ctx))
	if err != nil {
		return nil, err
	}
	if err := u.notifications.SetLastLogin(ctx, u.now()); err != nil {
		return n, fmt.Errorf("check updates for %s: %w", userID, err)
	}
	return n, nil
}
