package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/google/uuid"
)

// Keys of the notification log and the last-login marker.
const (
	NotificationsKey = "notifications"
	LastLoginKey     = "last-login"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	List(ctx context.Context) []models.Notification
	Add(ctx context.Context, message, kind string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) int
	Clear(ctx context.Context) error
	LastLogin(ctx context.Context) time.Time
	SetLastLogin(ctx context.Context, at time.Time) error
}

// KVNotificationRepository keeps the notification log as one blob, newest first.
type KVNotificationRepository struct {
	backend kv.Backend
	now     Clock
	logger  *slog.Logger
	mu      *sync.Mutex
}

// NewKVNotificationRepository creates a KVNotificationRepository.
func NewKVNotificationRepository(backend kv.Backend, opts ...Option) *KVNotificationRepository {
	return newKVNotificationRepository(backend, newSettings(opts))
}

func newKVNotificationRepository(backend kv.Backend, s settings) *KVNotificationRepository {
	return &KVNotificationRepository{backend: backend, now: s.now, logger: s.logger, mu: s.mu}
}

var _ NotificationRepository = (*KVNotificationRepository)(nil)

// List returns every notification, newest first.
func (r *KVNotificationRepository) List(ctx context.Context) []models.Notification {
	list, err := r.load(ctx)
	if err != nil {
		r.logger.Warn("notification log unreadable, serving empty list", "error", err)
		return []models.Notification{}
	}
	return list
}

// Add prepends an unread notification and returns it.
func (r *KVNotificationRepository) Add(ctx context.Context, message, kind string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, unavailable("add notification", err)
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      kind,
		Timestamp: r.now(),
	}
	if err := r.save(ctx, append([]models.Notification{n}, list...)); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead flags one notification as read.
func (r *KVNotificationRepository) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return unavailable("mark notification read", err)
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return r.save(ctx, list)
		}
	}
	return fmt.Errorf("notification %s: %w", id, ErrNotFound)
}

// MarkAllRead flags the whole log as read.
func (r *KVNotificationRepository) MarkAllRead(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return unavailable("mark notifications read", err)
	}
	for i := range list {
		list[i].Read = true
	}
	return r.save(ctx, list)
}

// UnreadCount counts notifications not yet read.
func (r *KVNotificationRepository) UnreadCount(ctx context.Context) int {
	count := 0
	for _, n := range r.List(ctx) {
		if !n.Read {
			count++
		}
	}
	return count
}

// Clear empties the log. The last-login marker is kept.
func (r *KVNotificationRepository) Clear(ctx context.Context) error {
	if err := r.backend.Remove(ctx, NotificationsKey); err != nil {
		return unavailable("clear notifications", err)
	}
	return nil
}

// LastLogin returns the stored last-login time, or the zero time.
func (r *KVNotificationRepository) LastLogin(ctx context.Context) time.Time {
	var at time.Time
	if _, err := readJSON(ctx, r.backend, LastLoginKey, &at); err != nil {
		r.logger.Warn("last-login marker unreadable", "error", err)
		return time.Time{}
	}
	return at
}

// SetLastLogin stores the last-login marker.
func (r *KVNotificationRepository) SetLastLogin(ctx context.Context, at time.Time) error {
	if err := writeJSON(ctx, r.backend, LastLoginKey, at.UTC()); err != nil {
		return unavailable("record last login", err)
	}
	return nil
}

func (r *KVNotificationRepository) load(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	if _, err := readJSON(ctx, r.backend, NotificationsKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

func (r *KVNotificationRepository) save(ctx context.Context, list []models.Notification) error {
	if err := writeJSON(ctx, r.backend, NotificationsKey, list); err != nil {
		return unavailable("save notifications", err)
	}
	return nil
}
