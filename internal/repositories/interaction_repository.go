package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/google/uuid"
)

// InteractionPrefix starts the key of every interaction record.
const InteractionPrefix = "interaction:"

// DefaultCommentAuthor is recorded when a comment arrives without an author.
const DefaultCommentAuthor = "You"

// InteractionKey returns the key holding the record of postID.
func InteractionKey(postID string) string {
	return InteractionPrefix + postID
}

// InteractionRepository defines the per-post engagement operations. A post
// without a record has the zero-state; callers never see "missing" as an error.
type InteractionRepository interface {
	GetStats(ctx context.Context, postID string) models.InteractionRecord
	Like(ctx context.Context, postID string) (models.InteractionRecord, error)
	Bookmark(ctx context.Context, postID string) (models.InteractionRecord, error)
	AddComment(ctx context.Context, postID, text, author string) (models.InteractionRecord, error)
	IncrementViews(ctx context.Context, postID string) (models.InteractionRecord, error)
	SetStats(ctx context.Context, postID string, patch models.StatsPatch) (models.InteractionRecord, error)
	DeleteStats(ctx context.Context, postID string) error
}

// KVInteractionRepository implements InteractionRepository with one key per post.
type KVInteractionRepository struct {
	backend kv.Backend
	now     Clock
	logger  *slog.Logger
	mu      *sync.Mutex
}

// NewKVInteractionRepository creates a KVInteractionRepository.
func NewKVInteractionRepository(backend kv.Backend, opts ...Option) *KVInteractionRepository {
	return newKVInteractionRepository(backend, newSettings(opts))
}

func newKVInteractionRepository(backend kv.Backend, s settings) *KVInteractionRepository {
	return &KVInteractionRepository{backend: backend, now: s.now, logger: s.logger, mu: s.mu}
}

var _ InteractionRepository = (*KVInteractionRepository)(nil)

// GetStats returns the record of postID, or the zero-state when there is none
// or it cannot be read.
func (r *KVInteractionRepository) GetStats(ctx context.Context, postID string) models.InteractionRecord {
	rec, _, err := r.Lookup(ctx, postID)
	if err != nil {
		r.logger.Warn("interaction record unreadable, serving zero-state",
			"post_id", postID, "error", err)
		return models.ZeroInteraction()
	}
	return rec
}

// Lookup returns the record of postID and whether one is stored.
func (r *KVInteractionRepository) Lookup(ctx context.Context, postID string) (models.InteractionRecord, bool, error) {
	rec := models.ZeroInteraction()
	ok, err := readJSON(ctx, r.backend, InteractionKey(postID), &rec)
	if err != nil {
		return models.ZeroInteraction(), false, unavailable("read interactions", err)
	}
	if rec.Comments == nil {
		rec.Comments = []models.Comment{}
	}
	return rec, ok, nil
}

// Like toggles the liked flag and moves the like count with it.
func (r *KVInteractionRepository) Like(ctx context.Context, postID string) (models.InteractionRecord, error) {
	return r.mutate(ctx, postID, func(rec *models.InteractionRecord) {
		if rec.Liked {
			rec.Likes--
		} else {
			rec.Likes++
		}
		rec.Liked = !rec.Liked
	})
}

// Bookmark toggles the bookmarked flag.
func (r *KVInteractionRepository) Bookmark(ctx context.Context, postID string) (models.InteractionRecord, error) {
	return r.mutate(ctx, postID, func(rec *models.InteractionRecord) {
		rec.Bookmarked = !rec.Bookmarked
	})
}

// AddComment prepends a comment. The text is stored as given; rejecting
// blank text is the caller's job.
func (r *KVInteractionRepository) AddComment(ctx context.Context, postID, text, author string) (models.InteractionRecord, error) {
	if strings.TrimSpace(author) == "" {
		author = DefaultCommentAuthor
	}
	return r.mutate(ctx, postID, func(rec *models.InteractionRecord) {
		c := models.Comment{
			ID:        uuid.NewString(),
			Text:      text,
			Timestamp: r.now(),
			Author:    author,
		}
		rec.Comments = append([]models.Comment{c}, rec.Comments...)
	})
}

// IncrementViews counts one more view. Every call counts.
func (r *KVInteractionRepository) IncrementViews(ctx context.Context, postID string) (models.InteractionRecord, error) {
	return r.mutate(ctx, postID, func(rec *models.InteractionRecord) {
		rec.Views++
	})
}

// SetStats merges patch into the record.
func (r *KVInteractionRepository) SetStats(ctx context.Context, postID string, patch models.StatsPatch) (models.InteractionRecord, error) {
	return r.mutate(ctx, postID, patch.Apply)
}

// DeleteStats removes the record of postID. Removing a missing record succeeds.
func (r *KVInteractionRepository) DeleteStats(ctx context.Context, postID string) error {
	if err := r.backend.Remove(ctx, InteractionKey(postID)); err != nil {
		return unavailable("delete interactions", err)
	}
	return nil
}

// Put stores rec as-is, without stamping lastInteraction.
func (r *KVInteractionRepository) Put(ctx context.Context, postID string, rec models.InteractionRecord) error {
	if rec.Comments == nil {
		rec.Comments = []models.Comment{}
	}
	if err := writeJSON(ctx, r.backend, InteractionKey(postID), rec); err != nil {
		return unavailable("write interactions", err)
	}
	return nil
}

// PostIDs lists the ids that currently have a record.
func (r *KVInteractionRepository) PostIDs(ctx context.Context) ([]string, error) {
	keys, err := r.backend.Keys(ctx)
	if err != nil {
		return nil, unavailable("scan interactions", err)
	}
	keys = kv.WithPrefix(keys, InteractionPrefix)
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = strings.TrimPrefix(k, InteractionPrefix)
	}
	return ids, nil
}

// DeleteAll removes every interaction record.
func (r *KVInteractionRepository) DeleteAll(ctx context.Context) error {
	ids, err := r.PostIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.DeleteStats(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *KVInteractionRepository) mutate(ctx context.Context, postID string, fn func(*models.InteractionRecord)) (models.InteractionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, _, err := r.Lookup(ctx, postID)
	if err != nil {
		return models.ZeroInteraction(), fmt.Errorf("post %s: %w", postID, err)
	}

	fn(&rec)
	rec.LastInteraction = r.now()

	if err := r.Put(ctx, postID, rec); err != nil {
		return models.ZeroInteraction(), fmt.Errorf("post %s: %w", postID, err)
	}
	return rec, nil
}
