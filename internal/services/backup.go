package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/pkg/kv"
)

// ErrInvalidSnapshot is returned by ImportAll for a snapshot that would
// break collection invariants.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// SamplePostID is the id of the welcome post written by EnsureSampleData.
const SamplePostID = "sample-1"

// Backup exports, imports and wipes the content and interaction stores.
//
// Every operation holds the stores' lock, so request handlers writing through
// the same Stores never interleave with an import, reset or seed.
type Backup struct {
	stores *repositories.Stores
	now    repositories.Clock
	logger *slog.Logger
}

// NewBackup creates a Backup over stores.
func NewBackup(stores *repositories.Stores, now repositories.Clock, logger *slog.Logger) *Backup {
	return &Backup{stores: stores, now: now, logger: logger}
}

// ExportAll reads posts, drafts and the interaction record of every post that
// has one. Unlike the list operations it fails on unreadable data rather than
// exporting an empty collection.
func (b *Backup) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	b.stores.Lock()
	defer b.stores.Unlock()

	posts, err := b.stores.Content.AllPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	drafts, err := b.stores.Content.AllDrafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	interactions := make(map[string]models.InteractionRecord)
	for _, p := range posts {
		rec, ok, err := b.stores.Interactions.Lookup(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		if ok {
			interactions[p.ID] = rec
		}
	}

	return &models.Snapshot{
		Posts:        posts,
		Drafts:       drafts,
		Interactions: interactions,
		ExportDate:   b.now(),
	}, nil
}

// ImportAll replaces posts, drafts and interaction records with the snapshot.
//
// Writes are staged and applied in a fixed order: stale interaction records
// are removed, snapshot records written, then drafts and finally posts. A
// failed write rolls back what was already applied. If the rollback fails too
// the error wraps kv.ErrPartialCommit and the store holds a mix of old and
// new data.
func (b *Backup) ImportAll(ctx context.Context, snap models.Snapshot) error {
	if err := checkSnapshot(snap); err != nil {
		return err
	}

	b.stores.Lock()
	defer b.stores.Unlock()

	batch := kv.NewBatch(b.stores.Backend)
	staged := repositories.NewStores(batch,
		repositories.WithClock(b.now), repositories.WithLogger(b.logger))

	existing, err := staged.Interactions.PostIDs(ctx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	for _, id := range existing {
		if _, keep := snap.Interactions[id]; !keep {
			if err := staged.Interactions.DeleteStats(ctx, id); err != nil {
				return fmt.Errorf("import: %w", err)
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(snap.Interactions)) {
		if err := staged.Interactions.Put(ctx, id, snap.Interactions[id]); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}
	if err := staged.Content.ReplaceDrafts(ctx, snap.Drafts); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if err := staged.Content.ReplacePosts(ctx, snap.Posts); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if err := batch.Commit(ctx); err != nil {
		b.logger.Error("import rolled back", "error", err,
			"partial", errors.Is(err, kv.ErrPartialCommit))
		return fmt.Errorf("import: %w: %w", repositories.ErrStorageUnavailable, err)
	}

	b.logger.Info("snapshot imported",
		"posts", len(snap.Posts), "drafts", len(snap.Drafts), "interactions", len(snap.Interactions))
	return nil
}

// ResetAll removes posts, drafts and every interaction record. Notifications
// are kept.
func (b *Backup) ResetAll(ctx context.Context) error {
	b.stores.Lock()
	defer b.stores.Unlock()

	if err := b.stores.Content.Clear(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := b.stores.Interactions.DeleteAll(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	b.logger.Info("store reset")
	return nil
}

// EnsureSampleData writes a welcome post when there are no posts and no
// drafts. It reports whether anything was written; calling it again is a
// no-op.
func (b *Backup) EnsureSampleData(ctx context.Context) (bool, error) {
	b.stores.Lock()
	defer b.stores.Unlock()

	posts, err := b.stores.Content.AllPosts(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	drafts, err := b.stores.Content.AllDrafts(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if len(posts) > 0 || len(drafts) > 0 {
		return false, nil
	}

	now := b.now()
	comments := []models.Comment{
		{ID: "1", Text: "Great platform!", Timestamp: now, Author: "Reader"},
	}
	post := models.Post{
		ID:          SamplePostID,
		Title:       "Welcome to Your Blog!",
		Content:     "This is your first post. You can edit it or delete it and start writing your own stories. You can create posts with images, keep drafts, and hear from your readers through likes and comments.",
		Images:      []string{},
		AuthorID:    "system",
		AuthorName:  "System",
		AuthorEmail: "system@blog.com",
		Likes:       5,
		Comments:    comments,
		Views:       10,
		Status:      models.StatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rec := models.InteractionRecord{
		Likes:           5,
		Comments:        comments,
		Views:           10,
		LastInteraction: now,
	}

	// The record goes first: if the post write fails it is an orphan.
	if err := b.stores.Interactions.Put(ctx, SamplePostID, rec); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if err := b.stores.Content.ReplacePosts(ctx, []models.Post{post}); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	b.logger.Info("sample data written", "post_id", SamplePostID)
	return true, nil
}

func checkSnapshot(snap models.Snapshot) error {
	for name, list := range map[string][]models.Post{"posts": snap.Posts, "drafts": snap.Drafts} {
		seen := make(map[string]bool, len(list))
		for _, p := range list {
			if p.ID == "" {
				return fmt.Errorf("%w: %s entry without id", ErrInvalidSnapshot, name)
			}
			if seen[p.ID] {
				return fmt.Errorf("%w: duplicate id %s in %s", ErrInvalidSnapshot, p.ID, name)
			}
			seen[p.ID] = true
		}
	}
	return nil
}
