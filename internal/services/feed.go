package services

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
)

// DefaultFeedLimit is used when a caller asks for a non-positive number of posts.
const DefaultFeedLimit = 5

// InteractionReader reads interaction records.
type InteractionReader interface {
	GetStats(ctx context.Context, postID string) models.InteractionRecord
	Lookup(ctx context.Context, postID string) (models.InteractionRecord, bool, error)
}

// Feed answers read-only queries that join posts with their interaction
// records. Like the stores beneath it, it never fails: unreadable data reads
// as empty.
type Feed struct {
	content      repositories.ContentRepository
	interactions InteractionReader
	logger       *slog.Logger
}

// NewFeed creates a Feed.
func NewFeed(content repositories.ContentRepository, interactions InteractionReader, logger *slog.Logger) *Feed {
	return &Feed{content: content, interactions: interactions, logger: logger}
}

// Recent returns the newest posts by creation time.
func (f *Feed) Recent(ctx context.Context, limit int) []models.Post {
	posts := f.content.ListPosts(ctx)
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return head(posts, limit)
}

// Popular returns the most liked posts. A post without an interaction record
// ranks by the likes it was created with.
func (f *Feed) Popular(ctx context.Context, limit int) []models.Post {
	posts := f.content.ListPosts(ctx)
	likes := make(map[string]int, len(posts))
	for _, p := range posts {
		likes[p.ID] = f.likesOf(ctx, p)
	}
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return cmp.Compare(likes[b.ID], likes[a.ID])
	})
	return head(posts, limit)
}

// Search matches query case-insensitively against title, content and author
// name. An empty query matches every post.
func (f *Feed) Search(ctx context.Context, query string) []models.Post {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Post{}
	for _, p := range f.content.ListPosts(ctx) {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q) ||
			strings.Contains(strings.ToLower(p.AuthorName), q) {
			out = append(out, p)
		}
	}
	return out
}

// Bookmarks returns the posts whose record is bookmarked.
func (f *Feed) Bookmarks(ctx context.Context) []models.Post {
	out := []models.Post{}
	for _, p := range f.content.ListPosts(ctx) {
		if f.interactions.GetStats(ctx, p.ID).Bookmarked {
			out = append(out, p)
		}
	}
	return out
}

// UserStats totals a user's content and the engagement on their posts.
// Bookmarks are counted across all posts since the bookmark flag is not
// per-user.
func (f *Feed) UserStats(ctx context.Context, userID string) models.UserStats {
	posts := f.content.ListPostsByAuthor(ctx, userID)
	stats := models.UserStats{
		TotalPosts:     len(posts),
		TotalDrafts:    len(f.content.ListDraftsByAuthor(ctx, userID)),
		TotalBookmarks: len(f.Bookmarks(ctx)),
	}
	for _, p := range posts {
		rec := f.interactions.GetStats(ctx, p.ID)
		stats.TotalLikes += rec.Likes
		stats.TotalComments += len(rec.Comments)
		stats.TotalViews += rec.Views
	}
	return stats
}

func (f *Feed) likesOf(ctx context.Context, p models.Post) int {
	rec, found, err := f.interactions.Lookup(ctx, p.ID)
	if err != nil {
		f.logger.Warn("interaction record unreadable, ranking by post likes", "post_id", p.ID, "error", err)
		return p.Likes
	}
	if !found {
		return p.Likes
	}
	return rec.Likes
}

func head(posts []models.Post, limit int) []models.Post {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
