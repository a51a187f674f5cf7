package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/pkg/kv"
)

// Blob keys of the two content collections.
const (
	PostsKey  = "posts-collection"
	DraftsKey = "drafts-collection"
)

// ContentRepository defines the operations on published posts and drafts.
// List and Get never fail on storage errors: an unreadable collection reads
// as empty. Find is the strict lookup write paths use before modifying a
// record.
type ContentRepository interface {
	ListPosts(ctx context.Context) []models.Post
	ListDrafts(ctx context.Context) []models.Post
	GetPost(ctx context.Context, id string) (*models.Post, error)
	GetDraft(ctx context.Context, id string) (*models.Post, error)
	FindPost(ctx context.Context, id string) (*models.Post, error)
	FindDraft(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error)
	CreateDraft(ctx context.Context, in models.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	UpdateDraft(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	DeleteDraft(ctx context.Context, id string) error
	ListPostsByAuthor(ctx context.Context, authorID string) []models.Post
	ListDraftsByAuthor(ctx context.Context, authorID string) []models.Post
}

// StatsDeleter removes the interaction record of a post.
type StatsDeleter interface {
	DeleteStats(ctx context.Context, postID string) error
}

type collection struct {
	key    string
	status models.Status
	noun   string
}

var (
	postsCollection  = collection{key: PostsKey, status: models.StatusPublished, noun: "post"}
	draftsCollection = collection{key: DraftsKey, status: models.StatusDraft, noun: "draft"}
)

// KVContentRepository implements ContentRepository with one serialized blob
// per collection. Every write replaces the whole blob.
type KVContentRepository struct {
	backend kv.Backend
	stats   StatsDeleter
	ids     *IDGenerator
	now     Clock
	logger  *slog.Logger
	mu      *sync.Mutex
}

// NewKVContentRepository creates a KVContentRepository. stats is told to drop
// a post's interaction record whenever that post is deleted.
func NewKVContentRepository(backend kv.Backend, stats StatsDeleter, opts ...Option) *KVContentRepository {
	return newKVContentRepository(backend, stats, newSettings(opts))
}

func newKVContentRepository(backend kv.Backend, stats StatsDeleter, s settings) *KVContentRepository {
	return &KVContentRepository{
		backend: backend,
		stats:   stats,
		ids:     s.ids,
		now:     s.now,
		logger:  s.logger,
		mu:      s.mu,
	}
}

var _ ContentRepository = (*KVContentRepository)(nil)

// ListPosts returns published posts, most recent first.
func (r *KVContentRepository) ListPosts(ctx context.Context) []models.Post {
	return r.list(ctx, postsCollection)
}

// ListDrafts returns drafts, most recently created first.
func (r *KVContentRepository) ListDrafts(ctx context.Context) []models.Post {
	return r.list(ctx, draftsCollection)
}

// GetPost retrieves a published post by id.
func (r *KVContentRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return r.get(ctx, postsCollection, id)
}

// GetDraft retrieves a draft by id.
func (r *KVContentRepository) GetDraft(ctx context.Context, id string) (*models.Post, error) {
	return r.get(ctx, draftsCollection, id)
}

// FindPost retrieves a published post by id, returning ErrStorageUnavailable
// when the collection cannot be read.
func (r *KVContentRepository) FindPost(ctx context.Context, id string) (*models.Post, error) {
	return r.find(ctx, postsCollection, id)
}

// FindDraft is the strict counterpart of GetDraft.
func (r *KVContentRepository) FindDraft(ctx context.Context, id string) (*models.Post, error) {
	return r.find(ctx, draftsCollection, id)
}

// CreatePost publishes a new post. Any interaction record left under the
// new id is cleared first so the post starts from the zero-state.
func (r *KVContentRepository) CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error) {
	return r.create(ctx, postsCollection, in)
}

// CreateDraft stores a new draft.
func (r *KVContentRepository) CreateDraft(ctx context.Context, in models.PostInput) (*models.Post, error) {
	return r.create(ctx, draftsCollection, in)
}

// UpdatePost merges patch into an existing post.
func (r *KVContentRepository) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	return r.update(ctx, postsCollection, id, patch)
}

// UpdateDraft merges patch into an existing draft.
func (r *KVContentRepository) UpdateDraft(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	return r.update(ctx, draftsCollection, id, patch)
}

// DeletePost removes a post and then its interaction record. The cleanup
// runs even when the post is already gone, so repeating a delete that failed
// half-way finishes the job. A crash between the two writes leaves only an
// orphan interaction record.
func (r *KVContentRepository) DeletePost(ctx context.Context, id string) error {
	if err := r.remove(ctx, postsCollection, id); err != nil {
		return err
	}
	if r.stats == nil {
		return nil
	}
	if err := r.stats.DeleteStats(ctx, id); err != nil {
		return fmt.Errorf("clean up interactions of post %s: %w", id, err)
	}
	return nil
}

// DeleteDraft removes a draft. Deleting a missing draft succeeds.
func (r *KVContentRepository) DeleteDraft(ctx context.Context, id string) error {
	return r.remove(ctx, draftsCollection, id)
}

// ListPostsByAuthor returns an author's posts, newest publication first.
func (r *KVContentRepository) ListPostsByAuthor(ctx context.Context, authorID string) []models.Post {
	posts := filterByAuthor(r.list(ctx, postsCollection), authorID)
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return posts
}

// ListDraftsByAuthor returns an author's drafts, last edited first.
func (r *KVContentRepository) ListDraftsByAuthor(ctx context.Context, authorID string) []models.Post {
	drafts := filterByAuthor(r.list(ctx, draftsCollection), authorID)
	slices.SortStableFunc(drafts, func(a, b models.Post) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return drafts
}

// AllPosts reads the post collection and reports storage failures instead
// of degrading.
func (r *KVContentRepository) AllPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := r.load(ctx, postsCollection)
	if err != nil {
		return nil, unavailable("read posts", err)
	}
	return posts, nil
}

// AllDrafts is the strict counterpart of ListDrafts.
func (r *KVContentRepository) AllDrafts(ctx context.Context) ([]models.Post, error) {
	drafts, err := r.load(ctx, draftsCollection)
	if err != nil {
		return nil, unavailable("read drafts", err)
	}
	return drafts, nil
}

// ReplacePosts overwrites the post collection.
func (r *KVContentRepository) ReplacePosts(ctx context.Context, posts []models.Post) error {
	return r.save(ctx, postsCollection, posts)
}

// ReplaceDrafts overwrites the draft collection.
func (r *KVContentRepository) ReplaceDrafts(ctx context.Context, drafts []models.Post) error {
	return r.save(ctx, draftsCollection, drafts)
}

// Clear removes both collections.
func (r *KVContentRepository) Clear(ctx context.Context) error {
	for _, c := range []collection{postsCollection, draftsCollection} {
		if err := r.backend.Remove(ctx, c.key); err != nil {
			return unavailable("clear "+c.noun+"s", err)
		}
	}
	return nil
}

func (r *KVContentRepository) load(ctx context.Context, c collection) ([]models.Post, error) {
	var posts []models.Post
	if _, err := readJSON(ctx, r.backend, c.key, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (r *KVContentRepository) list(ctx context.Context, c collection) []models.Post {
	posts, err := r.load(ctx, c)
	if err != nil {
		r.logger.Warn("content collection unreadable, serving empty list",
			"collection", c.key, "error", err)
		return []models.Post{}
	}
	return posts
}

func (r *KVContentRepository) save(ctx context.Context, c collection, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}
	if err := writeJSON(ctx, r.backend, c.key, posts); err != nil {
		return unavailable("save "+c.noun+"s", err)
	}
	return nil
}

func (r *KVContentRepository) get(ctx context.Context, c collection, id string) (*models.Post, error) {
	for _, p := range r.list(ctx, c) {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", c.noun, id, ErrNotFound)
}

func (r *KVContentRepository) find(ctx context.Context, c collection, id string) (*models.Post, error) {
	posts, err := r.load(ctx, c)
	if err != nil {
		return nil, unavailable("read "+c.noun, err)
	}
	if i := indexOf(posts, id); i >= 0 {
		return &posts[i], nil
	}
	return nil, fmt.Errorf("%s %s: %w", c.noun, id, ErrNotFound)
}

func (r *KVContentRepository) create(ctx context.Context, c collection, in models.PostInput) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.load(ctx, c)
	if err != nil {
		return nil, unavailable("create "+c.noun, err)
	}

	// Ids written by another process or before a clock step back stay behind
	// the next one.
	for _, p := range existing {
		r.ids.Advance(p.ID)
	}
	id := r.ids.Next()
	if indexOf(existing, id) >= 0 {
		return nil, fmt.Errorf("%s %s: %w", c.noun, id, ErrDuplicateID)
	}

	now := r.now()
	post := models.Post{
		ID:          id,
		Title:       in.Title,
		Content:     in.Content,
		Images:      append([]string{}, in.Images...),
		AuthorID:    in.AuthorID,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Likes:       0,
		Comments:    []models.Comment{},
		Views:       0,
		Status:      c.status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if c == postsCollection && r.stats != nil {
		if err := r.stats.DeleteStats(ctx, id); err != nil {
			return nil, fmt.Errorf("reset interactions of post %s: %w", id, err)
		}
	}

	if err := r.save(ctx, c, append([]models.Post{post}, existing...)); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *KVContentRepository) update(ctx context.Context, c collection, id string, patch models.PostPatch) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load(ctx, c)
	if err != nil {
		return nil, unavailable("update "+c.noun, err)
	}

	i := indexOf(posts, id)
	if i < 0 {
		return nil, fmt.Errorf("%s %s: %w", c.noun, id, ErrNotFound)
	}

	patch.Apply(&posts[i])
	posts[i].ID = id
	posts[i].UpdatedAt = r.now()

	if err := r.save(ctx, c, posts); err != nil {
		return nil, err
	}
	updated := posts[i]
	return &updated, nil
}

func (r *KVContentRepository) remove(ctx context.Context, c collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load(ctx, c)
	if err != nil {
		return unavailable("delete "+c.noun, err)
	}

	before := len(posts)
	posts = slices.DeleteFunc(posts, func(p models.Post) bool { return p.ID == id })
	if len(posts) == before {
		return nil
	}
	return r.save(ctx, c, posts)
}

func indexOf(posts []models.Post, id string) int {
	return slices.IndexFunc(posts, func(p models.Post) bool { return p.ID == id })
}

func filterByAuthor(posts []models.Post, authorID string) []models.Post {
	out := []models.Post{}
	for _, p := range posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out
}
