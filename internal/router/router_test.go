package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = models.Identity{UID: "u1", DisplayName: "Ada", Email: "ada@example.com"}

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, backend kv.Backend) *api {
	t.Helper()
	e := echo.New()
	e.Validator = validators.NewValidator()
	SetupRoutes(e, backend, middleware.StaticIdentity(ada), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &api{t: t, e: e}
}

func (a *api) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostLifecycle(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))

	rec := a.do(http.MethodPost, "/posts", `{"title":"Hello","content":"World","authorId":"spoofed"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[models.Post](t, rec)
	assert.Equal(t, "u1", post.AuthorID, "author comes from the identity provider")
	assert.Equal(t, "Ada", post.AuthorName)

	rec = a.do(http.MethodGet, "/posts/"+post.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, post, decode[models.Post](t, rec))

	rec = a.do(http.MethodPut, "/posts/"+post.ID, `{"title":"Hello again","id":"other"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Post](t, rec)
	assert.Equal(t, post.ID, updated.ID)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "World", updated.Content)

	rec = a.do(http.MethodGet, "/users/u1/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Post](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/posts/"+post.ID, "").Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/posts/"+post.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/posts/"+post.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPut, "/posts/"+post.ID, `{"title":"x"}`).Code)
}

func TestValidationErrors(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))

	rec := a.do(http.MethodPost, "/posts", `{"title":"`+strings.Repeat("a", 101)+`","content":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"Title must be less than 100 characters"}, body["errors"])

	rec = a.do(http.MethodGet, "/posts", "")
	assert.Empty(t, decode[[]models.Post](t, rec), "an invalid post is never stored")

	rec = a.do(http.MethodPost, "/posts", `{"title":"ok","content":"ok"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[models.Post](t, rec)
	rec = a.do(http.MethodPut, "/posts/"+post.ID, `{"content":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Content is required"}, decode[map[string][]string](t, rec)["errors"])

	rec = a.do(http.MethodPost, "/posts/"+post.ID+"/comments", `{"text":" "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Comment cannot be empty"}, decode[map[string][]string](t, rec)["errors"])

	rec = a.do(http.MethodPut, "/posts/"+post.ID+"/stats", `{"views":-3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/validate", `{"title":"","content":"x","images":["1","2","3","4","5"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}](t, rec)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"Title is required", "Maximum 4 images allowed"}, v.Errors)
}

func TestDraftPublishFlow(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))

	rec := a.do(http.MethodPost, "/drafts", `{"title":"Draft A","content":"..."}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	draft := decode[models.Post](t, rec)
	assert.Equal(t, models.StatusDraft, draft.Status)

	rec = a.do(http.MethodGet, "/users/u1/drafts", "")
	assert.Len(t, decode[[]models.Post](t, rec), 1)

	rec = a.do(http.MethodPost, "/drafts/"+draft.ID+"/publish", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[models.Post](t, rec)
	assert.NotEqual(t, draft.ID, post.ID)
	assert.Equal(t, models.StatusPublished, post.Status)

	assert.Empty(t, decode[[]models.Post](t, a.do(http.MethodGet, "/drafts", "")))
	assert.Len(t, decode[[]models.Post](t, a.do(http.MethodGet, "/posts", "")), 1)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/drafts/"+draft.ID+"/publish", "").Code)

	notes := decode[[]models.Notification](t, a.do(http.MethodGet, "/notifications", ""))
	require.Len(t, notes, 2)
	assert.Equal(t, "Published: Draft A", notes[0].Message)
	assert.Equal(t, "Draft saved: Draft A", notes[1].Message)
}

func TestInteractions(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))
	post := decode[models.Post](t, a.do(http.MethodPost, "/posts", `{"title":"Hello","content":"World"}`))
	base := "/posts/" + post.ID

	rec := a.do(http.MethodGet, base+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ZeroInteraction(), decode[models.InteractionRecord](t, rec))

	rec = a.do(http.MethodPost, base+"/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	liked := decode[models.InteractionRecord](t, rec)
	assert.Equal(t, 1, liked.Likes)
	assert.True(t, liked.Liked)

	rec = a.do(http.MethodPost, base+"/like", "")
	unliked := decode[models.InteractionRecord](t, rec)
	assert.Equal(t, 0, unliked.Likes)
	assert.False(t, unliked.Liked)

	rec = a.do(http.MethodPost, base+"/comments", `{"text":"Nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	commented := decode[models.InteractionRecord](t, rec)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, "Ada", commented.Comments[0].Author)

	rec = a.do(http.MethodPost, base+"/views", "")
	assert.Equal(t, 1, decode[models.InteractionRecord](t, rec).Views)

	rec = a.do(http.MethodPost, base+"/bookmark", "")
	assert.True(t, decode[models.InteractionRecord](t, rec).Bookmarked)
	assert.Len(t, decode[[]models.Post](t, a.do(http.MethodGet, "/bookmarks", "")), 1)

	rec = a.do(http.MethodPut, base+"/stats", `{"likes":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, decode[models.InteractionRecord](t, rec).Likes)

	stats := decode[models.UserStats](t, a.do(http.MethodGet, "/users/u1/stats", ""))
	assert.Equal(t, models.UserStats{TotalPosts: 1, TotalBookmarks: 1, TotalLikes: 42, TotalComments: 1, TotalViews: 1}, stats)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base+"/stats", "").Code)
	assert.Equal(t, models.ZeroInteraction(), decode[models.InteractionRecord](t, a.do(http.MethodGet, base+"/stats", "")))

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/posts/missing/like", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/posts/missing/comments", `{"text":"hi"}`).Code)
}

func TestFeedRoutes(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))
	for _, title := range []string{"Go tips", "Rust notes", "Go again"} {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/posts", `{"title":"`+title+`","content":"body"}`).Code)
	}

	recent := decode[[]models.Post](t, a.do(http.MethodGet, "/feed/recent?limit=2", ""))
	require.Len(t, recent, 2)
	assert.Equal(t, "Go again", recent[0].Title)

	found := decode[[]models.Post](t, a.do(http.MethodGet, "/feed/search?q=go", ""))
	assert.Len(t, found, 2)

	popular := decode[[]models.Post](t, a.do(http.MethodGet, "/feed/popular", ""))
	assert.Len(t, popular, 3)
}

func TestNotificationRoutes(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))
	post := decode[models.Post](t, a.do(http.MethodPost, "/posts", `{"title":"Mine","content":"c"}`))
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/posts/"+post.ID+"/like", "").Code)

	rec := a.do(http.MethodPost, "/notifications/check", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1 of your posts have new activity", decode[models.Notification](t, rec).Message)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/notifications/check", "").Code)

	count := decode[map[string]int](t, a.do(http.MethodGet, "/notifications/unread-count", ""))
	assert.Equal(t, 2, count["unread_count"])

	notes := decode[[]models.Notification](t, a.do(http.MethodGet, "/notifications", ""))
	require.NotEmpty(t, notes)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPut, "/notifications/"+notes[0].ID+"/read", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPut, "/notifications/nope/read", "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPut, "/notifications/read-all", "").Code)
	assert.Equal(t, 0, decode[map[string]int](t, a.do(http.MethodGet, "/notifications/unread-count", ""))["unread_count"])

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/notifications", "").Code)
	assert.Empty(t, decode[[]models.Notification](t, a.do(http.MethodGet, "/notifications", "")))
}

func TestBackupRoutes(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(0))
	post := decode[models.Post](t, a.do(http.MethodPost, "/posts", `{"title":"Keep","content":"me"}`))
	a.do(http.MethodPost, "/posts/"+post.ID+"/like", "")

	rec := a.do(http.MethodGet, "/backup/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "blog-backup-")
	exported := rec.Body.String()

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/backup/reset", "").Code)
	assert.Empty(t, decode[[]models.Post](t, a.do(http.MethodGet, "/posts", "")))

	rec = a.do(http.MethodPost, "/backup/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	posts := decode[[]models.Post](t, a.do(http.MethodGet, "/posts", ""))
	require.Len(t, posts, 1)
	assert.Equal(t, post, posts[0])
	assert.Equal(t, 1, decode[models.InteractionRecord](t, a.do(http.MethodGet, "/posts/"+post.ID+"/stats", "")).Likes)

	rec = a.do(http.MethodPost, "/backup/import", `{"posts":[{"id":"a"},{"id":"a"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageFailuresMapTo503(t *testing.T) {
	a := newAPI(t, kv.NewMemoryBackend(64))

	rec := a.do(http.MethodPost, "/posts", `{"title":"Too big","content":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = a.do(http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorruptCollectionsFailWritesWith503(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryBackend(0)
	a := newAPI(t, backend)
	post := decode[models.Post](t, a.do(http.MethodPost, "/posts", `{"title":"Keep","content":"me"}`))
	draft := decode[models.Post](t, a.do(http.MethodPost, "/drafts", `{"title":"Later","content":"me"}`))

	require.NoError(t, backend.Set(ctx, repositories.PostsKey, "{not json"))
	require.NoError(t, backend.Set(ctx, repositories.DraftsKey, "{not json"))

	writes := []struct{ method, path, body string }{
		{http.MethodPut, "/posts/" + post.ID, `{"title":"New"}`},
		{http.MethodDelete, "/posts/" + post.ID, ""},
		{http.MethodPost, "/posts/" + post.ID + "/like", ""},
		{http.MethodPost, "/posts/" + post.ID + "/views", ""},
		{http.MethodPut, "/drafts/" + draft.ID, `{"title":"New"}`},
		{http.MethodDelete, "/drafts/" + draft.ID, ""},
		{http.MethodPost, "/drafts/" + draft.ID + "/publish", ""},
	}
	for _, w := range writes {
		rec := a.do(w.method, w.path, w.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "%s %s: %s", w.method, w.path, rec.Body.String())
	}

	// Reads stay available.
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/posts", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/posts/"+post.ID, "").Code)
}

func TestConcurrentRequestsKeepEveryWrite(t *testing.T) {
	backend, err := kv.NewSQLiteBackend(filepath.Join(t.TempDir(), "quill.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	a := newAPI(t, backend)

	const n = 40
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- a.do(http.MethodPost, "/posts", `{"title":"Hi","content":"there"}`).Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusCreated, code)
	}
	posts := decode[[]models.Post](t, a.do(http.MethodGet, "/posts", ""))
	require.Len(t, posts, n)

	target := posts[0].ID
	codes = make(chan int, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- a.do(http.MethodPost, "/posts/"+target+"/views", "").Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, n, decode[models.InteractionRecord](t, a.do(http.MethodGet, "/posts/"+target+"/stats", "")).Views)
}
