package handlers

import (
	"net/http"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to published posts
type PostHandler struct {
	contentRepository repositories.ContentRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(contentRepo repositories.ContentRepository) *PostHandler {
	return &PostHandler{contentRepository: contentRepo}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/users/:uid/posts", h.GetUserPosts)
}

// CreatePost publishes a new post authored by the current user
func (h *PostHandler) CreatePost(c echo.Context) error {
	var in models.PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	in = in.WithAuthor(currentIdentity(c))
	if err := validate(c, &in); err != nil {
		return err
	}

	post, err := h.contentRepository.CreatePost(c.Request().Context(), in)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPosts lists published posts, most recent first
func (h *PostHandler) GetPosts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.contentRepository.ListPosts(c.Request().Context()))
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.contentRepository.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost applies a partial update. The merged post must still pass validation.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("id")

	var patch models.PostPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	existing, err := h.contentRepository.FindPost(ctx, postID)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	patch.Apply(existing)
	merged := existing.Input()
	if err := validate(c, &merged); err != nil {
		return err
	}

	post, err := h.contentRepository.UpdatePost(ctx, postID, patch)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost removes a post and its interactions. Deleting twice is not an error.
func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.contentRepository.DeletePost(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUserPosts lists a user's posts, newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.contentRepository.ListPostsByAuthor(c.Request().Context(), c.Param("uid")))
}
