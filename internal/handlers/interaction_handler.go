package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
)

// InteractionHandler handles likes, bookmarks, comments and views on posts
type InteractionHandler struct {
	interactionRepository  repositories.InteractionRepository
	contentRepository      repositories.ContentRepository
	notificationRepository repositories.NotificationRepository
	logger                 *slog.Logger
}

// NewInteractionHandler creates a new InteractionHandler
func NewInteractionHandler(
	interactionRepo repositories.InteractionRepository,
	contentRepo repositories.ContentRepository,
	notifRepo repositories.NotificationRepository,
	logger *slog.Logger,
) *InteractionHandler {
	return &InteractionHandler{
		interactionRepository:  interactionRepo,
		contentRepository:      contentRepo,
		notificationRepository: notifRepo,
		logger:                 logger,
	}
}

// RegisterInteractionRoutes registers interaction routes
func (h *InteractionHandler) RegisterInteractionRoutes(g *echo.Group) {
	g.GET("/posts/:id/stats", h.GetStats)
	g.PUT("/posts/:id/stats", h.SetStats)
	g.DELETE("/posts/:id/stats", h.DeleteStats)
	g.POST("/posts/:id/like", h.LikePost)
	g.POST("/posts/:id/bookmark", h.BookmarkPost)
	g.POST("/posts/:id/comments", h.AddComment)
	g.POST("/posts/:id/views", h.RecordView)
}

// GetStats returns the interaction record of a post, zero-valued when it has none
func (h *InteractionHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.interactionRepository.GetStats(c.Request().Context(), c.Param("id")))
}

// SetStats overwrites the supplied fields of a post's interaction record
func (h *InteractionHandler) SetStats(c echo.Context) error {
	var patch models.StatsPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := validate(c, &patch); err != nil {
		return err
	}

	rec, err := h.interactionRepository.SetStats(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, rec)
}

// DeleteStats drops the interaction record of a post
func (h *InteractionHandler) DeleteStats(c echo.Context) error {
	if err := h.interactionRepository.DeleteStats(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// LikePost toggles the like on a post
func (h *InteractionHandler) LikePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.contentRepository.FindPost(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Post not found")
	}

	rec, err := h.interactionRepository.Like(ctx, post.ID)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	if rec.Liked {
		h.notify(ctx, "Someone liked: "+post.Title, models.NotificationLike)
	}
	return c.JSON(http.StatusOK, rec)
}

// BookmarkPost toggles the bookmark on a post
func (h *InteractionHandler) BookmarkPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.contentRepository.FindPost(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Post not found")
	}

	rec, err := h.interactionRepository.Bookmark(ctx, post.ID)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, rec)
}

// AddComment adds a comment by the current user to a post
func (h *InteractionHandler) AddComment(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if violations := validators.ValidateComment(req.Text); len(violations) > 0 {
		return validationFailed(violations)
	}

	post, err := h.contentRepository.FindPost(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Post not found")
	}

	rec, err := h.interactionRepository.AddComment(ctx, post.ID, req.Text, currentIdentity(c).DisplayName)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	h.notify(ctx, "New comment on: "+post.Title, models.NotificationComment)
	return c.JSON(http.StatusCreated, rec)
}

// RecordView counts one view of a post
func (h *InteractionHandler) RecordView(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.contentRepository.FindPost(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Post not found")
	}

	rec, err := h.interactionRepository.IncrementViews(ctx, post.ID)
	if err != nil {
		return toHTTPError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *InteractionHandler) notify(ctx context.Context, message, kind string) {
	if _, err := h.notificationRepository.Add(ctx, message, kind); err != nil {
		h.logger.Warn("notification dropped", "type", kind, "error", err)
	}
}
