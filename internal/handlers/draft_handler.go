package handlers

import (
	"log/slog"
	"net/http"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/labstack/echo/v4"
)

// DraftHandler handles HTTP requests related to drafts and publishing
type DraftHandler struct {
	contentRepository      repositories.ContentRepository
	notificationRepository repositories.NotificationRepository
	publisher              *services.Publisher
	logger                 *slog.Logger
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(
	contentRepo repositories.ContentRepository,
	notifRepo repositories.NotificationRepository,
	publisher *services.Publisher,
	logger *slog.Logger,
) *DraftHandler {
	return &DraftHandler{
		contentRepository:      contentRepo,
		notificationRepository: notifRepo,
		publisher:              publisher,
		logger:                 logger,
	}
}

// RegisterDraftRoutes registers draft-related routes
func (h *DraftHandler) RegisterDraftRoutes(g *echo.Group) {
	g.POST("/drafts", h.CreateDraft)
	g.GET("/drafts", h.GetDrafts)
	g.GET("/drafts/:id", h.GetDraft)
	g.PUT("/drafts/:id", h.UpdateDraft)
	g.DELETE("/drafts/:id", h.DeleteDraft)
	g.POST("/drafts/:id/publish", h.PublishDraft)
	g.GET("/users/:uid/drafts", h.GetUserDrafts)
}

// CreateDraft saves a new draft for the current user
func (h *DraftHandler) CreateDraft(c echo.Context) error {
	ctx := c.Request().Context()

	var in models.PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	in = in.WithAuthor(currentIdentity(c))
	if err := validate(c, &in); err != nil {
		return err
	}

	draft, err := h.contentRepository.CreateDraft(ctx, in)
	if err != nil {
		return toHTTPError(err, "Draft not found")
	}

	if _, err := h.notificationRepository.Add(ctx, "Draft saved: "+draft.Title, models.NotificationDraft); err != nil {
		h.logger.Warn("draft notification dropped", "draft_id", draft.ID, "error", err)
	}
	return c.JSON(http.StatusCreated, draft)
}

// GetDrafts lists drafts, most recently created first
func (h *DraftHandler) GetDrafts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.contentRepository.ListDrafts(c.Request().Context()))
}

// GetDraft retrieves a draft by ID
func (h *DraftHandler) GetDraft(c echo.Context) error {
	draft, err := h.contentRepository.GetDraft(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Draft not found")
	}
	return c.JSON(http.StatusOK, draft)
}

// UpdateDraft applies a partial update to a draft
func (h *DraftHandler) UpdateDraft(c echo.Context) error {
	ctx := c.Request().Context()
	draftID := c.Param("id")

	var patch models.PostPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	existing, err := h.contentRepository.FindDraft(ctx, draftID)
	if err != nil {
		return toHTTPError(err, "Draft not found")
	}
	patch.Apply(existing)
	merged := existing.Input()
	if err := validate(c, &merged); err != nil {
		return err
	}

	draft, err := h.contentRepository.UpdateDraft(ctx, draftID, patch)
	if err != nil {
		return toHTTPError(err, "Draft not found")
	}
	return c.JSON(http.StatusOK, draft)
}

// DeleteDraft discards a draft
func (h *DraftHandler) DeleteDraft(c echo.Context) error {
	if err := h.contentRepository.DeleteDraft(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err, "Draft not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// PublishDraft turns a draft into a post and returns the post
func (h *DraftHandler) PublishDraft(c echo.Context) error {
	ctx := c.Request().Context()

	postID, err := h.publisher.Publish(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err, "Draft not found")
	}

	post, err := h.contentRepository.GetPost(ctx, postID)
	if err != nil {
		return c.JSON(http.StatusCreated, echo.Map{"id": postID})
	}
	return c.JSON(http.StatusCreated, post)
}

// GetUserDrafts lists a user's drafts, last edited first
func (h *DraftHandler) GetUserDrafts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.contentRepository.ListDraftsByAuthor(c.Request().Context(), c.Param("uid")))
}
