package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
)

// BackupHandler exposes export, import, reset and validation
type BackupHandler struct {
	backup *services.Backup
}

// NewBackupHandler creates a new BackupHandler
func NewBackupHandler(backup *services.Backup) *BackupHandler {
	return &BackupHandler{backup: backup}
}

// RegisterBackupRoutes registers backup routes
func (h *BackupHandler) RegisterBackupRoutes(g *echo.Group) {
	g.GET("/backup/export", h.Export)
	g.POST("/backup/import", h.Import)
	g.POST("/backup/reset", h.Reset)
	g.POST("/validate", h.Validate)
}

// Export downloads a snapshot of posts, drafts and interactions
func (h *BackupHandler) Export(c echo.Context) error {
	snap, err := h.backup.ExportAll(c.Request().Context())
	if err != nil {
		return toHTTPError(err, "")
	}
	filename := fmt.Sprintf("blog-backup-%s.json", snap.ExportDate.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.JSON(http.StatusOK, snap)
}

// Import replaces all content with the uploaded snapshot
func (h *BackupHandler) Import(c echo.Context) error {
	var snap models.Snapshot
	if err := c.Bind(&snap); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid snapshot")
	}
	if err := h.backup.ImportAll(c.Request().Context(), snap); err != nil {
		return toHTTPError(err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"posts":        len(snap.Posts),
		"drafts":       len(snap.Drafts),
		"interactions": len(snap.Interactions),
	})
}

// Reset removes all posts, drafts and interactions
func (h *BackupHandler) Reset(c echo.Context) error {
	if err := h.backup.ResetAll(c.Request().Context()); err != nil {
		return toHTTPError(err, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// Validate checks a post payload without storing it
func (h *BackupHandler) Validate(c echo.Context) error {
	var in models.PostInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	violations := validators.ValidatePost(in)
	if violations == nil {
		violations = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": len(violations) == 0, "errors": violations})
}
