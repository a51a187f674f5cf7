package handlers

import (
	"net/http"

	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	updateChecker          *services.UpdateChecker
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, checker *services.UpdateChecker) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		updateChecker:          checker,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.DELETE("/notifications", h.ClearNotifications)
	g.POST("/notifications/check", h.CheckForUpdates)
}

// GetNotifications returns the log, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, h.notificationRepository.List(c.Request().Context()))
}

// GetUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count := h.notificationRepository.UnreadCount(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

// MarkAsRead marks a single notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	if err := h.notificationRepository.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err, "Notification not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead marks every notification as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notificationRepository.MarkAllRead(c.Request().Context()); err != nil {
		return toHTTPError(err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}

// ClearNotifications empties the log
func (h *NotificationHandler) ClearNotifications(c echo.Context) error {
	if err := h.notificationRepository.Clear(c.Request().Context()); err != nil {
		return toHTTPError(err, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckForUpdates looks for activity on the current user's posts since their
// last check. It answers 204 when there is nothing new.
func (h *NotificationHandler) CheckForUpdates(c echo.Context) error {
	n, err := h.updateChecker.CheckSinceLastLogin(c.Request().Context(), currentIdentity(c).UID)
	if err != nil {
		return toHTTPError(err, "")
	}
	if n == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, n)
}
