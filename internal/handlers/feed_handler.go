package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/quill/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed *services.Feed
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed *services.Feed) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed/recent", h.GetRecent)
	g.GET("/feed/popular", h.GetPopular)
	g.GET("/feed/search", h.Search)
	g.GET("/bookmarks", h.GetBookmarks)
	g.GET("/users/:uid/stats", h.GetUserStats)
}

// GetRecent returns the newest posts. ?limit defaults to 5.
func (h *FeedHandler) GetRecent(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Recent(c.Request().Context(), limitParam(c)))
}

// GetPopular returns the most liked posts. ?limit defaults to 5.
func (h *FeedHandler) GetPopular(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Popular(c.Request().Context(), limitParam(c)))
}

// Search matches ?q against title, content and author name
func (h *FeedHandler) Search(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Search(c.Request().Context(), c.QueryParam("q")))
}

// GetBookmarks returns bookmarked posts
func (h *FeedHandler) GetBookmarks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.Bookmarks(c.Request().Context()))
}

// GetUserStats returns content and engagement totals for a user
func (h *FeedHandler) GetUserStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.feed.UserStats(c.Request().Context(), c.Param("uid")))
}

func limitParam(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = services.DefaultFeedLimit
	}
	return limit
}
