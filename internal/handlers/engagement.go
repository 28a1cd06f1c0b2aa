package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/response"
)

// EngagementHandler tracks bookmarks and opportunity views for the current
// user.
type EngagementHandler struct {
	engagement *services.EngagementService
}

// NewEngagementHandler constructs an engagement handler.
func NewEngagementHandler(db *gorm.DB) (*EngagementHandler, error) {
	svc, err := services.NewEngagementService(db)
	if err != nil {
		return nil, err
	}
	return &EngagementHandler{engagement: svc}, nil
}

type bookmarkRequest struct {
	Bookmarked bool `json:"bookmarked"`
}

// POST /api/opportunities/:id/bookmark
func (h *EngagementHandler) SetBookmark(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req bookmarkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	changed, err := h.engagement.SetBookmark(requestContext(c), userID, strings.TrimSpace(c.Param("id")), req.Bookmarked)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookmarked": req.Bookmarked, "changed": changed})
}

// GET /api/opportunities/:id/bookmark/status
func (h *EngagementHandler) BookmarkStatus(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	bookmarked, err := h.engagement.IsBookmarked(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookmarked": bookmarked})
}

// GET /api/profile/bookmarks
func (h *EngagementHandler) ListBookmarks(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := h.engagement.ListBookmarks(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// POST /api/opportunities/:id/view
//
// Records a view. Repeat views by the same user do not bump the counter, so
// the endpoint is safe to call on every page load.
func (h *EngagementHandler) MarkViewed(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	counted, err := h.engagement.MarkViewed(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"counted": counted})
}

// GET /api/opportunities/:id/check-view
func (h *EngagementHandler) ViewStatus(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	viewed, viewedAt, err := h.engagement.HasViewed(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := gin.H{"viewed": viewed}
	if viewedAt != nil {
		payload["viewed_at"] = viewedAt
	}
	response.Success(c, http.StatusOK, payload)
}

// GET /api/profile/viewed-opportunities
func (h *EngagementHandler) ViewHistory(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	limit := parseIntQuery(c, "limit", 20)
	page := parseIntQuery(c, "page", 1)

	items, err := h.engagement.ViewHistory(requestContext(c), userID, limit, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}
