package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/notifications"
	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/response"
	"github.com/aruzhans/oppora/pkg/telegram"
)

// ApplicationHandler tracks user applications to opportunities.
type ApplicationHandler struct {
	applications *services.ApplicationService
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(db *gorm.DB, hub *notifications.Hub, sender telegram.Sender, cfg services.ApplicationConfig) (*ApplicationHandler, error) {
	notificationService, err := services.NewNotificationService(db, hub, sender)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewApplicationService(db, notificationService, cfg)
	if err != nil {
		return nil, err
	}
	return &ApplicationHandler{applications: svc}, nil
}

type applyRequest struct {
	IsApplied bool `json:"is_applied"`
}

// POST /api/opportunities/:id/apply
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req applyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applications.Apply(requestContext(c), userID, strings.TrimSpace(c.Param("id")), req.IsApplied)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, application)
}

type confirmRequest struct {
	Completed bool `json:"completed"`
}

// POST /api/applications/:id/confirm
func (h *ApplicationHandler) Confirm(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req confirmRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applications.Confirm(requestContext(c), userID, strings.TrimSpace(c.Param("id")), req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, application)
}

// GET /api/applications
func (h *ApplicationHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := h.applications.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// GET /api/applications/unconfirmed
func (h *ApplicationHandler) ListUnconfirmed(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := h.applications.ListUnconfirmed(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}
