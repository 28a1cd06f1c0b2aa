package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/response"
)

// UserHandler serves other users' profiles with privacy filtering applied.
// Routes run behind optional authentication so the same endpoints answer
// friends, strangers and anonymous visitors.
type UserHandler struct {
	users          *services.UserService
	participations *services.ParticipationService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(db *gorm.DB) (*UserHandler, error) {
	notificationService, err := services.NewNotificationService(db, nil, nil)
	if err != nil {
		return nil, err
	}
	friendService, err := services.NewFriendService(db, notificationService)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(db, friendService)
	if err != nil {
		return nil, err
	}
	participationService, err := services.NewParticipationService(db, friendService)
	if err != nil {
		return nil, err
	}
	return &UserHandler{users: userService, participations: participationService}, nil
}

// GET /api/users/:id
func (h *UserHandler) GetProfile(c *gin.Context) {
	targetID := strings.TrimSpace(c.Param("id"))
	viewerID := currentUserID(c)

	profile, err := h.users.GetProfile(requestContext(c), targetID, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// GET /api/users/:id/participations
func (h *UserHandler) ListParticipations(c *gin.Context) {
	targetID := strings.TrimSpace(c.Param("id"))
	viewerID := currentUserID(c)

	items, err := h.participations.ListForUser(requestContext(c), targetID, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}
