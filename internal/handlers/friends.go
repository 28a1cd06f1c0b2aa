package handlers

import (
	"context"
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

// FriendHandler exposes friend requests and the resulting friendships.
type FriendHandler struct {
	friends *services.FriendService
}

// NewFriendHandler constructs a friend handler.
func NewFriendHandler(db *gorm.DB, hub *notifications.Hub, sender telegram.Sender) (*FriendHandler, error) {
	notificationService, err := services.NewNotificationService(db, hub, sender)
	if err != nil {
		return nil, err
	}
	friendService, err := services.NewFriendService(db, notificationService)
	if err != nil {
		return nil, err
	}
	return &FriendHandler{friends: friendService}, nil
}

type sendFriendRequestBody struct {
	UserID string `json:"user_id" validate:"required"`
}

// POST /api/friends/requests
func (h *FriendHandler) SendRequest(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req sendFriendRequestBody
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.friends.SendRequest(requestContext(c), userID, strings.TrimSpace(req.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// GET /api/friends/requests/incoming
func (h *FriendHandler) ListIncoming(c *gin.Context) {
	h.listRequests(c, h.friends.ListIncoming)
}

// GET /api/friends/requests/outgoing
func (h *FriendHandler) ListOutgoing(c *gin.Context) {
	h.listRequests(c, h.friends.ListOutgoing)
}

func (h *FriendHandler) listRequests(c *gin.Context, list func(ctx context.Context, userID string) ([]services.FriendRequestDTO, error)) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := list(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

type respondFriendRequestBody struct {
	Accept bool `json:"accept"`
}

// POST /api/friends/requests/:id
func (h *FriendHandler) Respond(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req respondFriendRequestBody
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.friends.Respond(requestContext(c), userID, strings.TrimSpace(c.Param("id")), req.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// GET /api/friends
func (h *FriendHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	friends, err := h.friends.ListFriends(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, friends)
}

// DELETE /api/friends/:id
func (h *FriendHandler) Unfriend(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.friends.Unfriend(requestContext(c), userID, strings.TrimSpace(c.Param("id"))); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
