package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/privacy"
	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/response"
)

// ParticipationHandler manages the current user's participation history.
type ParticipationHandler struct {
	participations *services.ParticipationService
}

// NewParticipationHandler constructs a participation handler.
func NewParticipationHandler(db *gorm.DB) (*ParticipationHandler, error) {
	notificationService, err := services.NewNotificationService(db, nil, nil)
	if err != nil {
		return nil, err
	}
	friendService, err := services.NewFriendService(db, notificationService)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewParticipationService(db, friendService)
	if err != nil {
		return nil, err
	}
	return &ParticipationHandler{participations: svc}, nil
}

type createParticipationRequest struct {
	Year         int    `json:"year" validate:"required"`
	PrivacyLevel string `json:"privacy_level" validate:"omitempty,max=16"`
	Feedback     string `json:"feedback" validate:"omitempty,max=4096"`
}

// POST /api/opportunities/:id/participations
func (h *ParticipationHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createParticipationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	participation, err := h.participations.Create(requestContext(c), services.CreateParticipationInput{
		UserID:        userID,
		OpportunityID: strings.TrimSpace(c.Param("id")),
		Year:          req.Year,
		PrivacyLevel:  privacy.Level(strings.TrimSpace(req.PrivacyLevel)),
		Feedback:      req.Feedback,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, participation)
}

// GET /api/participations
func (h *ParticipationHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := h.participations.ListForUser(requestContext(c), userID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

type participationPrivacyRequest struct {
	PrivacyLevel string `json:"privacy_level" validate:"required,max=16"`
}

// PUT /api/participations/:id/privacy
func (h *ParticipationHandler) UpdatePrivacy(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req participationPrivacyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	participation, err := h.participations.UpdatePrivacy(
		requestContext(c),
		userID,
		strings.TrimSpace(c.Param("id")),
		privacy.Level(strings.TrimSpace(req.PrivacyLevel)),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, participation)
}

// DELETE /api/participations/:id
func (h *ParticipationHandler) Delete(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.participations.Delete(requestContext(c), userID, strings.TrimSpace(c.Param("id"))); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
