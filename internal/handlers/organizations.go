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

// OrganizationHandler manages publishing organizations and following them.
type OrganizationHandler struct {
	orgs    *services.OrganizationService
	follows *services.FollowService
}

// NewOrganizationHandler constructs an organization handler.
func NewOrganizationHandler(db *gorm.DB, hub *notifications.Hub, sender telegram.Sender) (*OrganizationHandler, error) {
	orgService, err := services.NewOrganizationService(db)
	if err != nil {
		return nil, err
	}
	notificationService, err := services.NewNotificationService(db, hub, sender)
	if err != nil {
		return nil, err
	}
	followService, err := services.NewFollowService(db, notificationService)
	if err != nil {
		return nil, err
	}
	return &OrganizationHandler{orgs: orgService, follows: followService}, nil
}

type organizationRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=2048"`
	Website     string `json:"website" validate:"omitempty,max=512"`
	Logo        string `json:"logo" validate:"omitempty,max=512"`
}

// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// GET /api/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	followers, err := h.follows.FollowerCount(requestContext(c), org.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"organization": org,
		"followers":    followers,
	})
}

// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req organizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Create(requestContext(c), services.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Logo:        req.Logo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, org)
}

// PUT /api/organizations/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req organizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Update(requestContext(c), c.Param("id"), services.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Logo:        req.Logo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, org)
}

// DELETE /api/organizations/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.orgs.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type followRequest struct {
	Following bool `json:"following"`
}

// POST /api/organizations/:id/follow
func (h *OrganizationHandler) SetFollow(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req followRequest
	if !bindAndValidate(c, &req) {
		return
	}

	changed, err := h.follows.SetFollowing(requestContext(c), userID, strings.TrimSpace(c.Param("id")), req.Following)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"following": req.Following, "changed": changed})
}

// GET /api/organizations/:id/follow/status
func (h *OrganizationHandler) FollowStatus(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	following, err := h.follows.IsFollowing(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"following": following})
}

// GET /api/organizations/followed
func (h *OrganizationHandler) ListFollowed(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	orgs, err := h.follows.ListFollowed(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, orgs)
}
