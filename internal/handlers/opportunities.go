package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/response"
)

// OpportunityHandler manages the opportunity catalog.
type OpportunityHandler struct {
	opportunities *services.OpportunityService
}

// NewOpportunityHandler constructs an opportunity handler.
func NewOpportunityHandler(db *gorm.DB) (*OpportunityHandler, error) {
	svc, err := services.NewOpportunityService(db)
	if err != nil {
		return nil, err
	}
	return &OpportunityHandler{opportunities: svc}, nil
}

type opportunityRequest struct {
	Title          string     `json:"title" validate:"required,min=3,max=256"`
	Description    string     `json:"description" validate:"omitempty,max=8192"`
	ExternalURL    string     `json:"external_url" validate:"omitempty,max=512"`
	CategoryID     string     `json:"category_id" validate:"required"`
	OrganizationID string     `json:"organization_id" validate:"required"`
	Status         string     `json:"status" validate:"omitempty,max=32"`
	StartDate      *time.Time `json:"start_date"`
	Deadline       *time.Time `json:"deadline"`
	EndDate        *time.Time `json:"end_date"`
	IsPopular      *bool      `json:"is_popular"`
	IsNew          *bool      `json:"is_new"`
}

func (r opportunityRequest) toInput() services.OpportunityInput {
	return services.OpportunityInput{
		Title:          r.Title,
		Description:    r.Description,
		ExternalURL:    r.ExternalURL,
		CategoryID:     r.CategoryID,
		OrganizationID: r.OrganizationID,
		Status:         r.Status,
		StartDate:      r.StartDate,
		Deadline:       r.Deadline,
		EndDate:        r.EndDate,
		IsPopular:      r.IsPopular,
		IsNew:          r.IsNew,
	}
}

// GET /api/opportunities
func (h *OpportunityHandler) List(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20)
	page := parseIntQuery(c, "page", 1)

	filters := services.OpportunityFilters{
		CategoryID:     strings.TrimSpace(c.Query("category_id")),
		OrganizationID: strings.TrimSpace(c.Query("organization_id")),
		Status:         strings.TrimSpace(c.Query("status")),
		Popular:        parseBoolQuery(c, "popular"),
		New:            parseBoolQuery(c, "new"),
		Search:         strings.TrimSpace(c.Query("search")),
		Limit:          limit,
		Page:           page,
	}

	items, total, err := h.opportunities.List(requestContext(c), filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:       page,
		PerPage:    limit,
		Total:      int(total),
		TotalPages: totalPages,
	})
}

// GET /api/opportunities/:id
func (h *OpportunityHandler) Get(c *gin.Context) {
	opportunity, err := h.opportunities.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, opportunity)
}

// POST /api/opportunities
func (h *OpportunityHandler) Create(c *gin.Context) {
	var req opportunityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	opportunity, err := h.opportunities.Create(requestContext(c), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, opportunity)
}

// PUT /api/opportunities/:id
func (h *OpportunityHandler) Update(c *gin.Context) {
	var req opportunityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	opportunity, err := h.opportunities.Update(requestContext(c), c.Param("id"), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, opportunity)
}

// DELETE /api/opportunities/:id
func (h *OpportunityHandler) Delete(c *gin.Context) {
	if err := h.opportunities.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
