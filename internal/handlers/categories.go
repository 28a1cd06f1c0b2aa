package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/services"
	"github.com/aruzhans/oppora/pkg/response"
)

// CategoryHandler manages opportunity categories.
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler constructs a category handler.
func NewCategoryHandler(db *gorm.DB) (*CategoryHandler, error) {
	svc, err := services.NewCategoryService(db)
	if err != nil {
		return nil, err
	}
	return &CategoryHandler{categories: svc}, nil
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
	Slug string `json:"slug" validate:"omitempty,max=128"`
}

// GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.categories.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.categories.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, category)
}

// POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.categories.Create(requestContext(c), services.CategoryInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, category)
}

// PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	var req categoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	category, err := h.categories.Update(requestContext(c), c.Param("id"), services.CategoryInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, category)
}

// DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categories.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
