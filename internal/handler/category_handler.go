package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/service"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
	"github.com/campushub/complaint-desk-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, req service.CategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id string, req service.CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id string) error
}

// CategoryHandler exposes complaint category management.
type CategoryHandler struct {
	service categoryService
}

// NewCategoryHandler builds a new handler.
func NewCategoryHandler(service categoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// List godoc
// @Summary List complaint categories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Fetch a category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Create godoc
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body service.CategoryRequest true "Category"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete a category
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 204 "No Content"
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
