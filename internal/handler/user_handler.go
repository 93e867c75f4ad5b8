package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/service"
	"github.com/campushub/complaint-desk-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, req service.UserListRequest) ([]models.User, *models.Pagination, error)
	Faculty(ctx context.Context) ([]models.User, error)
}

// UserHandler exposes the user directory.
type UserHandler struct {
	service userService
}

// NewUserHandler builds a new handler.
func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// List godoc
// @Summary List users (admin only)
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Matches username, email or full name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	req := service.UserListRequest{
		Role:     c.Query("role"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		req.Active = &active
	}

	users, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Faculty godoc
// @Summary List active faculty members for complaint assignment
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/faculty [get]
func (h *UserHandler) Faculty(c *gin.Context) {
	faculty, err := h.service.Faculty(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}
