package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/service"
	"github.com/campushub/complaint-desk-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, actor service.Actor, req dto.ExportRequest) (*dto.ExportResult, error)
}

// ExportHandler renders complaint reports as downloadable documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export complaints as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string true "csv or pdf"
// @Param from_date query string false "Created on or after (YYYY-MM-DD)"
// @Param to_date query string false "Created on or before (YYYY-MM-DD)"
// @Param status query string false "Status filter"
// @Param category_id query string false "Category filter"
// @Success 200 {file} binary
// @Router /exports/complaints [get]
func (h *ExportHandler) Export(c *gin.Context) {
	req := dto.ExportRequest{
		Format:     c.Query("format"),
		FromDate:   c.Query("from_date"),
		ToDate:     c.Query("to_date"),
		Status:     c.Query("status"),
		CategoryID: c.Query("category_id"),
	}
	result, err := h.service.Export(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
