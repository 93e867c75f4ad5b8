package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/dto"
	"github.com/campushub/complaint-desk-api/internal/middleware"
	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/service"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type exportServiceMock struct {
	resp      *dto.ExportResult
	err       error
	lastReq   dto.ExportRequest
	lastActor service.Actor
}

func (m *exportServiceMock) Export(ctx context.Context, actor service.Actor, req dto.ExportRequest) (*dto.ExportResult, error) {
	m.lastActor = actor
	m.lastReq = req
	return m.resp, m.err
}

func TestExportHandlerCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		resp: &dto.ExportResult{
			Filename:    "complaints-20260115.csv",
			ContentType: "text/csv",
			Data:        []byte("Ticket,Title\n"),
		},
	}
	handler := NewExportHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exports/complaints?format=csv&from_date=2026-01-01&status=RESOLVED", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.lastReq.Format)
	assert.Equal(t, "2026-01-01", mockSvc.lastReq.FromDate)
	assert.Equal(t, "RESOLVED", mockSvc.lastReq.Status)
	assert.Equal(t, models.RoleAdmin, mockSvc.lastActor.Role)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "complaints-20260115.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestExportHandlerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{err: appErrors.ErrForbidden}
	handler := NewExportHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exports/complaints?format=pdf", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.Export(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
