package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/middleware"
	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/service"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type notificationServiceMock struct {
	listResp   []models.Notification
	listErr    error
	markErr    error
	markedAll  int
	lastReq    service.NotificationListRequest
	lastActor  service.Actor
	lastMarked string
}

func (m *notificationServiceMock) List(ctx context.Context, actor service.Actor, req service.NotificationListRequest) ([]models.Notification, *models.Pagination, int, error) {
	m.lastActor = actor
	m.lastReq = req
	return m.listResp, &models.Pagination{Page: req.Page, PageSize: req.PageSize}, 2, m.listErr
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, actor service.Actor, notificationID string) error {
	m.lastActor = actor
	m.lastMarked = notificationID
	return m.markErr
}

func (m *notificationServiceMock) MarkAllRead(ctx context.Context, actor service.Actor) (int, error) {
	m.lastActor = actor
	return m.markedAll, m.markErr
}

func TestNotificationHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{
		listResp: []models.Notification{{ID: "n1", Message: "Complaint updated"}},
	}
	handler := NewNotificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/notifications?unread=true&page=3", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.lastReq.UnreadOnly)
	assert.Equal(t, 3, mockSvc.lastReq.Page)
	assert.Equal(t, "student-1", mockSvc.lastActor.ID)
	assert.Contains(t, w.Body.String(), "unread_count")
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{}
	handler := NewNotificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notifications/n1/read", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "n1", mockSvc.lastMarked)
}

func TestNotificationHandlerMarkReadNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{markErr: appErrors.ErrNotFound}
	handler := NewNotificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notifications/unknown/read", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.MarkRead(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &notificationServiceMock{markedAll: 4}
	handler := NewNotificationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, studentClaims())

	handler.MarkAllRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":4`)
}
