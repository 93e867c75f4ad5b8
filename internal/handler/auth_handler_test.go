package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/middleware"
	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type authServiceMock struct {
	registerResp *models.UserInfo
	registerErr  error
	loginResp    *models.LoginResponse
	loginErr     error
	refreshResp  *models.RefreshTokenResponse
	refreshErr   error
	logoutErr    error

	lastLogin   models.LoginRequest
	lastLogout  string
	logoutUser  string
	loginCalled bool
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	return m.registerResp, m.registerErr
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginCalled = true
	m.lastLogin = req
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return m.refreshResp, m.refreshErr
}

func (m *authServiceMock) Logout(ctx context.Context, userID, refreshToken string) error {
	m.logoutUser = userID
	m.lastLogout = refreshToken
	return m.logoutErr
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &authServiceMock{
		loginResp: &models.LoginResponse{AccessToken: "token"},
	}
	handler := NewAuthHandler(mockSvc)

	payload, _ := json.Marshal(models.LoginRequest{Username: "alice", Password: "secret123"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.loginCalled)
	assert.Equal(t, "alice", mockSvc.lastLogin.Username)
	assert.Equal(t, "test-agent", mockSvc.lastLogin.UserAgent)
	assert.Contains(t, w.Body.String(), "token")
}

func TestAuthHandlerLoginBadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &authServiceMock{loginErr: appErrors.ErrInvalidCredentials}
	handler := NewAuthHandler(mockSvc)

	payload, _ := json.Marshal(models.LoginRequest{Username: "alice", Password: "wrong"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerRegisterInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Register(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &authServiceMock{registerErr: appErrors.ErrConflict}
	handler := NewAuthHandler(mockSvc)

	payload, _ := json.Marshal(models.RegisterRequest{Username: "alice", Password: "secret123", Email: "alice@campus.edu", Role: "student"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Register(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlerLogoutRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})

	payload, _ := json.Marshal(models.RefreshTokenRequest{RefreshToken: "refresh-token"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Logout(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &authServiceMock{}
	handler := NewAuthHandler(mockSvc)

	payload, _ := json.Marshal(models.RefreshTokenRequest{RefreshToken: "refresh-token"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Logout(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "student-1", mockSvc.logoutUser)
	assert.Equal(t, "refresh-token", mockSvc.lastLogout)
}
