package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/repository"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type authRepoStub struct {
	usersByName map[string]*models.User
	usersByID   map[string]*models.User
	tokens      map[string]*models.RefreshToken
	created     *models.User
	createErr   error
	revokedIDs  []string
	auditLogs   []*models.AuditLog
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByName: map[string]*models.User{},
		usersByID:   map[string]*models.User{},
		tokens:      map[string]*models.RefreshToken{},
	}
}

func (s *authRepoStub) addUser(user *models.User) {
	s.usersByName[user.Username] = user
	s.usersByID[user.ID] = user
}

func (s *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.usersByName[username]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.ID = "u-new"
	s.created = user
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revokedIDs = append(s.revokedIDs, id)
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "complaint-desk",
	}
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthLoginIssuesTokens(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "u1", Username: "jdoe", Email: "jdoe@campus.edu", PasswordHash: hashOf(t, "secret123"), FullName: "Jordan Doe", Role: models.RoleStudent, Active: true})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	require.NotEmpty(t, repo.auditLogs)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "u1", Username: "jdoe", PasswordHash: hashOf(t, "secret123"), Role: models.RoleStudent, Active: true})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownUserSameError(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "u1", Username: "jdoe", PasswordHash: hashOf(t, "secret123"), Role: models.RoleStudent, Active: false})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterRejectsAdminRole(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:        "sneaky",
		Email:           "sneaky@campus.edu",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Role:            "admin",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestAuthRegisterCreatesStudent(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:        "jdoe",
		Email:           "JDoe@Campus.edu",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		FullName:        "Jordan Doe",
		Role:            "student",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Equal(t, "jdoe@campus.edu", info.Email)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "secret123", repo.created.PasswordHash)
	assert.True(t, repo.created.Active)
}

func TestAuthRegisterDuplicateUsername(t *testing.T) {
	repo := newAuthRepoStub()
	repo.createErr = repository.ErrDuplicate
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:        "jdoe",
		Email:           "jdoe@campus.edu",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		Role:            "student",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "u1", Username: "jdoe", PasswordHash: hashOf(t, "secret123"), Role: models.RoleStudent, Active: true})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked; a replay fails.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthLogoutRejectsForeignToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(&models.User{ID: "u1", Username: "jdoe", PasswordHash: hashOf(t, "secret123"), Role: models.RoleStudent, Active: true})
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "secret123"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), "someone-else", login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "u1", login.RefreshToken))
}

func TestAuthValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())
	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}
