package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type userDirectoryStub struct {
	users      []models.User
	faculty    []models.User
	lastFilter models.UserFilter
}

func (s *userDirectoryStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.lastFilter = filter
	return s.users, len(s.users), nil
}

func (s *userDirectoryStub) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return s.faculty, nil
}

func TestUserListAppliesFilters(t *testing.T) {
	repo := &userDirectoryStub{users: []models.User{{ID: "u1", Username: "rivera"}}}
	svc := NewUserService(repo, nil)

	active := true
	users, pagination, err := svc.List(context.Background(), UserListRequest{
		Role:     "faculty",
		Active:   &active,
		Search:   "riv",
		Page:     0,
		PageSize: 500,
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NotNil(t, repo.lastFilter.Role)
	assert.Equal(t, models.RoleFaculty, *repo.lastFilter.Role)
	assert.Equal(t, "riv", repo.lastFilter.Search)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 20, repo.lastFilter.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserListRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&userDirectoryStub{}, nil)

	_, _, err := svc.List(context.Background(), UserListRequest{Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserFacultyRoster(t *testing.T) {
	repo := &userDirectoryStub{faculty: []models.User{{ID: "f1", Role: models.RoleFaculty}}}
	svc := NewUserService(repo, nil)

	faculty, err := svc.Faculty(context.Background())
	require.NoError(t, err)
	require.Len(t, faculty, 1)
	assert.Equal(t, models.RoleFaculty, faculty[0].Role)
}
