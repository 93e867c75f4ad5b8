package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

type userDirectoryRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// UserService exposes the user directory. Listing the full directory is
// admin only; the faculty roster backs the assignment picker.
type UserService struct {
	users  userDirectoryRepository
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users userDirectoryRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// UserListRequest filters the user directory.
type UserListRequest struct {
	Role     string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// List returns users matching the filter, admin scope enforced at the route.
func (s *UserService) List(ctx context.Context, req UserListRequest) ([]models.User, *models.Pagination, error) {
	filter := models.UserFilter{
		Active:   req.Active,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Role != "" {
		role := models.UserRole(req.Role)
		if !role.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "role must be student, faculty or admin")
		}
		filter.Role = &role
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Faculty returns the active faculty roster for the assignment picker.
func (s *UserService) Faculty(ctx context.Context) ([]models.User, error) {
	return s.users.ListByRole(ctx, models.RoleFaculty)
}
