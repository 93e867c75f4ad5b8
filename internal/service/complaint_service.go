package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/internal/repository"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
)

// Actor identifies the authenticated principal performing an operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByNo(ctx context.Context, complaintNo string) (*models.Complaint, error)
	FindDetailByNo(ctx context.Context, complaintNo string) (*models.ComplaintDetail, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error)
	Mutate(ctx context.Context, complaintNo string, fn func(*models.Complaint) (*models.ComplaintHistory, error)) (*models.Complaint, error)
	ListHistory(ctx context.Context, complaintID string) ([]models.ComplaintHistory, error)
}

type complaintUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type complaintCategoryLookup interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

type complaintFeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByComplaintID(ctx context.Context, complaintID string) (*models.Feedback, error)
}

// transitionNotifier receives lifecycle events after the database commit.
// Implementations must be best effort; the engine never fails an operation
// because a notification could not be delivered.
type transitionNotifier interface {
	ComplaintCreated(ctx context.Context, complaint *models.Complaint)
	StatusChanged(ctx context.Context, complaint *models.Complaint, from, to models.ComplaintStatus)
	ComplaintAssigned(ctx context.Context, complaint *models.Complaint, faculty *models.User)
	FeedbackReceived(ctx context.Context, complaint *models.Complaint, feedback *models.Feedback)
}

type attachmentStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// statsInvalidator drops cached dashboard aggregates after a mutation.
type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

// AttachmentRules constrain uploaded complaint attachments.
type AttachmentRules struct {
	MaxSizeBytes int64
	AllowedExts  []string
}

// ComplaintService is the transition engine. Every mutation goes through a
// single locked read-modify-write so the ledger never misses a transition,
// and every permission decision goes through Can so the rules stay in one
// place.
type ComplaintService struct {
	complaints complaintRepository
	users      complaintUserRepository
	categories complaintCategoryLookup
	feedback   complaintFeedbackRepository
	notifier   transitionNotifier
	storage    attachmentStore
	rules      AttachmentRules
	metrics    *MetricsService
	stats      statsInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewComplaintService constructs the service.
func NewComplaintService(
	complaints complaintRepository,
	users complaintUserRepository,
	categories complaintCategoryLookup,
	feedback complaintFeedbackRepository,
	notifier transitionNotifier,
	storage attachmentStore,
	rules AttachmentRules,
	metrics *MetricsService,
	stats statsInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		complaints: complaints,
		users:      users,
		categories: categories,
		feedback:   feedback,
		notifier:   notifier,
		storage:    storage,
		rules:      rules,
		metrics:    metrics,
		stats:      stats,
		validator:  validate,
		logger:     logger,
	}
}

// AttachmentUpload carries an uploaded file into the service.
type AttachmentUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// CreateComplaintRequest describes the create payload.
type CreateComplaintRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	CategoryID  string `json:"category_id"`
	Priority    string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Attachment  *AttachmentUpload
}

// UpdateComplaintRequest describes the update payload. Nil fields are left
// untouched; which non-nil fields are accepted depends on the actor's role.
type UpdateComplaintRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Description  *string `json:"description"`
	CategoryID   *string `json:"category_id"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Remarks      *string `json:"remarks"`
	AdminRemarks *string `json:"admin_remarks"`
}

// AssignComplaintRequest sets the responsible faculty member.
type AssignComplaintRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	Remarks   string `json:"remarks"`
}

// FeedbackRequest rates a resolved complaint.
type FeedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comments string `json:"comments"`
}

// Create files a new complaint. Only students submit complaints; the ticket
// number and opening ledger entry are assigned atomically in the repository.
// Admins are notified after the commit.
func (s *ComplaintService) Create(ctx context.Context, actor Actor, req CreateComplaintRequest) (*models.Complaint, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, "VALIDATION_ERROR", 400, "invalid complaint payload")
	}

	complaint := &models.Complaint{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		UserID:      actor.ID,
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
	}
	if req.Priority != "" {
		complaint.Priority = models.ComplaintPriority(req.Priority)
	}
	if req.CategoryID != "" {
		if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
			}
			return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to verify category")
		}
		categoryID := req.CategoryID
		complaint.CategoryID = &categoryID
	}

	if req.Attachment != nil {
		storedPath, err := s.storeAttachment(req.Attachment)
		if err != nil {
			return nil, err
		}
		complaint.AttachmentPath = &storedPath
	}

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to create complaint")
	}

	s.logger.Info("complaint created",
		zap.String("complaint_no", complaint.ComplaintNo),
		zap.String("user_id", actor.ID))
	s.metrics.RecordComplaintCreated()
	s.invalidateStats(ctx)
	if s.notifier != nil {
		s.notifier.ComplaintCreated(ctx, complaint)
	}
	return complaint, nil
}

func (s *ComplaintService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

// Get returns a complaint with display fields, visible only to its owner,
// its assignee or an admin.
func (s *ComplaintService) Get(ctx context.Context, actor Actor, complaintNo string) (*models.ComplaintDetail, error) {
	detail, err := s.complaints.FindDetailByNo(ctx, complaintNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load complaint")
	}
	if !Can(actor.Role, actor.ID, &detail.Complaint, OpView) {
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

// ComplaintListRequest describes filters for listing complaints.
type ComplaintListRequest struct {
	Status     string
	Priority   string
	CategoryID string
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// List returns the complaints visible to the actor, newest first. Admins
// see everything, faculty their assignments, students their own filings.
func (s *ComplaintService) List(ctx context.Context, actor Actor, req ComplaintListRequest) ([]models.ComplaintDetail, *models.Pagination, error) {
	filter := models.ComplaintFilter{
		CategoryID: req.CategoryID,
		Search:     strings.TrimSpace(req.Search),
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		filter.AssigneeID = actor.ID
	case models.RoleStudent:
		filter.OwnerID = actor.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	if req.Status != "" {
		status := models.ComplaintStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = &status
	}
	if req.Priority != "" {
		priority := models.ComplaintPriority(req.Priority)
		if !priority.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown priority filter")
		}
		filter.Priority = &priority
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	complaints, total, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to list complaints")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return complaints, pagination, nil
}

// Update applies role-gated field changes to a complaint. The whole change
// runs under a row lock: a status change writes exactly one ledger entry
// attributed to the acting user, sets resolved_at on the first move into
// RESOLVED and leaves it untouched afterwards. The submitter is notified
// after commit when the status changed.
func (s *ComplaintService) Update(ctx context.Context, actor Actor, complaintNo string, req UpdateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, "VALIDATION_ERROR", 400, "invalid update payload")
	}

	var fromStatus, toStatus models.ComplaintStatus
	updated, err := s.complaints.Mutate(ctx, complaintNo, func(c *models.Complaint) (*models.ComplaintHistory, error) {
		fromStatus = c.Status
		if err := s.applyFields(actor, c, req); err != nil {
			return nil, err
		}
		toStatus = c.Status
		if toStatus == fromStatus {
			return nil, nil
		}
		return &models.ComplaintHistory{
			ChangedByID: actor.ID,
			FromStatus:  fromStatus,
			ToStatus:    toStatus,
		}, nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to update complaint")
	}

	s.invalidateStats(ctx)
	if toStatus != "" && toStatus != fromStatus {
		s.logger.Info("complaint status changed",
			zap.String("complaint_no", updated.ComplaintNo),
			zap.String("from", string(fromStatus)),
			zap.String("to", string(toStatus)),
			zap.String("changed_by", actor.ID))
		s.metrics.RecordTransition(fromStatus, toStatus)
		if s.notifier != nil {
			s.notifier.StatusChanged(ctx, updated, fromStatus, toStatus)
		}
	}
	return updated, nil
}

// applyFields mutates the locked complaint according to the actor's role.
// Each role has a fixed field whitelist: admins steer status, priority and
// admin remarks; assigned faculty set status and their remarks; submitters
// amend title, description and category while the complaint is still
// pending. A request carrying a field outside the actor's whitelist is
// rejected outright rather than silently dropped.
func (s *ComplaintService) applyFields(actor Actor, c *models.Complaint, req UpdateComplaintRequest) error {
	contentChange := req.Title != nil || req.Description != nil || req.CategoryID != nil
	statusChange := req.Status != nil
	facultyChange := req.Remarks != nil
	adminChange := req.Priority != nil || req.AdminRemarks != nil

	if contentChange && !Can(actor.Role, actor.ID, c, OpEditContent) {
		return appErrors.ErrForbidden
	}
	if statusChange && !Can(actor.Role, actor.ID, c, OpEditStatus) {
		return appErrors.ErrForbidden
	}
	if facultyChange && !(actor.Role == models.RoleFaculty && Can(actor.Role, actor.ID, c, OpEditStatus)) {
		return appErrors.ErrForbidden
	}
	if adminChange && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
		}
		c.Title = title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return appErrors.Clone(appErrors.ErrValidation, "description must not be empty")
		}
		c.Description = description
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			c.CategoryID = nil
		} else {
			categoryID := *req.CategoryID
			c.CategoryID = &categoryID
		}
	}
	if req.Priority != nil {
		c.Priority = models.ComplaintPriority(*req.Priority)
	}
	if req.Remarks != nil {
		c.Remarks = *req.Remarks
	}
	if req.AdminRemarks != nil {
		c.AdminRemarks = *req.AdminRemarks
	}
	if req.Status != nil {
		status := models.ComplaintStatus(*req.Status)
		if !status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "unknown status")
		}
		if !CanSetStatus(actor.Role, status) {
			return appErrors.ErrForbidden
		}
		if status == models.StatusResolved && c.ResolvedAt == nil {
			now := time.Now().UTC()
			c.ResolvedAt = &now
		}
		c.Status = status
	}
	return nil
}

// Assign sets the responsible faculty member. Admin only; the target must
// hold the faculty role. The ledger records the assignment as an entry with
// identical from and to status, and both the faculty member and the
// submitter are notified after commit.
func (s *ComplaintService) Assign(ctx context.Context, actor Actor, complaintNo string, req AssignComplaintRequest) (*models.Complaint, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, "VALIDATION_ERROR", 400, "invalid assignment payload")
	}

	faculty, err := s.users.FindByID(ctx, req.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assignee not found")
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to verify assignee")
	}
	if faculty.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must hold the faculty role")
	}

	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		remarks = fmt.Sprintf("Assigned to %s", faculty.FullName)
	}

	updated, err := s.complaints.Mutate(ctx, complaintNo, func(c *models.Complaint) (*models.ComplaintHistory, error) {
		facultyID := faculty.ID
		c.AssignedToID = &facultyID
		return &models.ComplaintHistory{
			ChangedByID: actor.ID,
			FromStatus:  c.Status,
			ToStatus:    c.Status,
			Remarks:     remarks,
		}, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to assign complaint")
	}

	s.logger.Info("complaint assigned",
		zap.String("complaint_no", updated.ComplaintNo),
		zap.String("faculty_id", faculty.ID),
		zap.String("assigned_by", actor.ID))
	s.invalidateStats(ctx)
	if s.notifier != nil {
		s.notifier.ComplaintAssigned(ctx, updated, faculty)
	}
	return updated, nil
}

// AddFeedback records the submitter's rating for a resolved complaint. The
// unique constraint on complaint_id makes a second submission a conflict no
// matter how the requests interleave.
func (s *ComplaintService) AddFeedback(ctx context.Context, actor Actor, complaintNo string, req FeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, "VALIDATION_ERROR", 400, "rating must be between 1 and 5")
	}

	complaint, err := s.complaints.FindByNo(ctx, complaintNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load complaint")
	}
	if !Can(actor.Role, actor.ID, complaint, OpFeedback) {
		return nil, appErrors.ErrForbidden
	}

	feedback := &models.Feedback{
		ComplaintID: complaint.ID,
		UserID:      actor.ID,
		Rating:      req.Rating,
		Comments:    strings.TrimSpace(req.Comments),
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted for this complaint")
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to store feedback")
	}

	if s.notifier != nil {
		s.notifier.FeedbackReceived(ctx, complaint, feedback)
	}
	return feedback, nil
}

// GetFeedback returns the feedback for a complaint, if any, subject to the
// same visibility rules as the complaint itself.
func (s *ComplaintService) GetFeedback(ctx context.Context, actor Actor, complaintNo string) (*models.Feedback, error) {
	complaint, err := s.complaints.FindByNo(ctx, complaintNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load complaint")
	}
	if !Can(actor.Role, actor.ID, complaint, OpView) {
		return nil, appErrors.ErrForbidden
	}
	feedback, err := s.feedback.FindByComplaintID(ctx, complaint.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load feedback")
	}
	return feedback, nil
}

// History returns the complaint's ledger, newest entry first, subject to
// the complaint's visibility rules.
func (s *ComplaintService) History(ctx context.Context, actor Actor, complaintNo string) ([]models.ComplaintHistory, error) {
	complaint, err := s.complaints.FindByNo(ctx, complaintNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load complaint")
	}
	if !Can(actor.Role, actor.ID, complaint, OpView) {
		return nil, appErrors.ErrForbidden
	}
	entries, err := s.complaints.ListHistory(ctx, complaint.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load history")
	}
	return entries, nil
}

// AttachmentPath authorizes access to a complaint's attachment and returns
// its stored path. ErrNotFound is returned when the complaint has none.
func (s *ComplaintService) AttachmentPath(ctx context.Context, actor Actor, complaintNo string) (string, error) {
	complaint, err := s.complaints.FindByNo(ctx, complaintNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrNotFound
		}
		return "", appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to load complaint")
	}
	if !Can(actor.Role, actor.ID, complaint, OpView) {
		return "", appErrors.ErrForbidden
	}
	if complaint.AttachmentPath == nil || *complaint.AttachmentPath == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "complaint has no attachment")
	}
	return *complaint.AttachmentPath, nil
}

// storeAttachment validates and persists an uploaded file under a random
// name, keeping the original extension.
func (s *ComplaintService) storeAttachment(upload *AttachmentUpload) (string, error) {
	if upload.Size > s.rules.MaxSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, "attachment exceeds the maximum allowed size")
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(upload.Filename), "."))
	allowed := false
	for _, e := range s.rules.AllowedExts {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", appErrors.Clone(appErrors.ErrValidation, "attachment type is not allowed")
	}
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "attachments are not enabled")
	}

	storedPath := fmt.Sprintf("complaints/%s.%s", uuid.NewString(), ext)
	if _, err := s.storage.SaveStream(storedPath, upload.Reader); err != nil {
		return "", appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to store attachment")
	}
	return storedPath, nil
}
