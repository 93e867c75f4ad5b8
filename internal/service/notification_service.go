package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
	"github.com/campushub/complaint-desk-api/pkg/jobs"
	"github.com/campushub/complaint-desk-api/pkg/mailer"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type notificationUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// emailJob is the payload carried through the background mail queue.
type emailJob struct {
	To      string
	Subject string
	Body    string
}

// NotificationService creates in-app notifications and dispatches emails
// through a background queue. Every delivery is best effort: failures are
// logged and never bubble back into the transition that triggered them.
type NotificationService struct {
	notifications notificationRepository
	users         notificationUserRepository
	mail          mailer.Mailer
	queue         *jobs.Queue
	logger        *zap.Logger
}

// NewNotificationService constructs the service. Call StartQueue before
// serving traffic and StopQueue on shutdown.
func NewNotificationService(notifications notificationRepository, users notificationUserRepository, mail mailer.Mailer, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mail == nil {
		mail = mailer.NopMailer{}
	}
	svc := &NotificationService{
		notifications: notifications,
		users:         users,
		mail:          mail,
		logger:        logger,
	}
	queueCfg.Logger = logger
	svc.queue = jobs.NewQueue("notification-emails", svc.sendEmail, queueCfg)
	return svc
}

// StartQueue launches the email worker pool.
func (s *NotificationService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue drains and stops the email worker pool.
func (s *NotificationService) StopQueue() {
	s.queue.Stop()
}

func (s *NotificationService) sendEmail(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailJob)
	if !ok {
		return fmt.Errorf("unexpected email payload type %T", job.Payload)
	}
	return s.mail.Send(payload.To, payload.Subject, payload.Body)
}

func (s *NotificationService) enqueueEmail(to, subject, body string) {
	if to == "" {
		return
	}
	err := s.queue.Enqueue(jobs.Job{Type: "email", Payload: emailJob{To: to, Subject: subject, Body: body}})
	if err != nil {
		s.logger.Warn("email enqueue failed", zap.String("to", to), zap.Error(err))
	}
}

// ComplaintCreated notifies every admin that a new complaint arrived.
func (s *NotificationService) ComplaintCreated(ctx context.Context, complaint *models.Complaint) {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("admin lookup for notification failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
		return
	}
	if len(admins) == 0 {
		return
	}

	message := fmt.Sprintf("New complaint %s: %s", complaint.ComplaintNo, complaint.Title)
	batch := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		batch = append(batch, models.Notification{UserID: admin.ID, Message: message})
	}
	if err := s.notifications.CreateBatch(ctx, batch); err != nil {
		s.logger.Warn("admin notification write failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
	}
	for _, admin := range admins {
		s.enqueueEmail(admin.Email, "New complaint filed", message)
	}
}

// StatusChanged notifies the submitter that their complaint moved state.
func (s *NotificationService) StatusChanged(ctx context.Context, complaint *models.Complaint, from, to models.ComplaintStatus) {
	message := fmt.Sprintf("Your complaint %s moved from %s to %s", complaint.ComplaintNo, from, to)
	notification := &models.Notification{UserID: complaint.UserID, Message: message}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("status notification write failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
	}

	submitter, err := s.users.FindByID(ctx, complaint.UserID)
	if err != nil {
		s.logger.Warn("submitter lookup for email failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("Complaint %s is now %s", complaint.ComplaintNo, to)
	s.enqueueEmail(submitter.Email, subject, message)
}

// ComplaintAssigned notifies both the assignee and the submitter.
func (s *NotificationService) ComplaintAssigned(ctx context.Context, complaint *models.Complaint, faculty *models.User) {
	batch := []models.Notification{
		{UserID: faculty.ID, Message: fmt.Sprintf("Complaint %s has been assigned to you", complaint.ComplaintNo)},
		{UserID: complaint.UserID, Message: fmt.Sprintf("Your complaint %s has been assigned to %s", complaint.ComplaintNo, faculty.FullName)},
	}
	if err := s.notifications.CreateBatch(ctx, batch); err != nil {
		s.logger.Warn("assignment notification write failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
	}
	s.enqueueEmail(faculty.Email, "Complaint assigned to you", batch[0].Message)
}

// FeedbackReceived notifies the assignee that the submitter rated the
// resolution. Complaints resolved without an assignee notify nobody.
func (s *NotificationService) FeedbackReceived(ctx context.Context, complaint *models.Complaint, feedback *models.Feedback) {
	if complaint.AssignedToID == nil {
		return
	}
	message := fmt.Sprintf("Complaint %s received a %d/5 rating", complaint.ComplaintNo, feedback.Rating)
	notification := &models.Notification{UserID: *complaint.AssignedToID, Message: message}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("feedback notification write failed",
			zap.String("complaint_no", complaint.ComplaintNo), zap.Error(err))
	}
}

// NotificationListRequest pages through a user's notifications.
type NotificationListRequest struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}

// List returns the actor's notifications, newest first, with the unread
// count in the pagination metadata consumer's meta map.
func (s *NotificationService) List(ctx context.Context, actor Actor, req NotificationListRequest) ([]models.Notification, *models.Pagination, int, error) {
	filter := models.NotificationFilter{
		UserID:     actor.ID,
		UnreadOnly: req.UnreadOnly,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	notifications, total, err := s.notifications.List(ctx, filter)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to list notifications")
	}
	unread, err := s.notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to count notifications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notifications, pagination, unread, nil
}

// MarkRead marks one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, notificationID, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the actor as read and
// returns the number updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int, error) {
	updated, err := s.notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, "INTERNAL_ERROR", 500, "failed to mark notifications read")
	}
	return updated, nil
}
