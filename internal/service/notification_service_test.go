package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/models"
	"github.com/campushub/complaint-desk-api/pkg/jobs"
)

type notificationRepoStub struct {
	created   []models.Notification
	createErr error
	listItems []models.Notification
	unread    int
	markErr   error
	marked    []string
}

func (s *notificationRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *notification)
	return nil
}

func (s *notificationRepoStub) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, notifications...)
	return nil
}

func (s *notificationRepoStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.listItems, len(s.listItems), nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.unread, nil
}

type notificationUserStub struct {
	users  map[string]*models.User
	admins []models.User
}

func (s notificationUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s notificationUserStub) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return s.admins, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func TestNotificationComplaintCreatedFansOutToAdmins(t *testing.T) {
	repo := &notificationRepoStub{}
	users := notificationUserStub{admins: []models.User{
		{ID: "admin-1", Email: "a1@campus.edu"},
		{ID: "admin-2", Email: "a2@campus.edu"},
	}}
	mail := &recordingMailer{}
	svc := NewNotificationService(repo, users, mail, jobs.QueueConfig{Workers: 1}, nil)
	svc.StartQueue(context.Background())
	defer svc.StopQueue()

	complaint := &models.Complaint{ID: "c1", ComplaintNo: "CMP-20260101-000001", Title: "Projector broken", UserID: "student-1"}
	svc.ComplaintCreated(context.Background(), complaint)

	require.Len(t, repo.created, 2)
	assert.Equal(t, "admin-1", repo.created[0].UserID)
	assert.Contains(t, repo.created[0].Message, "CMP-20260101-000001")

	svc.StopQueue()
	assert.ElementsMatch(t, []string{"a1@campus.edu", "a2@campus.edu"}, mail.recipients())
}

func TestNotificationStatusChangedEmailsSubmitter(t *testing.T) {
	repo := &notificationRepoStub{}
	users := notificationUserStub{users: map[string]*models.User{
		"student-1": {ID: "student-1", Email: "s1@campus.edu"},
	}}
	mail := &recordingMailer{}
	svc := NewNotificationService(repo, users, mail, jobs.QueueConfig{Workers: 1}, nil)
	svc.StartQueue(context.Background())

	complaint := &models.Complaint{ID: "c1", ComplaintNo: "CMP-20260101-000001", UserID: "student-1"}
	svc.StatusChanged(context.Background(), complaint, models.StatusPending, models.StatusInProgress)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "student-1", repo.created[0].UserID)
	assert.Contains(t, repo.created[0].Message, "IN_PROGRESS")

	svc.StopQueue()
	assert.Equal(t, []string{"s1@campus.edu"}, mail.recipients())
}

func TestNotificationDeliveryFailureIsSwallowed(t *testing.T) {
	repo := &notificationRepoStub{createErr: assert.AnError}
	users := notificationUserStub{users: map[string]*models.User{}}
	svc := NewNotificationService(repo, users, nil, jobs.QueueConfig{Workers: 1}, nil)

	// Must not panic or return; failures are logged only.
	complaint := &models.Complaint{ID: "c1", ComplaintNo: "CMP-20260101-000001", UserID: "student-1"}
	svc.StatusChanged(context.Background(), complaint, models.StatusPending, models.StatusResolved)
}

func TestNotificationListAndMarkRead(t *testing.T) {
	repo := &notificationRepoStub{
		listItems: []models.Notification{{ID: "n1", UserID: "u1", Message: "hello", CreatedAt: time.Now()}},
		unread:    1,
	}
	svc := NewNotificationService(repo, notificationUserStub{}, nil, jobs.QueueConfig{}, nil)
	actor := Actor{ID: "u1", Role: models.RoleStudent}

	items, pagination, unread, err := svc.List(context.Background(), actor, NotificationListRequest{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, unread)

	require.NoError(t, svc.MarkRead(context.Background(), actor, "n1"))
	assert.Equal(t, []string{"n1"}, repo.marked)

	repo.markErr = sql.ErrNoRows
	err = svc.MarkRead(context.Background(), actor, "n-foreign")
	require.Error(t, err)
}
