package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/complaint-desk-api/internal/models"
)

// NotificationRepository provides database access for in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a single notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, message, is_read, created_at) VALUES (:id, :user_id, :message, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateBatch inserts notifications for several recipients at once, used
// when fanning one event out to every admin.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO notifications (id, user_id, message, is_read, created_at) VALUES (:id, :user_id, :message, :is_read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notifications); err != nil {
		return fmt.Errorf("create notifications batch: %w", err)
	}
	return nil
}

// List returns a user's notifications, newest first, with a total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	baseQuery := `FROM notifications WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	if filter.UnreadOnly {
		baseQuery += " AND is_read = FALSE"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, message, is_read, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. The user_id predicate keeps a user
// from touching notifications addressed to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks every unread notification of a user as read and returns
// how many were updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	const query = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows affected: %w", err)
	}
	return int(rows), nil
}
