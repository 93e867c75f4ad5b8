package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/models"
)

func newNotificationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryList(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("SELECT id, user_id, message, is_read, created_at FROM notifications WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "is_read", "created_at"}).
			AddRow("n1", "u1", "Your complaint CMP-20260101-000001 is now IN_PROGRESS", false, time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notifications, total, err := repo.List(context.Background(), models.NotificationFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("n1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "n1", "intruder")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkAllRead(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE user_id = \\$1 AND is_read = FALSE").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	updated, err := repo.MarkAllRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(2, 2))

	batch := []models.Notification{
		{UserID: "admin-1", Message: "New complaint CMP-20260101-000001 filed"},
		{UserID: "admin-2", Message: "New complaint CMP-20260101-000001 filed"},
	}
	err := repo.CreateBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.NotEmpty(t, batch[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
