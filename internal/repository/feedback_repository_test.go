package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/models"
)

func newFeedbackMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeedbackRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newFeedbackMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedback").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	feedback := &models.Feedback{ComplaintID: "c1", UserID: "student-1", Rating: 4, Comments: "Quick turnaround"}
	err := repo.Create(context.Background(), feedback)
	require.NoError(t, err)
	assert.NotEmpty(t, feedback.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newFeedbackMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedback").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Feedback{ComplaintID: "c1", UserID: "student-1", Rating: 5})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryFindByComplaintID(t *testing.T) {
	db, mock, cleanup := newFeedbackMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery("SELECT id, complaint_id, user_id, rating, comments, created_at FROM feedback").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "user_id", "rating", "comments", "created_at"}).
			AddRow("f1", "c1", "student-1", 4, "Quick turnaround", time.Now()))

	feedback, err := repo.FindByComplaintID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 4, feedback.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryFindByComplaintIDMissing(t *testing.T) {
	db, mock, cleanup := newFeedbackMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery("SELECT id, complaint_id, user_id, rating, comments, created_at FROM feedback").
		WithArgs("c-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByComplaintID(context.Background(), "c-missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
