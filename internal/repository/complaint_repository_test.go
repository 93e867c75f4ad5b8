package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/complaint-desk-api/internal/models"
)

func newComplaintMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestComplaintRepositoryCreateAssignsTicketNumber(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	day := time.Now().UTC().Format("20060102")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ticket_counters (day, seq) VALUES ($1, 1)")).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(42))
	mock.ExpectExec("INSERT INTO complaints").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO complaint_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "", string(models.StatusPending), "Complaint created", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	complaint := &models.Complaint{Title: "Broken projector", Description: "Room 204 projector flickers", UserID: "user-1"}
	err := repo.Create(context.Background(), complaint)
	require.NoError(t, err)

	assert.Equal(t, "CMP-"+day+"-000042", complaint.ComplaintNo)
	assert.Equal(t, models.StatusPending, complaint.Status)
	assert.Equal(t, models.PriorityMedium, complaint.Priority)
	assert.NotEmpty(t, complaint.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryCreateRollsBackOnCounterError(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ticket_counters (day, seq) VALUES ($1, 1)")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Complaint{Title: "x", Description: "y", UserID: "user-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryMutateLocksRowAndRecordsHistory(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	cols := []string{"id", "complaint_no", "title", "description", "category_id", "user_id", "assigned_to_id", "status", "priority", "attachment_path", "remarks", "admin_remarks", "created_at", "updated_at", "resolved_at"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM complaints WHERE complaint_no = \\$1 FOR UPDATE").
		WithArgs("CMP-20260101-000001").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "CMP-20260101-000001", "Title", "Desc", nil, "user-1", nil, "PENDING", "MEDIUM", nil, "", "", now, now, nil))
	mock.ExpectExec("UPDATE complaints SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO complaint_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Mutate(context.Background(), "CMP-20260101-000001", func(c *models.Complaint) (*models.ComplaintHistory, error) {
		from := c.Status
		c.Status = models.StatusInProgress
		return &models.ComplaintHistory{ChangedByID: "faculty-1", FromStatus: from, ToStatus: c.Status}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryMutatePropagatesCallbackError(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	cols := []string{"id", "complaint_no", "title", "description", "category_id", "user_id", "assigned_to_id", "status", "priority", "attachment_path", "remarks", "admin_remarks", "created_at", "updated_at", "resolved_at"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM complaints WHERE complaint_no = \\$1 FOR UPDATE").
		WithArgs("CMP-20260101-000001").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "CMP-20260101-000001", "Title", "Desc", nil, "user-1", nil, "CLOSED", "MEDIUM", nil, "", "", now, now, nil))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), "CMP-20260101-000001", func(c *models.Complaint) (*models.ComplaintHistory, error) {
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryListScopesToOwner(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	cols := []string{"id", "complaint_no", "title", "description", "category_id", "user_id", "assigned_to_id", "status", "priority", "attachment_path", "remarks", "admin_remarks", "created_at", "updated_at", "resolved_at", "user_name", "user_email", "assigned_to_name", "category_name"}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND c.user_id = $1 ORDER BY c.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "CMP-20260101-000001", "Title", "Desc", nil, "student-1", nil, "PENDING", "LOW", nil, "", "", now, now, nil, "A Student", "a@campus.edu", nil, nil))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM complaints c").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	complaints, total, err := repo.List(context.Background(), models.ComplaintFilter{OwnerID: "student-1"})
	require.NoError(t, err)
	assert.Len(t, complaints, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryListSearchMatchesPartialTicketNumber(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	cols := []string{"id", "complaint_no", "title", "description", "category_id", "user_id", "assigned_to_id", "status", "priority", "attachment_path", "remarks", "admin_remarks", "created_at", "updated_at", "resolved_at", "user_name", "user_email", "assigned_to_name", "category_name"}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("(LOWER(c.title) LIKE $1 OR LOWER(c.description) LIKE $1 OR LOWER(c.complaint_no) LIKE $1)")).
		WithArgs("%cmp-20260101%").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c1", "CMP-20260101-000001", "Title", "Desc", nil, "student-1", nil, "PENDING", "LOW", nil, "", "", now, now, nil, "A Student", "a@campus.edu", nil, nil))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM complaints c").
		WithArgs("%cmp-20260101%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	complaints, total, err := repo.List(context.Background(), models.ComplaintFilter{Search: "CMP-20260101"})
	require.NoError(t, err)
	require.Len(t, complaints, 1)
	assert.Equal(t, "CMP-20260101-000001", complaints[0].ComplaintNo)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryListHistory(t *testing.T) {
	db, mock, cleanup := newComplaintMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT h.id, h.complaint_id, h.changed_by_id").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "changed_by_id", "changed_by_name", "from_status", "to_status", "remarks", "timestamp"}).
			AddRow("h2", "c1", "faculty-1", "Prof Rivera", "PENDING", "IN_PROGRESS", "", now).
			AddRow("h1", "c1", "user-1", "A Student", "", "PENDING", "Complaint created", now.Add(-time.Hour)))

	entries, err := repo.ListHistory(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.StatusInProgress, entries[0].ToStatus)
	assert.Equal(t, models.ComplaintStatus(""), entries[1].FromStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
