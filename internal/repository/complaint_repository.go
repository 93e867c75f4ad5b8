package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/complaint-desk-api/internal/models"
)

const complaintColumns = `id, complaint_no, title, description, category_id, user_id, assigned_to_id, status, priority, attachment_path, remarks, admin_remarks, created_at, updated_at, resolved_at`

const complaintDetailSelect = `SELECT c.id, c.complaint_no, c.title, c.description, c.category_id, c.user_id, c.assigned_to_id, c.status, c.priority, c.attachment_path, c.remarks, c.admin_remarks, c.created_at, c.updated_at, c.resolved_at,
	u.full_name AS user_name, u.email AS user_email,
	a.full_name AS assigned_to_name,
	cat.name AS category_name
FROM complaints c
JOIN users u ON u.id = c.user_id
LEFT JOIN users a ON a.id = c.assigned_to_id
LEFT JOIN categories cat ON cat.id = c.category_id`

// ComplaintRepository provides database access for complaints and their
// history ledger.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new instance of ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts a new complaint inside a single transaction. The ticket
// number is derived from a per-day counter row upserted with the transaction,
// so two concurrent creates can never receive the same number. The opening
// history entry is written in the same transaction.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create complaint tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	const counterQuery = `INSERT INTO ticket_counters (day, seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = ticket_counters.seq + 1
		RETURNING seq`
	var seq int64
	day := now.Format("20060102")
	if err = tx.GetContext(ctx, &seq, counterQuery, day); err != nil {
		return fmt.Errorf("next ticket sequence: %w", err)
	}

	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	complaint.ComplaintNo = fmt.Sprintf("CMP-%s-%06d", day, seq)
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	if complaint.Status == "" {
		complaint.Status = models.StatusPending
	}
	if complaint.Priority == "" {
		complaint.Priority = models.PriorityMedium
	}

	const insertQuery = `INSERT INTO complaints (id, complaint_no, title, description, category_id, user_id, assigned_to_id, status, priority, attachment_path, remarks, admin_remarks, created_at, updated_at, resolved_at) VALUES (:id, :complaint_no, :title, :description, :category_id, :user_id, :assigned_to_id, :status, :priority, :attachment_path, :remarks, :admin_remarks, :created_at, :updated_at, :resolved_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, complaint); err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}

	// The opening entry has an empty from_status so the ledger records the
	// complaint entering the system, not a transition.
	opening := models.ComplaintHistory{
		ID:          uuid.NewString(),
		ComplaintID: complaint.ID,
		ChangedByID: complaint.UserID,
		FromStatus:  "",
		ToStatus:    models.StatusPending,
		Remarks:     "Complaint created",
		Timestamp:   now,
	}
	if err = insertHistoryTx(ctx, tx, &opening); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create complaint tx: %w", err)
	}
	return nil
}

// FindByNo returns a complaint by its ticket number.
func (r *ComplaintRepository) FindByNo(ctx context.Context, complaintNo string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE complaint_no = $1 LIMIT 1`, complaintColumns)
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, complaintNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by no: %w", err)
	}
	return &complaint, nil
}

// FindDetailByNo returns a complaint by ticket number with submitter,
// assignee and category display fields joined in.
func (r *ComplaintRepository) FindDetailByNo(ctx context.Context, complaintNo string) (*models.ComplaintDetail, error) {
	query := complaintDetailSelect + ` WHERE c.complaint_no = $1 LIMIT 1`
	var detail models.ComplaintDetail
	if err := r.db.GetContext(ctx, &detail, query, complaintNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint detail by no: %w", err)
	}
	return &detail, nil
}

// List returns complaints matching the filter, newest first, with a total
// count for pagination. Visibility scoping arrives pre-filled on the filter.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintDetail, int, error) {
	baseQuery := `FROM complaints c
JOIN users u ON u.id = c.user_id
LEFT JOIN users a ON a.id = c.assigned_to_id
LEFT JOIN categories cat ON cat.id = c.category_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.AssigneeID != "" {
		conditions = append(conditions, fmt.Sprintf("c.assigned_to_id = $%d", len(args)+1))
		args = append(args, filter.AssigneeID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("c.priority = $%d", len(args)+1))
		args = append(args, *filter.Priority)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("c.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d OR LOWER(c.complaint_no) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("c.created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("c.created_at < $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := `SELECT c.id, c.complaint_no, c.title, c.description, c.category_id, c.user_id, c.assigned_to_id, c.status, c.priority, c.attachment_path, c.remarks, c.admin_remarks, c.created_at, c.updated_at, c.resolved_at,
	u.full_name AS user_name, u.email AS user_email,
	a.full_name AS assigned_to_name,
	cat.name AS category_name ` + baseQuery +
		fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT %d OFFSET %d", pageSize, offset)

	var complaints []models.ComplaintDetail
	if err := r.db.SelectContext(ctx, &complaints, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	return complaints, total, nil
}

// Mutate loads a complaint by ticket number under a row lock, applies fn to
// it, persists the result and appends the history entry fn returns, all in
// one transaction. fn may return a nil history entry when the change does
// not touch status or assignment. The lock serialises concurrent updates so
// the last writer never clobbers an unseen change.
func (r *ComplaintRepository) Mutate(ctx context.Context, complaintNo string, fn func(*models.Complaint) (*models.ComplaintHistory, error)) (*models.Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate complaint tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE complaint_no = $1 FOR UPDATE`, complaintColumns)
	var complaint models.Complaint
	if err = tx.GetContext(ctx, &complaint, query, complaintNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock complaint: %w", err)
	}

	var entry *models.ComplaintHistory
	if entry, err = fn(&complaint); err != nil {
		return nil, err
	}
	complaint.UpdatedAt = time.Now().UTC()

	const updateQuery = `UPDATE complaints SET title = :title, description = :description, category_id = :category_id, assigned_to_id = :assigned_to_id, status = :status, priority = :priority, attachment_path = :attachment_path, remarks = :remarks, admin_remarks = :admin_remarks, updated_at = :updated_at, resolved_at = :resolved_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, &complaint); err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}

	if entry != nil {
		entry.ComplaintID = complaint.ID
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.Timestamp.IsZero() {
			entry.Timestamp = complaint.UpdatedAt
		}
		if err = insertHistoryTx(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate complaint tx: %w", err)
	}
	return &complaint, nil
}

// ListHistory returns the history ledger for a complaint, newest first.
func (r *ComplaintRepository) ListHistory(ctx context.Context, complaintID string) ([]models.ComplaintHistory, error) {
	const query = `SELECT h.id, h.complaint_id, h.changed_by_id, u.full_name AS changed_by_name, h.from_status, h.to_status, h.remarks, h.timestamp
FROM complaint_history h
JOIN users u ON u.id = h.changed_by_id
WHERE h.complaint_id = $1
ORDER BY h.timestamp DESC`
	var entries []models.ComplaintHistory
	if err := r.db.SelectContext(ctx, &entries, query, complaintID); err != nil {
		return nil, fmt.Errorf("list complaint history: %w", err)
	}
	return entries, nil
}

func insertHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *models.ComplaintHistory) error {
	const query = `INSERT INTO complaint_history (id, complaint_id, changed_by_id, from_status, to_status, remarks, timestamp) VALUES (:id, :complaint_id, :changed_by_id, :from_status, :to_status, :remarks, :timestamp)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert complaint history: %w", err)
	}
	return nil
}
