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

// FeedbackRepository provides database access for complaint feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new instance of FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts feedback for a complaint. The unique constraint on
// complaint_id guarantees at most one row per complaint even under
// concurrent submissions; a violation surfaces as ErrDuplicate.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback (id, complaint_id, user_id, rating, comments, created_at) VALUES (:id, :complaint_id, :user_id, :rating, :comments, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// FindByComplaintID returns the feedback for a complaint, if any.
func (r *FeedbackRepository) FindByComplaintID(ctx context.Context, complaintID string) (*models.Feedback, error) {
	const query = `SELECT id, complaint_id, user_id, rating, comments, created_at FROM feedback WHERE complaint_id = $1 LIMIT 1`
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, complaintID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find feedback by complaint: %w", err)
	}
	return &feedback, nil
}
