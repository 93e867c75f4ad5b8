package models

import "time"

// Feedback is the submitter's rating for a resolved complaint. At most one
// row exists per complaint, enforced by a unique constraint on complaint_id.
type Feedback struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comments    string    `db:"comments" json:"comments,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
