package models

import "time"

// ComplaintHistory is one immutable entry in a complaint's audit ledger.
// Entries are written whenever status or assignment changes and are never
// updated or deleted.
type ComplaintHistory struct {
	ID            string          `db:"id" json:"id"`
	ComplaintID   string          `db:"complaint_id" json:"complaint_id"`
	ChangedByID   string          `db:"changed_by_id" json:"changed_by_id"`
	ChangedByName string          `db:"changed_by_name" json:"changed_by_name,omitempty"`
	FromStatus    ComplaintStatus `db:"from_status" json:"from_status"`
	ToStatus      ComplaintStatus `db:"to_status" json:"to_status"`
	Remarks       string          `db:"remarks" json:"remarks,omitempty"`
	Timestamp     time.Time       `db:"timestamp" json:"timestamp"`
}
