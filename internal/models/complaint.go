package models

import "time"

// ComplaintStatus is the closed set of complaint lifecycle states.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "PENDING"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusClosed     ComplaintStatus = "CLOSED"
)

// Valid reports whether the status is one of the known values.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// ComplaintPriority orders complaints by urgency.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "LOW"
	PriorityMedium ComplaintPriority = "MEDIUM"
	PriorityHigh   ComplaintPriority = "HIGH"
)

// Valid reports whether the priority is one of the known values.
func (p ComplaintPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Complaint represents a persisted complaint row. ComplaintNo is assigned at
// creation and never changes; ResolvedAt is set once on the first transition
// into RESOLVED.
type Complaint struct {
	ID             string            `db:"id" json:"id"`
	ComplaintNo    string            `db:"complaint_no" json:"complaint_no"`
	Title          string            `db:"title" json:"title"`
	Description    string            `db:"description" json:"description"`
	CategoryID     *string           `db:"category_id" json:"category_id,omitempty"`
	UserID         string            `db:"user_id" json:"user_id"`
	AssignedToID   *string           `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	Status         ComplaintStatus   `db:"status" json:"status"`
	Priority       ComplaintPriority `db:"priority" json:"priority"`
	AttachmentPath *string           `db:"attachment_path" json:"-"`
	Remarks        string            `db:"remarks" json:"remarks,omitempty"`
	AdminRemarks   string            `db:"admin_remarks" json:"admin_remarks,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
	ResolvedAt     *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ComplaintDetail joins denormalised display fields onto a complaint.
type ComplaintDetail struct {
	Complaint
	UserName       string  `db:"user_name" json:"user_name"`
	UserEmail      string  `db:"user_email" json:"-"`
	AssignedToName *string `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
	CategoryName   *string `db:"category_name" json:"category_name,omitempty"`
}

// ComplaintFilter captures the query surface for listing complaints. The
// role-based visibility scope (OwnerID / AssigneeID) is set by the service,
// never by the caller.
type ComplaintFilter struct {
	OwnerID    string
	AssigneeID string
	Status     *ComplaintStatus
	Priority   *ComplaintPriority
	CategoryID string
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
