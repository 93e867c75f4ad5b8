package service

import (
	"github.com/campushub/complaint-desk-api/internal/models"
)

// Operation names an action an actor can attempt against a complaint.
type Operation string

const (
	// OpView reads a complaint and its history.
	OpView Operation = "view"
	// OpEditContent amends title, description or category; submitter only.
	OpEditContent Operation = "edit_content"
	// OpEditStatus moves the complaint through its lifecycle and edits remarks.
	OpEditStatus Operation = "edit_status"
	// OpAssign sets or changes the responsible faculty member.
	OpAssign Operation = "assign"
	// OpClose moves a complaint into CLOSED.
	OpClose Operation = "close"
	// OpFeedback submits a rating for a resolved complaint.
	OpFeedback Operation = "feedback"
)

// Can decides whether an actor may perform an operation on a complaint.
// It is a pure function of the actor's role and id plus the complaint
// snapshot, so every permission rule lives in one place and can be tested
// exhaustively. Visibility follows the same shape everywhere: admins see
// everything, faculty see what they are assigned, students see what they
// filed.
func Can(role models.UserRole, actorID string, complaint *models.Complaint, op Operation) bool {
	if complaint == nil {
		return false
	}

	isOwner := complaint.UserID == actorID
	isAssignee := complaint.AssignedToID != nil && *complaint.AssignedToID == actorID

	switch op {
	case OpView:
		switch role {
		case models.RoleAdmin:
			return true
		case models.RoleFaculty:
			return isAssignee
		case models.RoleStudent:
			return isOwner
		}
		return false

	case OpEditContent:
		// Submitters may amend their own complaint only while nobody has
		// started working on it. Staff never rewrite a submitter's words;
		// admins steer the complaint through priority and status instead.
		return role == models.RoleStudent && isOwner && complaint.Status == models.StatusPending

	case OpEditStatus:
		if role == models.RoleAdmin {
			return true
		}
		return role == models.RoleFaculty && isAssignee

	case OpAssign, OpClose:
		return role == models.RoleAdmin

	case OpFeedback:
		return isOwner && complaint.Status == models.StatusResolved
	}

	return false
}

// CanSetStatus reports whether the actor's role may move a complaint into
// the target state. The lifecycle graph is deliberately permissive; forward
// and lateral moves are all legal. The one hard rule is that only admins
// may close, even when the actor is the complaint's own assignee.
func CanSetStatus(role models.UserRole, to models.ComplaintStatus) bool {
	if !to.Valid() {
		return false
	}
	if to == models.StatusClosed {
		return role == models.RoleAdmin
	}
	return true
}
