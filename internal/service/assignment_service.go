package service

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// AssignmentService is the assignment manager: it computes assignment effects
// in memory so the ticket service can persist them in the same transaction as
// any resulting status change. It holds no storage itself.
type AssignmentService struct {
	policy auth.AssignPolicy
}

// NewAssignmentService constructs the manager with the injected policy.
func NewAssignmentService(policy auth.AssignPolicy) *AssignmentService {
	return &AssignmentService{policy: policy}
}

// AssigneeSpec describes who a ticket is being assigned to. For internal
// assignees the caller resolves User beforehand (tenant-scoped).
type AssigneeSpec struct {
	Type          domain.AssigneeType
	User          *domain.User
	VendorName    string
	VendorContact string
	Notes         string
}

// AssignEffect is the computed outcome of an assignment: the row to create
// and, when reassigning, the prior active row to deactivate.
type AssignEffect struct {
	New        *domain.Assignment
	Deactivate *domain.Assignment
}

// Assign validates eligibility and the single-active-assignee invariant.
// active is the ticket's current active assignment, nil if none.
func (s *AssignmentService) Assign(ticket *domain.Ticket, active *domain.Assignment, spec AssigneeSpec, actor Actor, reassign bool, now time.Time) (*AssignEffect, error) {
	if !s.policy.CanAssign(actor.Role) {
		return nil, apperrors.NewUnauthorized("role may not assign tickets")
	}
	if domain.IsTerminal(ticket.Status) {
		return nil, apperrors.NewInvalidState("ticket is in a terminal status")
	}
	if active != nil && !reassign {
		return nil, apperrors.NewAlreadyAssigned(ticket.ID)
	}

	assignment := &domain.Assignment{
		TenantID:     ticket.TenantID,
		TicketID:     ticket.ID,
		AssigneeType: spec.Type,
		Notes:        spec.Notes,
		Active:       true,
		AssignedBy:   actor.UserID,
		AssignedAt:   now.UTC(),
	}

	switch spec.Type {
	case domain.AssigneeTypeUser:
		if spec.User == nil {
			return nil, apperrors.NewInvalidAssignee("assignee user not found", nil)
		}
		if spec.User.TenantID != ticket.TenantID {
			// Cross-tenant assignees are reported the same way as unknown ones.
			return nil, apperrors.NewInvalidAssignee("assignee user not found", nil)
		}
		if !spec.User.IsActive {
			return nil, apperrors.NewInvalidAssignee("assignee user is disabled", map[string]any{"user_id": spec.User.ID})
		}
		if !s.policy.EligibleAssignee(spec.Type, spec.User.Role, ticket.Category) {
			return nil, apperrors.NewInvalidAssignee("assignee role not eligible for ticket category", map[string]any{
				"role":     spec.User.Role,
				"category": ticket.Category,
			})
		}
		assignment.AssigneeUserID = &spec.User.ID
	case domain.AssigneeTypeVendor:
		if spec.VendorName == "" {
			return nil, apperrors.NewInvalidAssignee("vendor name required", nil)
		}
		if !s.policy.EligibleAssignee(spec.Type, "", ticket.Category) {
			return nil, apperrors.NewInvalidAssignee("vendor not eligible for ticket category", map[string]any{"category": ticket.Category})
		}
		name := spec.VendorName
		assignment.VendorName = &name
		if spec.VendorContact != "" {
			contact := spec.VendorContact
			assignment.VendorContact = &contact
		}
	default:
		return nil, apperrors.NewInvalidAssignee("unknown assignee type", nil)
	}

	return &AssignEffect{New: assignment, Deactivate: active}, nil
}

// Unassign releases the active assignment. Permitted only while the ticket is
// NEW or ASSIGNED; in-flight work must be reassigned instead.
func (s *AssignmentService) Unassign(ticket *domain.Ticket, active *domain.Assignment, actor Actor) (*domain.Assignment, error) {
	if !s.policy.CanAssign(actor.Role) {
		return nil, apperrors.NewUnauthorized("role may not unassign tickets")
	}
	if ticket.Status != domain.TicketStatusNew && ticket.Status != domain.TicketStatusAssigned {
		return nil, apperrors.NewInvalidState("ticket can only be unassigned while NEW or ASSIGNED")
	}
	if active == nil {
		return nil, apperrors.NewInvalidState("ticket has no active assignment")
	}
	return active, nil
}
