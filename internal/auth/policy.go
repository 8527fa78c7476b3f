package auth

import "github.com/voltdesk/maintenance-service/internal/domain"

// TransitionPolicy decides whether a role may perform a status edge. It is
// consulted by the state machine after the edge itself has been validated
// against the graph.
type TransitionPolicy interface {
	CanTransition(role domain.UserRole, from, to domain.TicketStatus) bool
}

// AssignPolicy decides assignment permissions and assignee eligibility.
type AssignPolicy interface {
	CanAssign(role domain.UserRole) bool
	EligibleAssignee(assigneeType domain.AssigneeType, assigneeRole domain.UserRole, category domain.TicketCategory) bool
}

type edge struct {
	from, to domain.TicketStatus
}

// defaultRolePolicy is the product's fixed role matrix. Admins and AS
// managers may perform any valid edge; engineers drive the work-execution
// edges; call center may dispatch or cancel fresh tickets and close
// resolved ones.
type defaultRolePolicy struct {
	engineerEdges map[edge]struct{}
}

// NewDefaultRolePolicy builds the standard policy used by both the state
// machine and the assignment manager.
func NewDefaultRolePolicy() interface {
	TransitionPolicy
	AssignPolicy
} {
	engineer := map[edge]struct{}{
		{domain.TicketStatusAssigned, domain.TicketStatusInProgress}:          {},
		{domain.TicketStatusInProgress, domain.TicketStatusWaitingOnCustomer}: {},
		{domain.TicketStatusInProgress, domain.TicketStatusWaitingOnVendor}:   {},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved}:          {},
		{domain.TicketStatusWaitingOnCustomer, domain.TicketStatusInProgress}: {},
		{domain.TicketStatusWaitingOnVendor, domain.TicketStatusInProgress}:   {},
	}
	return &defaultRolePolicy{engineerEdges: engineer}
}

func (p *defaultRolePolicy) CanTransition(role domain.UserRole, from, to domain.TicketStatus) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleASManager, domain.RoleTenantAdmin:
		return true
	case domain.RoleASEngineer:
		_, ok := p.engineerEdges[edge{from, to}]
		return ok
	case domain.RoleCallCenter:
		if from == domain.TicketStatusNew &&
			(to == domain.TicketStatusAssigned || to == domain.TicketStatusCancelled) {
			return true
		}
		if from == domain.TicketStatusResolved && to == domain.TicketStatusClosed {
			return true
		}
		return false
	default:
		return false
	}
}

func (p *defaultRolePolicy) CanAssign(role domain.UserRole) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleTenantAdmin, domain.RoleASManager, domain.RoleCallCenter:
		return true
	}
	return false
}

// EligibleAssignee restricts internal assignees to field-capable roles.
// Vendor assignees are external parties and are always eligible.
func (p *defaultRolePolicy) EligibleAssignee(assigneeType domain.AssigneeType, assigneeRole domain.UserRole, category domain.TicketCategory) bool {
	if assigneeType == domain.AssigneeTypeVendor {
		return true
	}
	switch assigneeRole {
	case domain.RoleASEngineer, domain.RoleASManager:
		return true
	}
	return false
}
