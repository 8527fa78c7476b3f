package service

import (
	"time"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/sla"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// Actor is the trusted principal tuple every operation runs as.
type Actor struct {
	TenantID string
	UserID   string
	Role     domain.UserRole
}

// StateMachine enforces the ticket status graph. It mutates the ticket and
// its SLA measurement in memory and returns the history record to append;
// the caller persists everything in one transaction.
type StateMachine struct {
	roles auth.TransitionPolicy
}

// NewStateMachine constructs the machine with an injected role policy.
func NewStateMachine(roles auth.TransitionPolicy) *StateMachine {
	return &StateMachine{roles: roles}
}

// TransitionInput carries everything a single transition needs. The active
// assignment is pre-loaded by the caller inside the surrounding transaction
// so the ASSIGNED precondition and the status write are one atomic step.
type TransitionInput struct {
	Target           domain.TicketStatus
	Actor            Actor
	Reason           string
	Now              time.Time
	ActiveAssignment *domain.Assignment
}

// Transition applies one status edge. On any failure the ticket and
// measurement are left untouched.
func (m *StateMachine) Transition(ticket *domain.Ticket, measurement *domain.SlaMeasurement, in TransitionInput) (*domain.TicketStatusHistory, error) {
	from := ticket.Status
	if domain.IsTerminal(from) || !domain.CanTransition(from, in.Target) {
		return nil, apperrors.NewInvalidTransition(string(from), string(in.Target))
	}
	if !m.roles.CanTransition(in.Actor.Role, from, in.Target) {
		return nil, apperrors.NewUnauthorized("role may not perform this transition")
	}
	if in.Target == domain.TicketStatusAssigned && in.ActiveAssignment == nil {
		return nil, apperrors.NewAssignmentRequired()
	}

	now := in.Now.UTC()
	ticket.Status = in.Target
	switch in.Target {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed, domain.TicketStatusCancelled:
		ticket.ClosedAt = &now
	case domain.TicketStatusInProgress:
		// A reopen clears the resolution stamp.
		ticket.ResolvedAt = nil
	}

	if measurement != nil {
		entering := measurement.PausesOn(in.Target)
		leaving := measurement.PausesOn(from)
		if entering && !leaving {
			sla.Pause(measurement, now)
		} else if leaving && !entering {
			sla.Resume(measurement, now)
		}
	}

	fromCopy := from
	return &domain.TicketStatusHistory{
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		FromStatus: &fromCopy,
		ToStatus:   in.Target,
		Reason:     in.Reason,
		ChangedBy:  in.Actor.UserID,
		ChangedAt:  now,
	}, nil
}
