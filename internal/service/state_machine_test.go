package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/service"
	"github.com/voltdesk/maintenance-service/internal/sla"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func manager() service.Actor {
	return service.Actor{TenantID: "t1", UserID: "u-manager", Role: domain.RoleASManager}
}

func newTicket(status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:       "tk1",
		TenantID: "t1",
		Status:   status,
		Category: domain.CategoryHardware,
		Priority: domain.TicketPriorityHigh,
		Version:  3,
	}
}

func machine() *service.StateMachine {
	return service.NewStateMachine(auth.NewDefaultRolePolicy())
}

func activeAssignment() *domain.Assignment {
	userID := "u-engineer"
	return &domain.Assignment{ID: "a1", TenantID: "t1", TicketID: "tk1", AssigneeType: domain.AssigneeTypeUser, AssigneeUserID: &userID, Active: true}
}

func TestTransitionValidEdge(t *testing.T) {
	ticket := newTicket(domain.TicketStatusInProgress)

	history, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusResolved,
		Actor:  manager(),
		Reason: "replaced connector",
		Now:    now,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, now, *ticket.ResolvedAt)

	require.NotNil(t, history.FromStatus)
	assert.Equal(t, domain.TicketStatusInProgress, *history.FromStatus)
	assert.Equal(t, domain.TicketStatusResolved, history.ToStatus)
	assert.Equal(t, "replaced connector", history.Reason)
	assert.Equal(t, "u-manager", history.ChangedBy)
}

func TestTransitionRejectsUnknownEdge(t *testing.T) {
	ticket := newTicket(domain.TicketStatusNew)

	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusResolved,
		Actor:  manager(),
		Now:    now,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.Code(err))

	// Rejected transitions leave the ticket untouched.
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, int64(3), ticket.Version)
}

func TestTransitionTerminalStatusesAreFinal(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusCancelled} {
		ticket := newTicket(status)
		_, err := machine().Transition(ticket, nil, service.TransitionInput{
			Target: domain.TicketStatusInProgress,
			Actor:  manager(),
			Now:    now,
		})
		require.Error(t, err, string(status))
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.Code(err))
	}
}

func TestTransitionRoleDenied(t *testing.T) {
	viewer := service.Actor{TenantID: "t1", UserID: "u-viewer", Role: domain.RoleViewer}
	ticket := newTicket(domain.TicketStatusInProgress)

	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusResolved,
		Actor:  viewer,
		Now:    now,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.Code(err))
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestTransitionEngineerLimitedToWorkEdges(t *testing.T) {
	engineer := service.Actor{TenantID: "t1", UserID: "u-eng", Role: domain.RoleASEngineer}

	ticket := newTicket(domain.TicketStatusAssigned)
	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusInProgress,
		Actor:  engineer,
		Now:    now,
	})
	require.NoError(t, err)

	// Engineers cannot cancel.
	ticket = newTicket(domain.TicketStatusInProgress)
	_, err = machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusCancelled,
		Actor:  engineer,
		Now:    now,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.Code(err))
}

func TestTransitionCallCenterEdges(t *testing.T) {
	callCenter := service.Actor{TenantID: "t1", UserID: "u-cc", Role: domain.RoleCallCenter}

	ticket := newTicket(domain.TicketStatusNew)
	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusCancelled,
		Actor:  callCenter,
		Now:    now,
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.ClosedAt)

	ticket = newTicket(domain.TicketStatusNew)
	_, err = machine().Transition(ticket, nil, service.TransitionInput{
		Target:           domain.TicketStatusAssigned,
		Actor:            callCenter,
		Now:              now,
		ActiveAssignment: activeAssignment(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)

	ticket = newTicket(domain.TicketStatusResolved)
	_, err = machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusClosed,
		Actor:  callCenter,
		Now:    now,
	})
	require.NoError(t, err)
}

func TestTransitionToAssignedRequiresActiveAssignment(t *testing.T) {
	ticket := newTicket(domain.TicketStatusNew)

	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusAssigned,
		Actor:  manager(),
		Now:    now,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAssignmentRequired, apperrors.Code(err))

	_, err = machine().Transition(ticket, nil, service.TransitionInput{
		Target:           domain.TicketStatusAssigned,
		Actor:            manager(),
		Now:              now,
		ActiveAssignment: activeAssignment(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
}

func TestTransitionReopenClearsResolvedAt(t *testing.T) {
	ticket := newTicket(domain.TicketStatusResolved)
	resolvedAt := now.Add(-time.Hour)
	ticket.ResolvedAt = &resolvedAt

	_, err := machine().Transition(ticket, nil, service.TransitionInput{
		Target: domain.TicketStatusInProgress,
		Actor:  manager(),
		Reason: "issue reoccurred",
		Now:    now,
	})
	require.NoError(t, err)
	assert.Nil(t, ticket.ResolvedAt)
}

func TestTransitionPausesSlaClockOnWaitingStatus(t *testing.T) {
	policy := &domain.SlaPolicy{
		ID:                      "p1",
		ResponseTargetMinutes:   15,
		ResolutionTargetMinutes: 60,
		PauseStatuses:           []domain.TicketStatus{domain.TicketStatusWaitingOnCustomer},
	}
	measurement := &domain.SlaMeasurement{TenantID: "t1", TicketID: "tk1"}
	sla.Start(measurement, policy, now)

	ticket := newTicket(domain.TicketStatusInProgress)
	_, err := machine().Transition(ticket, measurement, service.TransitionInput{
		Target: domain.TicketStatusWaitingOnCustomer,
		Actor:  manager(),
		Now:    now.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, measurement.IsPaused())

	_, err = machine().Transition(ticket, measurement, service.TransitionInput{
		Target: domain.TicketStatusInProgress,
		Actor:  manager(),
		Now:    now.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, measurement.IsPaused())
	assert.Equal(t, 20*time.Minute, measurement.PausedTotal)
}

func TestTransitionPauseResumePauseAccumulates(t *testing.T) {
	policy := &domain.SlaPolicy{
		ID:                      "p1",
		ResponseTargetMinutes:   15,
		ResolutionTargetMinutes: 60,
		PauseStatuses: []domain.TicketStatus{
			domain.TicketStatusWaitingOnCustomer,
			domain.TicketStatusWaitingOnVendor,
		},
	}
	measurement := &domain.SlaMeasurement{TenantID: "t1", TicketID: "tk1"}
	sla.Start(measurement, policy, now)

	ticket := newTicket(domain.TicketStatusInProgress)
	_, err := machine().Transition(ticket, measurement, service.TransitionInput{
		Target: domain.TicketStatusWaitingOnCustomer,
		Actor:  manager(),
		Now:    now.Add(5 * time.Minute),
	})
	require.NoError(t, err)
	pauseStart := *measurement.PauseStartedAt

	_, err = machine().Transition(ticket, measurement, service.TransitionInput{
		Target: domain.TicketStatusInProgress,
		Actor:  manager(),
		Now:    now.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	_, err = machine().Transition(ticket, measurement, service.TransitionInput{
		Target: domain.TicketStatusWaitingOnVendor,
		Actor:  manager(),
		Now:    now.Add(20 * time.Minute),
	})
	require.NoError(t, err)

	assert.True(t, measurement.IsPaused())
	assert.Equal(t, 10*time.Minute, measurement.PausedTotal)
	assert.NotEqual(t, pauseStart, *measurement.PauseStartedAt)
}
