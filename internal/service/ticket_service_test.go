package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/clock"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/events"
	"github.com/voltdesk/maintenance-service/internal/repository"
	"github.com/voltdesk/maintenance-service/internal/service"
	"github.com/voltdesk/maintenance-service/internal/sla"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

type eventRecorder struct {
	mu       sync.Mutex
	recorded []events.Event
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, e := range r.recorded {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

type testEnv struct {
	store  *fakeStore
	clk    *clock.Manual
	svc    *service.TicketService
	events *eventRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	store.sites["s1"] = &domain.Site{ID: "s1", TenantID: "t1", Name: "Depot North", Code: "DN", IsActive: true}
	store.sites["s2"] = &domain.Site{ID: "s2", TenantID: "t1", Name: "Depot South", Code: "DS", IsActive: false}
	store.chargers["c1"] = &domain.Charger{ID: "c1", TenantID: "t1", SiteID: "s1", Name: "DN-01", IsActive: true}
	store.users["u-manager"] = &domain.User{ID: "u-manager", TenantID: "t1", Role: domain.RoleASManager, IsActive: true}
	store.users["u-eng"] = &domain.User{ID: "u-eng", TenantID: "t1", Role: domain.RoleASEngineer, IsActive: true}
	store.policies = append(store.policies,
		&domain.SlaPolicy{
			ID:                      "pol-hw-high",
			TenantID:                "t1",
			Category:                domain.CategoryHardware,
			Priority:                domain.TicketPriorityHigh,
			ResponseTargetMinutes:   60,
			ResolutionTargetMinutes: 240,
			PauseStatuses:           []domain.TicketStatus{domain.TicketStatusWaitingOnCustomer, domain.TicketStatusWaitingOnVendor},
			IsActive:                true,
		},
		&domain.SlaPolicy{
			ID:                      "pol-hw-default",
			TenantID:                "t1",
			Category:                domain.CategoryHardware,
			IsDefault:               true,
			ResponseTargetMinutes:   120,
			ResolutionTargetMinutes: 480,
			IsActive:                true,
		},
	)

	clk := clock.NewManual(now)
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketUnassigned,
		events.EventWorklogAdded,
		events.EventSlaBreached,
	} {
		dispatcher.Subscribe(eventType, recorder.handle)
	}

	policy := auth.NewDefaultRolePolicy()
	svc := service.NewTicketService(service.TicketDependencies{
		Tx:          &fakeTxRunner{store: store},
		Machine:     service.NewStateMachine(policy),
		Assignments: service.NewAssignmentService(policy),
		Resolver:    sla.NewResolver(&fakeSlaRepo{store}, nil, 0, zap.NewNop()),
		Clock:       clk,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})

	return &testEnv{store: store, clk: clk, svc: svc, events: recorder}
}

func (e *testEnv) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	chargerID := "c1"
	ticket, err := e.svc.CreateTicket(context.Background(), manager(), service.CreateTicketInput{
		SiteID:    "s1",
		ChargerID: &chargerID,
		Title:     "Connector jammed on CCS port",
		Category:  domain.CategoryHardware,
		Priority:  domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func (e *testEnv) assignEngineer(t *testing.T, ticketID string) *domain.Ticket {
	t.Helper()
	userID := "u-eng"
	ticket, err := e.svc.AssignTicket(context.Background(), manager(), ticketID, service.AssignTicketInput{
		AssigneeType:   domain.AssigneeTypeUser,
		AssigneeUserID: &userID,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketStartsSlaMeasurement(t *testing.T) {
	env := newTestEnv(t)

	ticket := env.createTicket(t)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.True(t, strings.HasPrefix(ticket.Number, "TKT-"), "number %q", ticket.Number)
	assert.Equal(t, int64(1), ticket.Version)
	assert.Equal(t, now, ticket.OpenedAt)

	measurement := env.store.measurements[ticket.ID]
	require.NotNil(t, measurement)
	assert.Equal(t, "pol-hw-high", measurement.PolicyID)
	assert.Equal(t, now.Add(60*time.Minute), measurement.ResponseDeadline)
	assert.Equal(t, now.Add(240*time.Minute), measurement.ResolutionDeadline)
	assert.False(t, measurement.Breached)

	require.Len(t, env.store.histories, 1)
	entry := env.store.histories[0]
	assert.Nil(t, entry.FromStatus)
	assert.Equal(t, domain.TicketStatusNew, entry.ToStatus)
	assert.Equal(t, "created", entry.Reason)

	created := env.events.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	payload := created[0].Payload.(events.TicketCreatedPayload)
	assert.Equal(t, ticket.Number, payload.Number)
}

func TestCreateTicketFallsBackToCategoryDefault(t *testing.T) {
	env := newTestEnv(t)

	ticket, err := env.svc.CreateTicket(context.Background(), manager(), service.CreateTicketInput{
		SiteID:   "s1",
		Title:    "Screen flickering",
		Category: domain.CategoryHardware,
		Priority: domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	measurement := env.store.measurements[ticket.ID]
	require.NotNil(t, measurement)
	assert.Equal(t, "pol-hw-default", measurement.PolicyID)
	assert.Equal(t, now.Add(480*time.Minute), measurement.ResolutionDeadline)
}

func TestCreateTicketWithoutPolicyFails(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateTicket(context.Background(), manager(), service.CreateTicketInput{
		SiteID:   "s1",
		Title:    "Backhaul link down",
		Category: domain.CategoryNetwork,
		Priority: domain.TicketPriorityHigh,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePolicyNotFound, apperrors.Code(err))
}

func TestCreateTicketRejectsBlankTitle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateTicket(context.Background(), manager(), service.CreateTicketInput{
		SiteID: "s1",
		Title:  "   ",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
}

func TestCreateTicketRejectsInactiveSite(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateTicket(context.Background(), manager(), service.CreateTicketInput{
		SiteID:   "s2",
		Title:    "Bollard damaged",
		Category: domain.CategoryHardware,
		Priority: domain.TicketPriorityHigh,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.Code(err))
}

func TestGetTicketCrossTenantLooksUnknown(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t)

	intruder := service.Actor{TenantID: "t2", UserID: "u-other", Role: domain.RoleASManager}
	_, err := env.svc.GetTicket(context.Background(), intruder, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))
}

func TestAssignTicketMovesNewToAssigned(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	ticket := env.assignEngineer(t, created.ID)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.CurrentAssignee)
	assert.Equal(t, "u-eng", *ticket.CurrentAssignee)
	assert.Equal(t, int64(2), ticket.Version)

	stored := env.store.tickets[ticket.ID]
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)

	require.Len(t, env.store.assignments, 1)
	assert.True(t, env.store.assignments[0].Active)

	require.Len(t, env.store.histories, 2)
	assert.Equal(t, domain.TicketStatusAssigned, env.store.histories[1].ToStatus)

	assigned := env.events.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 1)
	payload := assigned[0].Payload.(events.TicketAssignedPayload)
	assert.False(t, payload.Reassigned)
	assert.Equal(t, "u-eng", payload.AssigneeRef)
}

func TestAssignTicketByCallCenterDispatchesNewTicket(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	dispatcher := service.Actor{TenantID: "t1", UserID: "u-cc", Role: domain.RoleCallCenter}
	userID := "u-eng"
	ticket, err := env.svc.AssignTicket(context.Background(), dispatcher, created.ID, service.AssignTicketInput{
		AssigneeType:   domain.AssigneeTypeUser,
		AssigneeUserID: &userID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.CurrentAssignee)
	assert.Equal(t, "u-eng", *ticket.CurrentAssignee)
}

func TestReassignDeactivatesPriorAssignment(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	ticket, err := env.svc.AssignTicket(context.Background(), manager(), created.ID, service.AssignTicketInput{
		AssigneeType: domain.AssigneeTypeVendor,
		VendorName:   "GridFix BV",
		Reassign:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.CurrentAssignee)
	assert.Equal(t, "GridFix BV", *ticket.CurrentAssignee)

	require.Len(t, env.store.assignments, 2)
	old, replacement := env.store.assignments[0], env.store.assignments[1]
	assert.False(t, old.Active)
	require.NotNil(t, old.ReleasedAt)
	assert.True(t, replacement.Active)

	assigned := env.events.ofType(events.EventTicketAssigned)
	require.Len(t, assigned, 2)
	assert.True(t, assigned[1].Payload.(events.TicketAssignedPayload).Reassigned)
}

func TestAssignTicketRejectsSecondActiveWithoutReassign(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	_, err := env.svc.AssignTicket(context.Background(), manager(), created.ID, service.AssignTicketInput{
		AssigneeType: domain.AssigneeTypeVendor,
		VendorName:   "GridFix BV",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlreadyAssigned, apperrors.Code(err))
}

func TestAssignUnknownUserLooksInvalid(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	userID := "u-ghost"
	_, err := env.svc.AssignTicket(context.Background(), manager(), created.ID, service.AssignTicketInput{
		AssigneeType:   domain.AssigneeTypeUser,
		AssigneeUserID: &userID,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAssignee, apperrors.Code(err))
}

func TestUnassignRevertsAssignedToNew(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	ticket, err := env.svc.UnassignTicket(context.Background(), manager(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Nil(t, ticket.CurrentAssignee)
	assert.False(t, env.store.assignments[0].Active)

	last := env.store.histories[len(env.store.histories)-1]
	assert.Equal(t, "unassigned", last.Reason)
	require.NotNil(t, last.FromStatus)
	assert.Equal(t, domain.TicketStatusAssigned, *last.FromStatus)
	assert.Equal(t, domain.TicketStatusNew, last.ToStatus)
}

func TestTransitionBumpsVersionAndAppendsHistory(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	ticket, err := env.svc.TransitionStatus(context.Background(), manager(), created.ID, domain.TicketStatusInProgress, "on site")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, int64(3), ticket.Version)

	last := env.store.histories[len(env.store.histories)-1]
	assert.Equal(t, domain.TicketStatusInProgress, last.ToStatus)
	assert.Equal(t, "on site", last.Reason)

	changed := env.events.ofType(events.EventTicketStatusChanged)
	require.NotEmpty(t, changed)
	payload := changed[len(changed)-1].Payload.(events.TicketStatusChangedPayload)
	assert.Equal(t, domain.TicketStatusAssigned, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
	assert.False(t, payload.Terminal)
}

func TestTransitionSurfacesConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	env.store.conflictOnce = true
	_, err := env.svc.TransitionStatus(context.Background(), manager(), created.ID, domain.TicketStatusInProgress, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConcurrentModification, apperrors.Code(err))
	assert.Equal(t, domain.TicketStatusAssigned, env.store.tickets[created.ID].Status)
}

func TestRecordWorklogMarksFirstResponse(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	env.clk.Advance(10 * time.Minute)
	worklog, err := env.svc.RecordWorklog(context.Background(), manager(), created.ID, service.WorklogInput{
		Body:     "Called the site host, charger is powered but unresponsive",
		WorkType: domain.WorkTypeCommunication,
	})
	require.NoError(t, err)
	assert.False(t, worklog.IsInternal)

	measurement := env.store.measurements[created.ID]
	require.NotNil(t, measurement.FirstResponseAt)
	assert.Equal(t, now.Add(10*time.Minute), *measurement.FirstResponseAt)
	assert.False(t, measurement.ResponseBreached)

	assert.Equal(t, int64(2), env.store.tickets[created.ID].Version)
}

func TestInternalWorklogDoesNotCountAsResponse(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	_, err := env.svc.RecordWorklog(context.Background(), manager(), created.ID, service.WorklogInput{
		Body:       "Suspect the same relay fault as DN-03 last month",
		IsInternal: true,
	})
	require.NoError(t, err)

	assert.Nil(t, env.store.measurements[created.ID].FirstResponseAt)
}

func TestRecordWorklogOnTerminalTicketRejected(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	_, err := env.svc.TransitionStatus(context.Background(), manager(), created.ID, domain.TicketStatusCancelled, "duplicate")
	require.NoError(t, err)

	_, err = env.svc.RecordWorklog(context.Background(), manager(), created.ID, service.WorklogInput{Body: "late note"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.Code(err))
}

func TestRunBreachCheckPersistsNewResolutionBreach(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)

	env.clk.Advance(241 * time.Minute)
	breached, err := env.svc.RunBreachCheck(context.Background(), "t1", created.ID)
	require.NoError(t, err)
	assert.True(t, breached)

	stored := env.store.tickets[created.ID]
	assert.True(t, stored.SlaBreached)
	assert.Equal(t, int64(2), stored.Version)

	measurement := env.store.measurements[created.ID]
	assert.True(t, measurement.Breached)
	require.NotNil(t, measurement.BreachedAt)

	breaches := env.events.ofType(events.EventSlaBreached)
	require.Len(t, breaches, 1)
	assert.Equal(t, events.SystemActorID, breaches[0].Actor.UserID)
	assert.Equal(t, "pol-hw-high", breaches[0].Payload.(events.SlaBreachedPayload).PolicyID)

	breached, err = env.svc.RunBreachCheck(context.Background(), "t1", created.ID)
	require.NoError(t, err)
	assert.False(t, breached, "breach must be reported once")
	assert.Len(t, env.events.ofType(events.EventSlaBreached), 1)
}

func TestRunBreachCheckSkipsResolvedTickets(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	ctx := context.Background()
	_, err := env.svc.TransitionStatus(ctx, manager(), created.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	_, err = env.svc.TransitionStatus(ctx, manager(), created.ID, domain.TicketStatusResolved, "relay swapped")
	require.NoError(t, err)

	env.clk.Advance(24 * time.Hour)
	breached, err := env.svc.RunBreachCheck(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.False(t, breached)
	assert.False(t, env.store.tickets[created.ID].SlaBreached)
}

func TestGetTicketLazyBreachMatchesScanner(t *testing.T) {
	env := newTestEnv(t)
	lazy := env.createTicket(t)
	scanned := env.createTicket(t)

	env.clk.Advance(241 * time.Minute)

	view, err := env.svc.GetTicket(context.Background(), manager(), lazy.ID)
	require.NoError(t, err)
	assert.True(t, view.Ticket.SlaBreached)

	breached, err := env.svc.RunBreachCheck(context.Background(), "t1", scanned.ID)
	require.NoError(t, err)
	assert.True(t, breached)

	assert.Equal(t, env.store.tickets[lazy.ID].SlaBreached, env.store.tickets[scanned.ID].SlaBreached)
	assert.True(t, env.store.measurements[lazy.ID].Breached)
	assert.True(t, env.store.measurements[scanned.ID].Breached)
}

func TestPausedTicketDoesNotBreachWhileWaiting(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTicket(t)
	env.assignEngineer(t, created.ID)

	ctx := context.Background()
	_, err := env.svc.TransitionStatus(ctx, manager(), created.ID, domain.TicketStatusInProgress, "")
	require.NoError(t, err)
	_, err = env.svc.TransitionStatus(ctx, manager(), created.ID, domain.TicketStatusWaitingOnVendor, "part on order")
	require.NoError(t, err)

	env.clk.Advance(7 * 24 * time.Hour)
	breached, err := env.svc.RunBreachCheck(ctx, "t1", created.ID)
	require.NoError(t, err)
	assert.False(t, breached)
	assert.False(t, env.store.tickets[created.ID].SlaBreached)
}

func TestListOpenTicketsForScanExcludesTerminal(t *testing.T) {
	env := newTestEnv(t)
	open := env.createTicket(t)
	cancelled := env.createTicket(t)

	_, err := env.svc.TransitionStatus(context.Background(), manager(), cancelled.ID, domain.TicketStatusCancelled, "duplicate")
	require.NoError(t, err)

	refs, err := env.svc.ListOpenTicketsForScan(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, open.ID, refs[0].TicketID)
	assert.Equal(t, "t1", refs[0].TenantID)
}

func TestListTicketsFiltersByBreach(t *testing.T) {
	env := newTestEnv(t)
	breachedTicket := env.createTicket(t)
	env.createTicket(t)

	env.clk.Advance(241 * time.Minute)
	_, err := env.svc.RunBreachCheck(context.Background(), "t1", breachedTicket.ID)
	require.NoError(t, err)

	yes := true
	result, err := env.svc.ListTickets(context.Background(), manager(), repository.TicketFilter{Breached: &yes})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, breachedTicket.ID, result[0].ID)
}
