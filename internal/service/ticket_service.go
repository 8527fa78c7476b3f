package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/clock"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/events"
	"github.com/voltdesk/maintenance-service/internal/observability"
	"github.com/voltdesk/maintenance-service/internal/repository"
	"github.com/voltdesk/maintenance-service/internal/sla"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// PolicyResolver is the SLA policy lookup the service depends on.
type PolicyResolver interface {
	Resolve(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error)
}

// TicketService orchestrates the lifecycle engine. It is the sole entry point
// for ticket mutations: every operation is tenant-scoped, runs as a single
// transaction spanning state machine, SLA clock, assignment and history
// writes, and serializes concurrent mutation through the ticket version.
type TicketService struct {
	tx          repository.TxRunner
	machine     *StateMachine
	assignments *AssignmentService
	resolver    PolicyResolver
	clk         clock.Clock
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Tx          repository.TxRunner
	Machine     *StateMachine
	Assignments *AssignmentService
	Resolver    PolicyResolver
	Clock       clock.Clock
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tx:          deps.Tx,
		machine:     deps.Machine,
		assignments: deps.Assignments,
		resolver:    deps.Resolver,
		clk:         deps.Clock,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	SiteID        string
	ChargerID     *string
	Title         string
	Description   string
	Channel       domain.TicketChannel
	Category      domain.TicketCategory
	Priority      domain.TicketPriority
	ReporterName  *string
	ReporterEmail *string
}

// CreateTicket opens a ticket in NEW and starts its SLA measurement from the
// policy in force right now.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input CreateTicketInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if input.Category == "" {
		input.Category = domain.CategoryOther
	}
	if input.Channel == "" {
		input.Channel = domain.ChannelWeb
	}

	policy, err := s.resolver.Resolve(ctx, actor.TenantID, input.Category, input.Priority)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	ticket := &domain.Ticket{
		TenantID:      actor.TenantID,
		SiteID:        input.SiteID,
		ChargerID:     input.ChargerID,
		Number:        generateTicketNumber(),
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Channel:       input.Channel,
		Category:      input.Category,
		Priority:      input.Priority,
		Status:        domain.TicketStatusNew,
		OpenedAt:      now,
		ReporterName:  input.ReporterName,
		ReporterEmail: input.ReporterEmail,
		CreatedBy:     actor.UserID,
	}

	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		site, err := repos.Assets.GetSite(ctx, actor.TenantID, input.SiteID)
		if err != nil {
			return err
		}
		if !site.IsActive {
			return apperrors.NewValidationError("site inactive", map[string]any{"site_id": site.ID})
		}
		if input.ChargerID != nil {
			charger, err := repos.Assets.GetCharger(ctx, actor.TenantID, *input.ChargerID)
			if err != nil {
				return err
			}
			if charger.SiteID != input.SiteID {
				return apperrors.NewValidationError("charger not installed at site", map[string]any{"charger_id": charger.ID})
			}
		}

		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}

		measurement := &domain.SlaMeasurement{
			TenantID: actor.TenantID,
			TicketID: ticket.ID,
		}
		sla.Start(measurement, policy, now)
		if err := repos.Sla.CreateMeasurement(ctx, measurement); err != nil {
			return err
		}

		return repos.History.Append(ctx, &domain.TicketStatusHistory{
			TenantID:  actor.TenantID,
			TicketID:  ticket.ID,
			ToStatus:  domain.TicketStatusNew,
			Reason:    "created",
			ChangedBy: actor.UserID,
			ChangedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: actor.TenantID,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.TicketCreatedPayload{
			Number:   ticket.Number,
			SiteID:   ticket.SiteID,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// TransitionStatus moves a ticket along one edge of the status graph.
func (s *TicketService) TransitionStatus(ctx context.Context, actor Actor, ticketID string, target domain.TicketStatus, reason string) (*domain.Ticket, error) {
	var (
		ticket        *domain.Ticket
		measurement   *domain.SlaMeasurement
		oldStatus     domain.TicketStatus
		newlyBreached bool
	)

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		loadedVersion := ticket.Version
		oldStatus = ticket.Status

		measurement, err = repos.Sla.GetMeasurement(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}
		active, err := repos.Assignments.GetActive(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}

		now := s.clk.Now()
		history, err := s.machine.Transition(ticket, measurement, TransitionInput{
			Target:           target,
			Actor:            actor,
			Reason:           reason,
			Now:              now,
			ActiveAssignment: active,
		})
		if err != nil {
			return err
		}

		newlyBreached = sla.CheckBreach(measurement, now)
		if newlyBreached {
			ticket.SlaBreached = true
		}

		if err := repos.Tickets.UpdateWithVersion(ctx, ticket, loadedVersion); err != nil {
			return err
		}
		if err := repos.Sla.UpdateMeasurement(ctx, measurement); err != nil {
			return err
		}
		return repos.History.Append(ctx, history)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TicketTransitions.WithLabelValues(string(oldStatus), string(target)).Inc()
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TenantID: actor.TenantID,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: target,
			Reason:    reason,
			Terminal:  domain.IsTerminal(target),
		},
	})
	s.publishBreach(ctx, actor, ticket, measurement, newlyBreached)
	return ticket, nil
}

// AssignTicketInput describes an assignment request.
type AssignTicketInput struct {
	AssigneeType   domain.AssigneeType
	AssigneeUserID *string
	VendorName     string
	VendorContact  string
	Notes          string
	Reassign       bool
}

// AssignTicket creates (or replaces) the active assignment and, for NEW
// tickets, performs the NEW -> ASSIGNED transition in the same transaction.
func (s *TicketService) AssignTicket(ctx context.Context, actor Actor, ticketID string, input AssignTicketInput) (*domain.Ticket, error) {
	var (
		ticket     *domain.Ticket
		effect     *AssignEffect
		transition bool
	)

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		loadedVersion := ticket.Version

		active, err := repos.Assignments.GetActive(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}

		spec := AssigneeSpec{
			Type:          input.AssigneeType,
			VendorName:    input.VendorName,
			VendorContact: input.VendorContact,
			Notes:         input.Notes,
		}
		if input.AssigneeType == domain.AssigneeTypeUser {
			if input.AssigneeUserID == nil {
				return apperrors.NewInvalidAssignee("assignee user id required", nil)
			}
			user, err := repos.Users.GetByID(ctx, actor.TenantID, *input.AssigneeUserID)
			if err != nil {
				if apperrors.Code(err) == apperrors.CodeNotFound {
					return apperrors.NewInvalidAssignee("assignee user not found", nil)
				}
				return err
			}
			spec.User = user
		}

		now := s.clk.Now()
		effect, err = s.assignments.Assign(ticket, active, spec, actor, input.Reassign, now)
		if err != nil {
			return err
		}

		if effect.Deactivate != nil {
			if err := repos.Assignments.Deactivate(ctx, actor.TenantID, effect.Deactivate.ID, now); err != nil {
				return err
			}
		}
		if err := repos.Assignments.Create(ctx, effect.New); err != nil {
			return err
		}

		ref := effect.New.AssigneeRef()
		ticket.CurrentAssignee = &ref

		if ticket.Status == domain.TicketStatusNew {
			transition = true
			measurement, err := repos.Sla.GetMeasurement(ctx, actor.TenantID, ticket.ID)
			if err != nil {
				return err
			}
			history, err := s.machine.Transition(ticket, measurement, TransitionInput{
				Target:           domain.TicketStatusAssigned,
				Actor:            actor,
				Reason:           "assigned",
				Now:              now,
				ActiveAssignment: effect.New,
			})
			if err != nil {
				return err
			}
			if err := repos.Sla.UpdateMeasurement(ctx, measurement); err != nil {
				return err
			}
			if err := repos.History.Append(ctx, history); err != nil {
				return err
			}
		}

		return repos.Tickets.UpdateWithVersion(ctx, ticket, loadedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TenantID: actor.TenantID,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.TicketAssignedPayload{
			AssignmentID: effect.New.ID,
			AssigneeType: effect.New.AssigneeType,
			AssigneeRef:  effect.New.AssigneeRef(),
			Reassigned:   effect.Deactivate != nil,
		},
	})
	if transition && s.metrics != nil {
		s.metrics.TicketTransitions.WithLabelValues(string(domain.TicketStatusNew), string(domain.TicketStatusAssigned)).Inc()
	}
	return ticket, nil
}

// UnassignTicket releases the active assignment. A ticket that had already
// moved to ASSIGNED drops back to NEW so the ASSIGNED invariant holds.
func (s *TicketService) UnassignTicket(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		loadedVersion := ticket.Version

		active, err := repos.Assignments.GetActive(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}
		released, err := s.assignments.Unassign(ticket, active, actor)
		if err != nil {
			return err
		}

		now := s.clk.Now()
		if err := repos.Assignments.Deactivate(ctx, actor.TenantID, released.ID, now); err != nil {
			return err
		}
		ticket.CurrentAssignee = nil

		if ticket.Status == domain.TicketStatusAssigned {
			from := domain.TicketStatusAssigned
			ticket.Status = domain.TicketStatusNew
			if err := repos.History.Append(ctx, &domain.TicketStatusHistory{
				TenantID:   actor.TenantID,
				TicketID:   ticket.ID,
				FromStatus: &from,
				ToStatus:   domain.TicketStatusNew,
				Reason:     "unassigned",
				ChangedBy:  actor.UserID,
				ChangedAt:  now,
			}); err != nil {
				return err
			}
		}

		return repos.Tickets.UpdateWithVersion(ctx, ticket, loadedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketUnassigned,
		TenantID: actor.TenantID,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
	})
	return ticket, nil
}

// WorklogInput describes a work record.
type WorklogInput struct {
	Body             string
	WorkType         domain.WorkType
	TimeSpentMinutes *int
	IsInternal       bool
}

// RecordWorklog appends a work record. A public worklog marks SLA first
// response; the write still bumps the ticket version so concurrent mutations
// stay serialized.
func (s *TicketService) RecordWorklog(ctx context.Context, actor Actor, ticketID string, input WorklogInput) (*domain.Worklog, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("worklog body is required", nil)
	}
	if input.WorkType == "" {
		input.WorkType = domain.WorkTypeOther
	}

	var (
		worklog       *domain.Worklog
		ticket        *domain.Ticket
		measurement   *domain.SlaMeasurement
		newlyBreached bool
	)

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		loadedVersion := ticket.Version
		if domain.IsTerminal(ticket.Status) {
			return apperrors.NewInvalidState("cannot add worklogs to a terminal ticket")
		}

		now := s.clk.Now()
		worklog = &domain.Worklog{
			TenantID:         actor.TenantID,
			TicketID:         ticket.ID,
			Body:             body,
			WorkType:         input.WorkType,
			TimeSpentMinutes: input.TimeSpentMinutes,
			IsInternal:       input.IsInternal,
			AuthorID:         actor.UserID,
			CreatedAt:        now,
		}
		if err := repos.Worklogs.Create(ctx, worklog); err != nil {
			return err
		}

		measurement, err = repos.Sla.GetMeasurement(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}
		if !input.IsInternal {
			sla.MarkFirstResponse(measurement, now)
		}
		newlyBreached = sla.CheckBreach(measurement, now)
		if newlyBreached {
			ticket.SlaBreached = true
		}
		if err := repos.Sla.UpdateMeasurement(ctx, measurement); err != nil {
			return err
		}

		return repos.Tickets.UpdateWithVersion(ctx, ticket, loadedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventWorklogAdded,
		TenantID: actor.TenantID,
		TicketID: ticketID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.WorklogAddedPayload{
			WorklogID:  worklog.ID,
			WorkType:   worklog.WorkType,
			IsInternal: worklog.IsInternal,
		},
	})
	s.publishBreach(ctx, actor, ticket, measurement, newlyBreached)
	return worklog, nil
}

// TicketView bundles a ticket with its SLA measurement for read paths.
type TicketView struct {
	Ticket      *domain.Ticket
	Measurement *domain.SlaMeasurement
	Elapsed     time.Duration
}

// GetTicket loads a ticket and opportunistically evaluates the SLA breach.
// A breach discovered on read is persisted; a version race here is ignored
// because whichever writer won will run the same idempotent check.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, ticketID string) (*TicketView, error) {
	var view TicketView

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		measurement, err := repos.Sla.GetMeasurement(ctx, actor.TenantID, ticket.ID)
		if err != nil {
			return err
		}

		now := s.clk.Now()
		if !domain.IsTerminal(ticket.Status) && ticket.Status != domain.TicketStatusResolved {
			if sla.CheckBreach(measurement, now) {
				ticket.SlaBreached = true
				if err := repos.Sla.UpdateMeasurement(ctx, measurement); err != nil {
					return err
				}
				if err := repos.Tickets.UpdateWithVersion(ctx, ticket, ticket.Version); err != nil {
					if apperrors.Code(err) == apperrors.CodeConcurrentModification {
						s.logger.Debug("breach persist lost version race", zap.String("ticket_id", ticket.ID))
					} else {
						return err
					}
				}
			}
		}

		view.Ticket = ticket
		view.Measurement = measurement
		view.Elapsed = sla.EffectiveElapsed(measurement, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListTickets returns tenant-scoped tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		result, err = repos.Tickets.List(ctx, actor.TenantID, filter)
		return err
	})
	return result, err
}

// ListHistory returns the status audit trail for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor Actor, ticketID string, limit, offset int) ([]domain.TicketStatusHistory, error) {
	var result []domain.TicketStatusHistory
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID); err != nil {
			return err
		}
		var err error
		result, err = repos.History.ListByTicket(ctx, actor.TenantID, ticketID, limit, offset)
		return err
	})
	return result, err
}

// ListWorklogs returns work records; internal notes are visible to every
// operator role except VIEWER.
func (s *TicketService) ListWorklogs(ctx context.Context, actor Actor, ticketID string) ([]domain.Worklog, error) {
	includeInternal := actor.Role != domain.RoleViewer
	var result []domain.Worklog
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID); err != nil {
			return err
		}
		var err error
		result, err = repos.Worklogs.ListByTicket(ctx, actor.TenantID, ticketID, includeInternal)
		return err
	})
	return result, err
}

// ListAssignments returns the assignment audit trail.
func (s *TicketService) ListAssignments(ctx context.Context, actor Actor, ticketID string) ([]domain.Assignment, error) {
	var result []domain.Assignment
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID); err != nil {
			return err
		}
		var err error
		result, err = repos.Assignments.ListByTicket(ctx, actor.TenantID, ticketID)
		return err
	})
	return result, err
}

// RunBreachCheck evaluates one ticket's SLA state and persists a newly
// detected breach. It is the scanner's entry point and produces the same
// result as the lazy path for identical state. The returned bool reports a
// newly set resolution breach.
func (s *TicketService) RunBreachCheck(ctx context.Context, tenantID, ticketID string) (bool, error) {
	var (
		ticket        *domain.Ticket
		measurement   *domain.SlaMeasurement
		newlyBreached bool
	)

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.Get(ctx, tenantID, ticketID)
		if err != nil {
			return err
		}
		if domain.IsTerminal(ticket.Status) || ticket.Status == domain.TicketStatusResolved {
			return nil
		}
		loadedVersion := ticket.Version

		measurement, err = repos.Sla.GetMeasurement(ctx, tenantID, ticket.ID)
		if err != nil {
			return err
		}

		newlyBreached = sla.CheckBreach(measurement, s.clk.Now())
		if !newlyBreached {
			return nil
		}
		ticket.SlaBreached = true
		if err := repos.Sla.UpdateMeasurement(ctx, measurement); err != nil {
			return err
		}
		return repos.Tickets.UpdateWithVersion(ctx, ticket, loadedVersion)
	})
	if err != nil {
		return false, err
	}

	if newlyBreached {
		s.publishBreach(ctx, Actor{TenantID: tenantID, UserID: events.SystemActorID}, ticket, measurement, true)
	}
	return newlyBreached, nil
}

// ListOpenTicketsForScan exposes the scanner's paging read.
func (s *TicketService) ListOpenTicketsForScan(ctx context.Context, limit, offset int) ([]repository.OpenTicketRef, error) {
	var refs []repository.OpenTicketRef
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		refs, err = repos.Tickets.ListOpenForScan(ctx, limit, offset)
		return err
	})
	return refs, err
}

func (s *TicketService) publishBreach(ctx context.Context, actor Actor, ticket *domain.Ticket, measurement *domain.SlaMeasurement, newlyBreached bool) {
	if !newlyBreached || measurement == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.SlaBreaches.Inc()
	}
	breachedAt := measurement.StartedAt
	if measurement.BreachedAt != nil {
		breachedAt = *measurement.BreachedAt
	}
	s.publish(ctx, events.Event{
		Type:     events.EventSlaBreached,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.SlaBreachedPayload{
			MeasurementID: measurement.ID,
			PolicyID:      measurement.PolicyID,
			BreachedAt:    breachedAt,
		},
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clk.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
