package service_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// fakeStore is an in-memory stand-in for Postgres. It enforces the same
// tenant scoping and version guard the SQL layer does, so service tests
// exercise the real failure modes.
type fakeStore struct {
	seq          int
	conflictOnce bool
	tickets      map[string]*domain.Ticket
	measurements map[string]*domain.SlaMeasurement
	histories    []domain.TicketStatusHistory
	assignments  []*domain.Assignment
	worklogs     []domain.Worklog
	users        map[string]*domain.User
	sites        map[string]*domain.Site
	chargers     map[string]*domain.Charger
	policies     []*domain.SlaPolicy
	eventRefs    []domain.CsmsEventRef
	firmwareRefs []domain.FirmwareJobRef
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets:      map[string]*domain.Ticket{},
		measurements: map[string]*domain.SlaMeasurement{},
		users:        map[string]*domain.User{},
		sites:        map[string]*domain.Site{},
		chargers:     map[string]*domain.Charger{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) repos() repository.Repositories {
	return repository.Repositories{
		Tickets:     &fakeTicketRepo{s},
		History:     &fakeHistoryRepo{s},
		Assignments: &fakeAssignmentRepo{s},
		Worklogs:    &fakeWorklogRepo{s},
		Sla:         &fakeSlaRepo{s},
		Users:       &fakeUserRepo{s},
		Assets:      &fakeAssetRepo{s},
		CsmsRefs:    &fakeCsmsRefRepo{s},
	}
}

// fakeTxRunner satisfies repository.TxRunner without transactional rollback;
// the tests only assert on operations that fail before any write.
type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) WithinTx(_ context.Context, fn func(repos repository.Repositories) error) error {
	return fn(r.store.repos())
}

type fakeTicketRepo struct{ s *fakeStore }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.s.nextID("tk")
	ticket.Version = 1
	ticket.CreatedAt = ticket.OpenedAt
	ticket.UpdatedAt = ticket.OpenedAt
	stored := *ticket
	r.s.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) Get(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	stored, ok := r.s.tickets[id]
	if !ok || stored.TenantID != tenantID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTicketRepo) UpdateWithVersion(_ context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	if r.s.conflictOnce {
		r.s.conflictOnce = false
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	stored, ok := r.s.tickets[ticket.ID]
	if !ok || stored.TenantID != ticket.TenantID || stored.Version != expectedVersion {
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	copied := *ticket
	copied.Version = expectedVersion + 1
	r.s.tickets[ticket.ID] = &copied
	ticket.Version = copied.Version
	return nil
}

func (r *fakeTicketRepo) List(_ context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.TenantID != tenantID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.Breached != nil && ticket.SlaBreached != *filter.Breached {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTicketRepo) ListOpenForScan(_ context.Context, limit, offset int) ([]repository.OpenTicketRef, error) {
	var refs []repository.OpenTicketRef
	for _, ticket := range r.s.tickets {
		switch ticket.Status {
		case domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled:
			continue
		}
		refs = append(refs, repository.OpenTicketRef{TenantID: ticket.TenantID, TicketID: ticket.ID})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].TicketID < refs[j].TicketID })
	if offset >= len(refs) {
		return nil, nil
	}
	refs = refs[offset:]
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeHistoryRepo struct{ s *fakeStore }

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.TicketStatusHistory) error {
	entry.ID = r.s.nextID("h")
	r.s.histories = append(r.s.histories, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, tenantID, ticketID string, _, _ int) ([]domain.TicketStatusHistory, error) {
	var result []domain.TicketStatusHistory
	for _, entry := range r.s.histories {
		if entry.TenantID == tenantID && entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeAssignmentRepo struct{ s *fakeStore }

func (r *fakeAssignmentRepo) Create(_ context.Context, assignment *domain.Assignment) error {
	assignment.ID = r.s.nextID("a")
	stored := *assignment
	r.s.assignments = append(r.s.assignments, &stored)
	return nil
}

func (r *fakeAssignmentRepo) GetActive(_ context.Context, tenantID, ticketID string) (*domain.Assignment, error) {
	for _, a := range r.s.assignments {
		if a.TenantID == tenantID && a.TicketID == ticketID && a.Active {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAssignmentRepo) Deactivate(_ context.Context, tenantID, assignmentID string, releasedAt time.Time) error {
	for _, a := range r.s.assignments {
		if a.TenantID == tenantID && a.ID == assignmentID {
			a.Active = false
			released := releasedAt
			a.ReleasedAt = &released
			return nil
		}
	}
	return apperrors.NewNotFound("assignment", nil)
}

func (r *fakeAssignmentRepo) ListByTicket(_ context.Context, tenantID, ticketID string) ([]domain.Assignment, error) {
	var result []domain.Assignment
	for _, a := range r.s.assignments {
		if a.TenantID == tenantID && a.TicketID == ticketID {
			result = append(result, *a)
		}
	}
	return result, nil
}

type fakeWorklogRepo struct{ s *fakeStore }

func (r *fakeWorklogRepo) Create(_ context.Context, worklog *domain.Worklog) error {
	worklog.ID = r.s.nextID("w")
	r.s.worklogs = append(r.s.worklogs, *worklog)
	return nil
}

func (r *fakeWorklogRepo) ListByTicket(_ context.Context, tenantID, ticketID string, includeInternal bool) ([]domain.Worklog, error) {
	var result []domain.Worklog
	for _, w := range r.s.worklogs {
		if w.TenantID != tenantID || w.TicketID != ticketID {
			continue
		}
		if w.IsInternal && !includeInternal {
			continue
		}
		result = append(result, w)
	}
	return result, nil
}

type fakeSlaRepo struct{ s *fakeStore }

func (r *fakeSlaRepo) FindActivePolicy(_ context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	for _, p := range r.s.policies {
		if p.TenantID == tenantID && p.Category == category && p.Priority == priority && !p.IsDefault && p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSlaRepo) FindCategoryDefault(_ context.Context, tenantID string, category domain.TicketCategory) (*domain.SlaPolicy, error) {
	for _, p := range r.s.policies {
		if p.TenantID == tenantID && p.Category == category && p.IsDefault && p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSlaRepo) ListPolicies(_ context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	for _, p := range r.s.policies {
		if p.TenantID == tenantID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeSlaRepo) UpsertPolicy(_ context.Context, policy *domain.SlaPolicy) error {
	for i, existing := range r.s.policies {
		if existing.TenantID == policy.TenantID && existing.Category == policy.Category &&
			existing.Priority == policy.Priority && existing.IsDefault == policy.IsDefault {
			policy.ID = existing.ID
			copied := *policy
			r.s.policies[i] = &copied
			return nil
		}
	}
	policy.ID = r.s.nextID("p")
	copied := *policy
	r.s.policies = append(r.s.policies, &copied)
	return nil
}

func (r *fakeSlaRepo) CreateMeasurement(_ context.Context, m *domain.SlaMeasurement) error {
	m.ID = r.s.nextID("m")
	copied := *m
	r.s.measurements[m.TicketID] = &copied
	return nil
}

func (r *fakeSlaRepo) GetMeasurement(_ context.Context, tenantID, ticketID string) (*domain.SlaMeasurement, error) {
	stored, ok := r.s.measurements[ticketID]
	if !ok || stored.TenantID != tenantID {
		return nil, apperrors.NewNotFound("sla measurement", map[string]any{"ticket_id": ticketID})
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeSlaRepo) UpdateMeasurement(_ context.Context, m *domain.SlaMeasurement) error {
	stored, ok := r.s.measurements[m.TicketID]
	if !ok || stored.TenantID != m.TenantID {
		return apperrors.NewNotFound("sla measurement", nil)
	}
	copied := *m
	r.s.measurements[m.TicketID] = &copied
	return nil
}

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) GetByID(_ context.Context, tenantID, id string) (*domain.User, error) {
	stored, ok := r.s.users[id]
	if !ok || stored.TenantID != tenantID {
		return nil, apperrors.NewNotFound("user", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, tenantID, id string, at time.Time) error {
	if stored, ok := r.s.users[id]; ok && stored.TenantID == tenantID {
		stored.LastLoginAt = &at
	}
	return nil
}

type fakeAssetRepo struct{ s *fakeStore }

func (r *fakeAssetRepo) GetSite(_ context.Context, tenantID, id string) (*domain.Site, error) {
	stored, ok := r.s.sites[id]
	if !ok || stored.TenantID != tenantID {
		return nil, apperrors.NewNotFound("site", map[string]any{"site_id": id})
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeAssetRepo) GetCharger(_ context.Context, tenantID, id string) (*domain.Charger, error) {
	stored, ok := r.s.chargers[id]
	if !ok || stored.TenantID != tenantID {
		return nil, apperrors.NewNotFound("charger", map[string]any{"charger_id": id})
	}
	copied := *stored
	return &copied, nil
}

type fakeCsmsRefRepo struct{ s *fakeStore }

func (r *fakeCsmsRefRepo) CreateEventRef(_ context.Context, ref *domain.CsmsEventRef) error {
	ref.ID = r.s.nextID("ce")
	r.s.eventRefs = append(r.s.eventRefs, *ref)
	return nil
}

func (r *fakeCsmsRefRepo) ListEventRefs(_ context.Context, tenantID, ticketID string) ([]domain.CsmsEventRef, error) {
	var result []domain.CsmsEventRef
	for _, ref := range r.s.eventRefs {
		if ref.TenantID == tenantID && ref.TicketID == ticketID {
			result = append(result, ref)
		}
	}
	return result, nil
}

func (r *fakeCsmsRefRepo) CreateFirmwareJobRef(_ context.Context, ref *domain.FirmwareJobRef) error {
	ref.ID = r.s.nextID("fj")
	r.s.firmwareRefs = append(r.s.firmwareRefs, *ref)
	return nil
}

func (r *fakeCsmsRefRepo) ListFirmwareJobRefs(_ context.Context, tenantID, ticketID string) ([]domain.FirmwareJobRef, error) {
	var result []domain.FirmwareJobRef
	for _, ref := range r.s.firmwareRefs {
		if ref.TenantID == tenantID && ref.TicketID == ticketID {
			result = append(result, ref)
		}
	}
	return result, nil
}
