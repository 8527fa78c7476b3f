package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// SlaRepository persists SLA policies and per-ticket measurements. Policy
// lookups return (nil, nil) when nothing matches; the resolver owns the
// fallback and not-found semantics.
type SlaRepository interface {
	FindActivePolicy(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	FindCategoryDefault(ctx context.Context, tenantID string, category domain.TicketCategory) (*domain.SlaPolicy, error)
	ListPolicies(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error)
	UpsertPolicy(ctx context.Context, policy *domain.SlaPolicy) error

	CreateMeasurement(ctx context.Context, m *domain.SlaMeasurement) error
	GetMeasurement(ctx context.Context, tenantID, ticketID string) (*domain.SlaMeasurement, error)
	UpdateMeasurement(ctx context.Context, m *domain.SlaMeasurement) error
}

type slaRepository struct {
	db Querier
}

// NewSlaRepository builds the repository.
func NewSlaRepository(db Querier) SlaRepository {
	return &slaRepository{db: db}
}

const policyColumns = `id, tenant_id, category, priority, is_default,
       response_target_minutes, resolution_target_minutes, pause_statuses,
       is_active, created_at, updated_at`

func (r *slaRepository) FindActivePolicy(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM sla_policies
        WHERE tenant_id=$1 AND category=$2 AND priority=$3 AND NOT is_default AND is_active
        ORDER BY created_at ASC LIMIT 1`
	return r.fetchPolicy(ctx, query, tenantID, category, priority)
}

func (r *slaRepository) FindCategoryDefault(ctx context.Context, tenantID string, category domain.TicketCategory) (*domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM sla_policies
        WHERE tenant_id=$1 AND category=$2 AND is_default AND is_active
        ORDER BY created_at ASC LIMIT 1`
	return r.fetchPolicy(ctx, query, tenantID, category)
}

func (r *slaRepository) fetchPolicy(ctx context.Context, query string, args ...any) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	var pauseStatuses []string
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&policy.ID,
		&policy.TenantID,
		&policy.Category,
		&policy.Priority,
		&policy.IsDefault,
		&policy.ResponseTargetMinutes,
		&policy.ResolutionTargetMinutes,
		&pauseStatuses,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStorageErr(err)
	}
	policy.PauseStatuses = toStatuses(pauseStatuses)
	return &policy, nil
}

func (r *slaRepository) ListPolicies(ctx context.Context, tenantID string) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM sla_policies WHERE tenant_id=$1 ORDER BY category, is_default, priority`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		var policy domain.SlaPolicy
		var pauseStatuses []string
		if err := rows.Scan(
			&policy.ID,
			&policy.TenantID,
			&policy.Category,
			&policy.Priority,
			&policy.IsDefault,
			&policy.ResponseTargetMinutes,
			&policy.ResolutionTargetMinutes,
			&pauseStatuses,
			&policy.IsActive,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		policy.PauseStatuses = toStatuses(pauseStatuses)
		result = append(result, policy)
	}
	return result, rows.Err()
}

func (r *slaRepository) UpsertPolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (tenant_id, category, priority, is_default,
            response_target_minutes, resolution_target_minutes, pause_statuses, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (tenant_id, category, priority, is_default) DO UPDATE SET
            response_target_minutes=EXCLUDED.response_target_minutes,
            resolution_target_minutes=EXCLUDED.resolution_target_minutes,
            pause_statuses=EXCLUDED.pause_statuses,
            is_active=EXCLUDED.is_active,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		policy.TenantID,
		policy.Category,
		policy.Priority,
		policy.IsDefault,
		policy.ResponseTargetMinutes,
		policy.ResolutionTargetMinutes,
		fromStatuses(policy.PauseStatuses),
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	return wrapStorageErr(err)
}

const measurementColumns = `id, tenant_id, ticket_id, policy_id, started_at,
       response_deadline, resolution_deadline, pause_statuses, pause_started_at,
       paused_total_seconds, first_response_at, response_breached, breached,
       breached_at, created_at, updated_at`

func (r *slaRepository) CreateMeasurement(ctx context.Context, m *domain.SlaMeasurement) error {
	const query = `
        INSERT INTO sla_measurements (tenant_id, ticket_id, policy_id, started_at,
            response_deadline, resolution_deadline, pause_statuses, pause_started_at,
            paused_total_seconds, first_response_at, response_breached, breached, breached_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		m.TenantID,
		m.TicketID,
		m.PolicyID,
		m.StartedAt,
		m.ResponseDeadline,
		m.ResolutionDeadline,
		fromStatuses(m.PauseStatuses),
		m.PauseStartedAt,
		int64(m.PausedTotal/time.Second),
		m.FirstResponseAt,
		m.ResponseBreached,
		m.Breached,
		m.BreachedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return wrapStorageErr(err)
}

func (r *slaRepository) GetMeasurement(ctx context.Context, tenantID, ticketID string) (*domain.SlaMeasurement, error) {
	query := `SELECT ` + measurementColumns + `
        FROM sla_measurements WHERE tenant_id=$1 AND ticket_id=$2`
	var m domain.SlaMeasurement
	var pauseStatuses []string
	var pausedSeconds int64
	err := r.db.QueryRow(ctx, query, tenantID, ticketID).Scan(
		&m.ID,
		&m.TenantID,
		&m.TicketID,
		&m.PolicyID,
		&m.StartedAt,
		&m.ResponseDeadline,
		&m.ResolutionDeadline,
		&pauseStatuses,
		&m.PauseStartedAt,
		&pausedSeconds,
		&m.FirstResponseAt,
		&m.ResponseBreached,
		&m.Breached,
		&m.BreachedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla measurement", map[string]any{"ticket_id": ticketID})
		}
		return nil, wrapStorageErr(err)
	}
	m.PauseStatuses = toStatuses(pauseStatuses)
	m.PausedTotal = time.Duration(pausedSeconds) * time.Second
	return &m, nil
}

func (r *slaRepository) UpdateMeasurement(ctx context.Context, m *domain.SlaMeasurement) error {
	const query = `
        UPDATE sla_measurements SET response_deadline=$1, resolution_deadline=$2,
            pause_started_at=$3, paused_total_seconds=$4, first_response_at=$5,
            response_breached=$6, breached=$7, breached_at=$8, updated_at=NOW()
        WHERE tenant_id=$9 AND id=$10`
	_, err := r.db.Exec(ctx, query,
		m.ResponseDeadline,
		m.ResolutionDeadline,
		m.PauseStartedAt,
		int64(m.PausedTotal/time.Second),
		m.FirstResponseAt,
		m.ResponseBreached,
		m.Breached,
		m.BreachedAt,
		m.TenantID,
		m.ID,
	)
	return wrapStorageErr(err)
}

func toStatuses(values []string) []domain.TicketStatus {
	result := make([]domain.TicketStatus, 0, len(values))
	for _, v := range values {
		result = append(result, domain.TicketStatus(v))
	}
	return result
}

func fromStatuses(statuses []domain.TicketStatus) []string {
	result := make([]string, 0, len(statuses))
	for _, s := range statuses {
		result = append(result, string(s))
	}
	return result
}
