package repository

import (
	"context"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// CsmsRefRepository persists links between tickets and CSMS events or
// firmware jobs.
type CsmsRefRepository interface {
	CreateEventRef(ctx context.Context, ref *domain.CsmsEventRef) error
	ListEventRefs(ctx context.Context, tenantID, ticketID string) ([]domain.CsmsEventRef, error)
	CreateFirmwareJobRef(ctx context.Context, ref *domain.FirmwareJobRef) error
	ListFirmwareJobRefs(ctx context.Context, tenantID, ticketID string) ([]domain.FirmwareJobRef, error)
}

type csmsRefRepository struct {
	db Querier
}

// NewCsmsRefRepository builds the repository.
func NewCsmsRefRepository(db Querier) CsmsRefRepository {
	return &csmsRefRepository{db: db}
}

func (r *csmsRefRepository) CreateEventRef(ctx context.Context, ref *domain.CsmsEventRef) error {
	const query = `
        INSERT INTO csms_event_refs (tenant_id, ticket_id, charger_id, csms_event_id, event_type, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		ref.TenantID,
		ref.TicketID,
		ref.ChargerID,
		ref.CsmsEventID,
		ref.EventType,
		ref.OccurredAt,
	).Scan(&ref.ID, &ref.CreatedAt)
	return wrapStorageErr(err)
}

func (r *csmsRefRepository) ListEventRefs(ctx context.Context, tenantID, ticketID string) ([]domain.CsmsEventRef, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, charger_id, csms_event_id, event_type, occurred_at, created_at
        FROM csms_event_refs WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY occurred_at ASC`
	rows, err := r.db.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.CsmsEventRef
	for rows.Next() {
		var ref domain.CsmsEventRef
		if err := rows.Scan(
			&ref.ID,
			&ref.TenantID,
			&ref.TicketID,
			&ref.ChargerID,
			&ref.CsmsEventID,
			&ref.EventType,
			&ref.OccurredAt,
			&ref.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func (r *csmsRefRepository) CreateFirmwareJobRef(ctx context.Context, ref *domain.FirmwareJobRef) error {
	const query = `
        INSERT INTO firmware_job_refs (tenant_id, ticket_id, charger_id, csms_job_id, target_version, last_status, last_checked_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		ref.TenantID,
		ref.TicketID,
		ref.ChargerID,
		ref.CsmsJobID,
		ref.TargetVersion,
		ref.LastStatus,
		ref.LastCheckedAt,
	).Scan(&ref.ID, &ref.CreatedAt)
	return wrapStorageErr(err)
}

func (r *csmsRefRepository) ListFirmwareJobRefs(ctx context.Context, tenantID, ticketID string) ([]domain.FirmwareJobRef, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, charger_id, csms_job_id, target_version, last_status, last_checked_at, created_at
        FROM firmware_job_refs WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.FirmwareJobRef
	for rows.Next() {
		var ref domain.FirmwareJobRef
		if err := rows.Scan(
			&ref.ID,
			&ref.TenantID,
			&ref.TicketID,
			&ref.ChargerID,
			&ref.CsmsJobID,
			&ref.TargetVersion,
			&ref.LastStatus,
			&ref.LastCheckedAt,
			&ref.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}
