package repository

import (
	"context"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// HistoryRepository stores the append-only status audit trail. Rows are never
// updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.TicketStatusHistory) error
	ListByTicket(ctx context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketStatusHistory, error)
}

type historyRepository struct {
	db Querier
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(db Querier) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.TicketStatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (tenant_id, ticket_id, from_status, to_status, reason, changed_by, changed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		entry.TenantID,
		entry.TicketID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Reason,
		entry.ChangedBy,
		entry.ChangedAt,
	).Scan(&entry.ID)
	return wrapStorageErr(err)
}

func (r *historyRepository) ListByTicket(ctx context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketStatusHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, tenant_id, ticket_id, from_status, to_status, reason, changed_by, changed_at
        FROM ticket_status_history
        WHERE tenant_id=$1 AND ticket_id=$2
        ORDER BY changed_at ASC LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, query, tenantID, ticketID, limit, offset)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.TicketStatusHistory
	for rows.Next() {
		var entry domain.TicketStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.TicketID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Reason,
			&entry.ChangedBy,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
