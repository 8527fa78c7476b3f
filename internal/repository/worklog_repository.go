package repository

import (
	"context"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// WorklogRepository persists work records.
type WorklogRepository interface {
	Create(ctx context.Context, worklog *domain.Worklog) error
	ListByTicket(ctx context.Context, tenantID, ticketID string, includeInternal bool) ([]domain.Worklog, error)
}

type worklogRepository struct {
	db Querier
}

// NewWorklogRepository builds the repository.
func NewWorklogRepository(db Querier) WorklogRepository {
	return &worklogRepository{db: db}
}

func (r *worklogRepository) Create(ctx context.Context, worklog *domain.Worklog) error {
	const query = `
        INSERT INTO worklogs (tenant_id, ticket_id, body, work_type, time_spent_minutes, is_internal, author_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		worklog.TenantID,
		worklog.TicketID,
		worklog.Body,
		worklog.WorkType,
		worklog.TimeSpentMinutes,
		worklog.IsInternal,
		worklog.AuthorID,
		worklog.CreatedAt,
	).Scan(&worklog.ID)
	return wrapStorageErr(err)
}

func (r *worklogRepository) ListByTicket(ctx context.Context, tenantID, ticketID string, includeInternal bool) ([]domain.Worklog, error) {
	query := `
        SELECT id, tenant_id, ticket_id, body, work_type, time_spent_minutes, is_internal, author_id, created_at
        FROM worklogs WHERE tenant_id=$1 AND ticket_id=$2`
	if !includeInternal {
		query += ` AND NOT is_internal`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.Worklog
	for rows.Next() {
		var worklog domain.Worklog
		if err := rows.Scan(
			&worklog.ID,
			&worklog.TenantID,
			&worklog.TicketID,
			&worklog.Body,
			&worklog.WorkType,
			&worklog.TimeSpentMinutes,
			&worklog.IsInternal,
			&worklog.AuthorID,
			&worklog.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, worklog)
	}
	return result, rows.Err()
}
