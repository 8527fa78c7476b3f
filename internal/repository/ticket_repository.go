package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// TicketFilter captures listing parameters. TenantID is supplied separately
// and is always mandatory.
type TicketFilter struct {
	SiteID      *string
	ChargerID   *string
	AssigneeRef *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Categories  []domain.TicketCategory
	Breached    *bool
	SearchTerm  *string
	OpenedFrom  *time.Time
	OpenedTo    *time.Time
	Limit       int
	Offset      int
}

// OpenTicketRef identifies a ticket the breach scanner still needs to visit.
type OpenTicketRef struct {
	TenantID string
	TicketID string
}

// TicketRepository encapsulates ticket persistence. Get is tenant-scoped: a
// ticket belonging to another tenant is indistinguishable from a missing one.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	UpdateWithVersion(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
	List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error)
	ListOpenForScan(ctx context.Context, limit, offset int) ([]OpenTicketRef, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, tenant_id, site_id, charger_id, number, title, description,
       channel, category, priority, status, current_assignee, sla_breached,
       resolution_summary, version, reporter_name, reporter_email,
       opened_at, resolved_at, closed_at, created_by, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_id, site_id, charger_id, number, title, description,
            channel, category, priority, status, current_assignee, reporter_name, reporter_email,
            opened_at, created_by, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,1)
        RETURNING id, version, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.SiteID,
		ticket.ChargerID,
		ticket.Number,
		ticket.Title,
		ticket.Description,
		ticket.Channel,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CurrentAssignee,
		ticket.ReporterName,
		ticket.ReporterEmail,
		ticket.OpenedAt,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
	return wrapStorageErr(err)
}

func (r *ticketRepository) Get(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND tenant_id=$2`
	var ticket domain.Ticket
	err := scanTicket(r.db.QueryRow(ctx, query, id, tenantID), &ticket)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, wrapStorageErr(err)
	}
	return &ticket, nil
}

// UpdateWithVersion commits the ticket only if the stored version still
// matches expectedVersion, incrementing it on success. Tickets are never
// deleted, so zero rows affected always means a version conflict.
func (r *ticketRepository) UpdateWithVersion(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, category=$3, current_assignee=$4,
            sla_breached=$5, resolution_summary=$6, resolved_at=$7, closed_at=$8,
            version=version+1, updated_at=NOW()
        WHERE id=$9 AND tenant_id=$10 AND version=$11`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CurrentAssignee,
		ticket.SlaBreached,
		ticket.ResolutionSummary,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.TenantID,
		expectedVersion,
	)
	if err != nil {
		return wrapStorageErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConcurrentModification(ticket.ID)
	}
	ticket.Version = expectedVersion + 1
	return nil
}

func (r *ticketRepository) List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.SiteID != nil {
		args = append(args, *filter.SiteID)
		clauses = append(clauses, fmt.Sprintf("site_id=$%d", len(args)))
	}
	if filter.ChargerID != nil {
		args = append(args, *filter.ChargerID)
		clauses = append(clauses, fmt.Sprintf("charger_id=$%d", len(args)))
	}
	if filter.AssigneeRef != nil {
		args = append(args, *filter.AssigneeRef)
		clauses = append(clauses, fmt.Sprintf("current_assignee=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Breached != nil {
		args = append(args, *filter.Breached)
		clauses = append(clauses, fmt.Sprintf("sla_breached=$%d", len(args)))
	}
	if filter.OpenedFrom != nil {
		args = append(args, *filter.OpenedFrom)
		clauses = append(clauses, fmt.Sprintf("opened_at >= $%d", len(args)))
	}
	if filter.OpenedTo != nil {
		args = append(args, *filter.OpenedTo)
		clauses = append(clauses, fmt.Sprintf("opened_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// ListOpenForScan pages over non-terminal tickets across all tenants. This is
// the one deliberately unscoped read path; it returns opaque id pairs and is
// reserved for the breach scanner, which re-enters through tenant-scoped
// loads per ticket.
func (r *ticketRepository) ListOpenForScan(ctx context.Context, limit, offset int) ([]OpenTicketRef, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `
        SELECT tenant_id, id FROM tickets
        WHERE status NOT IN ('RESOLVED','CLOSED','CANCELLED')
        ORDER BY opened_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var refs []OpenTicketRef
	for rows.Next() {
		var ref OpenTicketRef
		if err := rows.Scan(&ref.TenantID, &ref.TicketID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.SiteID,
		&ticket.ChargerID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Channel,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CurrentAssignee,
		&ticket.SlaBreached,
		&ticket.ResolutionSummary,
		&ticket.Version,
		&ticket.ReporterName,
		&ticket.ReporterEmail,
		&ticket.OpenedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
