package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voltdesk/maintenance-service/internal/domain"
)

// AssignmentRepository persists assignment rows. GetActive returns (nil, nil)
// when the ticket currently has no active assignment.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	GetActive(ctx context.Context, tenantID, ticketID string) (*domain.Assignment, error)
	Deactivate(ctx context.Context, tenantID, assignmentID string, releasedAt time.Time) error
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	db Querier
}

// NewAssignmentRepository builds the repository.
func NewAssignmentRepository(db Querier) AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, tenant_id, ticket_id, assignee_type, assignee_user_id,
       vendor_name, vendor_contact, notes, active, assigned_by, assigned_at, released_at`

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (tenant_id, ticket_id, assignee_type, assignee_user_id,
            vendor_name, vendor_contact, notes, active, assigned_by, assigned_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		assignment.TenantID,
		assignment.TicketID,
		assignment.AssigneeType,
		assignment.AssigneeUserID,
		assignment.VendorName,
		assignment.VendorContact,
		assignment.Notes,
		assignment.Active,
		assignment.AssignedBy,
		assignment.AssignedAt,
	).Scan(&assignment.ID)
	return wrapStorageErr(err)
}

func (r *assignmentRepository) GetActive(ctx context.Context, tenantID, ticketID string) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM assignments WHERE tenant_id=$1 AND ticket_id=$2 AND active`
	var assignment domain.Assignment
	err := scanAssignment(r.db.QueryRow(ctx, query, tenantID, ticketID), &assignment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStorageErr(err)
	}
	return &assignment, nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, tenantID, assignmentID string, releasedAt time.Time) error {
	const query = `
        UPDATE assignments SET active=FALSE, released_at=$1
        WHERE tenant_id=$2 AND id=$3 AND active`
	_, err := r.db.Exec(ctx, query, releasedAt, tenantID, assignmentID)
	return wrapStorageErr(err)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
        FROM assignments WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY assigned_at ASC`
	rows, err := r.db.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := scanAssignment(rows, &assignment); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row, a *domain.Assignment) error {
	return row.Scan(
		&a.ID,
		&a.TenantID,
		&a.TicketID,
		&a.AssigneeType,
		&a.AssigneeUserID,
		&a.VendorName,
		&a.VendorContact,
		&a.Notes,
		&a.Active,
		&a.AssignedBy,
		&a.AssignedAt,
		&a.ReleasedAt,
	)
}
