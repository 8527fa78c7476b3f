package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// UserRepository reads operator accounts. GetByID is tenant-scoped; only the
// login path may look a user up by email alone.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, tenantID, id string, at time.Time) error
}

type userRepository struct {
	db Querier
}

// NewUserRepository builds the repository.
func NewUserRepository(db Querier) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, role, full_name, phone,
       is_active, created_at, updated_at, last_login_at`

func (r *userRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND tenant_id=$2`
	return r.fetch(ctx, query, id, tenantID)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetch(ctx, query, email)
}

func (r *userRepository) fetch(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FullName,
		&user.Phone,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, wrapStorageErr(err)
	}
	return &user, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `UPDATE users SET last_login_at=$1 WHERE id=$2 AND tenant_id=$3`
	_, err := r.db.Exec(ctx, query, at, id, tenantID)
	return wrapStorageErr(err)
}
