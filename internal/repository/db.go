package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code runs standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository over a single querier. WithTx rebinds
// the bundle to a transaction so a mutating operation spans state machine,
// SLA, assignment and history writes atomically.
type Repositories struct {
	Tickets     TicketRepository
	History     HistoryRepository
	Assignments AssignmentRepository
	Worklogs    WorklogRepository
	Sla         SlaRepository
	Users       UserRepository
	Assets      AssetRepository
	CsmsRefs    CsmsRefRepository
}

// NewRepositories builds the bundle over db.
func NewRepositories(db Querier) Repositories {
	return Repositories{
		Tickets:     NewTicketRepository(db),
		History:     NewHistoryRepository(db),
		Assignments: NewAssignmentRepository(db),
		Worklogs:    NewWorklogRepository(db),
		Sla:         NewSlaRepository(db),
		Users:       NewUserRepository(db),
		Assets:      NewAssetRepository(db),
		CsmsRefs:    NewCsmsRefRepository(db),
	}
}

// WithTx returns the bundle rebound to tx.
func (r Repositories) WithTx(tx pgx.Tx) Repositories {
	return NewRepositories(tx)
}

// TxRunner runs a function inside a transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type poolTxRunner struct {
	pool *pgxpool.Pool
	base Repositories
}

// NewTxRunner creates a TxRunner over the pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool, base: NewRepositories(pool)}
}

// WithinTx begins a transaction, runs fn with tx-bound repositories and
// commits, rolling back on any error. Context expiry surfaces as TIMEOUT.
func (r *poolTxRunner) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStorageErr(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(r.base.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStorageErr(err)
	}
	return nil
}

// wrapStorageErr maps driver-level failures onto the error taxonomy.
func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout(err)
	}
	return err
}
