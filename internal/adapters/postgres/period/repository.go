// Package period adapts C7's period.Repository onto Postgres, same
// squirrel-over-mpostgres.Querier shape as the ledger adapter.
package period

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/period"
	"github.com/atlaspay/aggregator-core/internal/platform/mpostgres"
)

// Repository is a Postgres-backed implementation of period.Repository.
type Repository struct {
	db dbresolver.DB
}

// New builds a Repository over db.
func New(db dbresolver.DB) *Repository {
	return &Repository{db: db}
}

var _ period.Repository = (*Repository)(nil)

func (r *Repository) q(ctx context.Context) mpostgres.Querier {
	return mpostgres.Q(ctx, r.db)
}

func (r *Repository) FindPeriod(ctx context.Context, tenant string, typ period.Type, at time.Time) (*period.AccountingPeriod, error) {
	query, args, err := sq.Select("id", "tenant", "type", "start", "period_end", "status", "closed_by", "closure_notes", "hard_closed_at").
		From("accounting_periods").
		Where(sq.Eq{"tenant": tenant, "type": typ}).
		Where(sq.LtOrEq{"start": at}).
		Where(sq.Gt{"period_end": at}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanPeriod(r.q(ctx).QueryRowContext(ctx, query, args...))
}

func (r *Repository) FindPeriodByID(ctx context.Context, tenant string, id uuid.UUID) (*period.AccountingPeriod, error) {
	query, args, err := sq.Select("id", "tenant", "type", "start", "period_end", "status", "closed_by", "closure_notes", "hard_closed_at").
		From("accounting_periods").
		Where(sq.Eq{"tenant": tenant, "id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return scanPeriod(r.q(ctx).QueryRowContext(ctx, query, args...))
}

func scanPeriod(row *sql.Row) (*period.AccountingPeriod, error) {
	var p period.AccountingPeriod

	err := row.Scan(&p.ID, &p.Tenant, &p.Type, &p.Start, &p.End, &p.Status, &p.ClosedBy, &p.ClosureNotes, &p.HardClosedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *Repository) SavePeriod(ctx context.Context, p *period.AccountingPeriod) error {
	query, args, err := sq.Insert("accounting_periods").
		Columns("id", "tenant", "type", "start", "period_end", "status", "closed_by", "closure_notes", "hard_closed_at").
		Values(p.ID, p.Tenant, p.Type, p.Start, p.End, p.Status, p.ClosedBy, p.ClosureNotes, p.HardClosedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, closed_by = EXCLUDED.closed_by,
			closure_notes = EXCLUDED.closure_notes, hard_closed_at = EXCLUDED.hard_closed_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) FindOverlappingLocks(ctx context.Context, tenant string, lockType period.LockType, start, end time.Time) ([]period.Lock, error) {
	query, args, err := sq.Select("id", "tenant", "type", "start", "period_end", "status", "reason", "reference", "locked_by", "released_by", "locked_at", "released_at").
		From("ledger_locks").
		Where(sq.Eq{"tenant": tenant, "type": lockType, "status": period.LockStatusActive}).
		Where(sq.Lt{"start": end}).
		Where(sq.Gt{"period_end": start}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return r.scanLocks(ctx, query, args...)
}

func (r *Repository) ActiveLocksCovering(ctx context.Context, tenant string, at time.Time) ([]period.Lock, error) {
	query, args, err := sq.Select("id", "tenant", "type", "start", "period_end", "status", "reason", "reference", "locked_by", "released_by", "locked_at", "released_at").
		From("ledger_locks").
		Where(sq.Eq{"tenant": tenant, "status": period.LockStatusActive}).
		Where(sq.LtOrEq{"start": at}).
		Where(sq.Gt{"period_end": at}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	return r.scanLocks(ctx, query, args...)
}

func (r *Repository) scanLocks(ctx context.Context, query string, args ...any) ([]period.Lock, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []period.Lock

	for rows.Next() {
		var l period.Lock
		if err := rows.Scan(&l.ID, &l.Tenant, &l.Type, &l.Start, &l.End, &l.Status, &l.Reason, &l.Reference, &l.LockedBy, &l.ReleasedBy, &l.LockedAt, &l.ReleasedAt); err != nil {
			return nil, err
		}

		locks = append(locks, l)
	}

	return locks, rows.Err()
}

func (r *Repository) SaveLock(ctx context.Context, l *period.Lock) error {
	query, args, err := sq.Insert("ledger_locks").
		Columns("id", "tenant", "type", "start", "period_end", "status", "reason", "reference", "locked_by", "released_by", "locked_at", "released_at").
		Values(l.ID, l.Tenant, l.Type, l.Start, l.End, l.Status, l.Reason, l.Reference, l.LockedBy, l.ReleasedBy, l.LockedAt, l.ReleasedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, released_by = EXCLUDED.released_by, released_at = EXCLUDED.released_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) FindLock(ctx context.Context, tenant string, id uuid.UUID) (*period.Lock, error) {
	query, args, err := sq.Select("id", "tenant", "type", "start", "period_end", "status", "reason", "reference", "locked_by", "released_by", "locked_at", "released_at").
		From("ledger_locks").
		Where(sq.Eq{"tenant": tenant, "id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var l period.Lock

	row := r.q(ctx).QueryRowContext(ctx, query, args...)

	err = row.Scan(&l.ID, &l.Tenant, &l.Type, &l.Start, &l.End, &l.Status, &l.Reason, &l.Reference, &l.LockedBy, &l.ReleasedBy, &l.LockedAt, &l.ReleasedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (r *Repository) HasCompletedReconciliation(ctx context.Context, tenant string, periodID uuid.UUID) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("reconciliation_batches").
		Where(sq.Eq{"tenant": tenant, "settlement_id": periodID}).
		Where(sq.Eq{"summary_status": "clean"}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int

	if err := r.q(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}
