// Package ledger adapts C6's ledger.Repository onto Postgres, grounded on
// the teacher's components/ledger/internal/adapters/postgres/account
// repository: squirrel-built statements run through mpostgres.Querier,
// errors mapped through pgconn.PgError the same way ValidatePGError does.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/internal/platform/mpostgres"
	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// Repository is a Postgres-backed implementation of ledger.Repository.
type Repository struct {
	db dbresolver.DB
}

// New builds a Repository over db.
func New(db dbresolver.DB) *Repository {
	return &Repository{db: db}
}

var _ ledger.Repository = (*Repository)(nil)

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return mpostgres.WithTx(ctx, r.db, fn)
}

func (r *Repository) q(ctx context.Context) mpostgres.Querier {
	return mpostgres.Q(ctx, r.db)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return cn.ErrIdempotencyConflict
	}

	return err
}

func (r *Repository) FindTransactionByIdempotencyKey(ctx context.Context, tenant, key string) (*ledger.Transaction, []ledger.Entry, error) {
	query, args, err := sq.Select(
		"id", "tenant", "transaction_ref", "idempotency_key", "event_type", "source_ref",
		"amount", "currency", "status", "transaction_date", "created_by", "override_used",
		"override_justification", "period_id", "reversal_of_id", "reversed_by_id", "created_at",
	).From("transactions").
		Where(sq.Eq{"tenant": tenant, "idempotency_key": key}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	row := r.q(ctx).QueryRowContext(ctx, query, args...)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}

	if err != nil {
		return nil, nil, err
	}

	entries, err := r.findEntries(ctx, tx.ID)
	if err != nil {
		return nil, nil, err
	}

	return tx, entries, nil
}

func (r *Repository) FindTransaction(ctx context.Context, tenant string, id uuid.UUID) (*ledger.Transaction, []ledger.Entry, error) {
	query, args, err := sq.Select(
		"id", "tenant", "transaction_ref", "idempotency_key", "event_type", "source_ref",
		"amount", "currency", "status", "transaction_date", "created_by", "override_used",
		"override_justification", "period_id", "reversal_of_id", "reversed_by_id", "created_at",
	).From("transactions").
		Where(sq.Eq{"tenant": tenant, "id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	row := r.q(ctx).QueryRowContext(ctx, query, args...)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}

	if err != nil {
		return nil, nil, err
	}

	entries, err := r.findEntries(ctx, tx.ID)
	if err != nil {
		return nil, nil, err
	}

	return tx, entries, nil
}

func (r *Repository) findEntries(ctx context.Context, txID uuid.UUID) ([]ledger.Entry, error) {
	query, args, err := sq.Select("id", "transaction_id", "account_id", "account_code", "side", "amount", "description", "position").
		From("entries").
		Where(sq.Eq{"transaction_id": txID}).
		OrderBy("position ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry

	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.AccountCode, &e.Side, &e.Amount, &e.Description, &e.Position); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *Repository) FindAccountsByCode(ctx context.Context, tenant string, codes []string) (map[string]ledger.Account, error) {
	query, args, err := sq.Select("id", "tenant", "code", "type", "normal_balance", "status", "created_at").
		From("accounts").
		Where(sq.Eq{"tenant": tenant, "code": codes}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]ledger.Account, len(codes))

	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.ID, &a.Tenant, &a.Code, &a.Type, &a.NormalBalance, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}

		result[a.Code] = a
	}

	return result, rows.Err()
}

func (r *Repository) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query, args, err := sq.Insert("transactions").
		Columns(
			"id", "tenant", "transaction_ref", "idempotency_key", "event_type", "source_ref",
			"amount", "currency", "status", "transaction_date", "created_by", "override_used",
			"override_justification", "period_id", "reversal_of_id", "reversed_by_id", "created_at",
		).
		Values(
			tx.ID, tx.Tenant, tx.TransactionRef, tx.IdempotencyKey, tx.EventType, tx.SourceRef,
			tx.Amount, tx.Currency, tx.Status, tx.TransactionDate, tx.CreatedBy, tx.OverrideUsed,
			tx.OverrideJustification, tx.PeriodID, tx.ReversalOfID, tx.ReversedByID, tx.CreatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		return mapPgError(err)
	}

	return nil
}

func (r *Repository) InsertEntries(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	builder := sq.Insert("entries").
		Columns("id", "transaction_id", "account_id", "account_code", "side", "amount", "description", "position")

	for _, e := range entries {
		builder = builder.Values(e.ID, e.TransactionID, e.AccountID, e.AccountCode, e.Side, e.Amount, e.Description, e.Position)
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) UpdateTransactionStatus(ctx context.Context, tenant string, id uuid.UUID, status ledger.TransactionStatus) error {
	query, args, err := sq.Update("transactions").
		Set("status", status).
		Where(sq.Eq{"tenant": tenant, "id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) AccountBalance(ctx context.Context, tenant, accountCode string) (ledger.AccountBalance, error) {
	query, args, err := sq.Select(
		"a.id",
		"a.code",
		"COALESCE(SUM(CASE WHEN e.side = 'debit' THEN e.amount ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN e.side = 'credit' THEN e.amount ELSE 0 END), 0)",
	).From("accounts a").
		LeftJoin("entries e ON e.account_id = a.id").
		Where(sq.Eq{"a.tenant": tenant, "a.code": accountCode}).
		GroupBy("a.id", "a.code").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return ledger.AccountBalance{}, err
	}

	var bal ledger.AccountBalance

	row := r.q(ctx).QueryRowContext(ctx, query, args...)
	if err := row.Scan(&bal.AccountID, &bal.AccountCode, &bal.SumDebits, &bal.SumCredits); err != nil {
		return ledger.AccountBalance{}, err
	}

	bal.Balance = bal.SumDebits - bal.SumCredits

	return bal, nil
}

func (r *Repository) LinkReversal(ctx context.Context, tenant string, originalID, reversalID uuid.UUID) error {
	query, args, err := sq.Update("transactions").
		Set("reversed_by_id", reversalID).
		Where(sq.Eq{"tenant": tenant, "id": originalID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		return err
	}

	query, args, err = sq.Update("transactions").
		Set("reversal_of_id", originalID).
		Where(sq.Eq{"tenant": tenant, "id": reversalID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) AppendOverrideAudit(ctx context.Context, entry ledger.OverrideAuditEntry) error {
	query, args, err := sq.Insert("override_audit").
		Columns("id", "tenant", "actor", "role", "justification", "affected_entities", "at").
		Values(entry.ID, entry.Tenant, entry.Actor, entry.Role, entry.Justification, affectedEntitiesJSON(entry.AffectedEntities), entry.At).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) AppendAuditLog(ctx context.Context, entry ledger.AuditLogEntry) error {
	query, args, err := sq.Insert("audit_log").
		Columns("id", "tenant", "operation", "transaction_id", "actor", "at", "detail").
		Values(entry.ID, entry.Tenant, entry.Operation, entry.TransactionID, entry.Actor, entry.At, entry.Detail).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

// rowScanner is satisfied by both *sql.Row and the stdlib equivalent so
// scanTransaction doesn't care whether the caller used QueryRow or a single
// row pulled from Query.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	err := row.Scan(
		&tx.ID, &tx.Tenant, &tx.TransactionRef, &tx.IdempotencyKey, &tx.EventType, &tx.SourceRef,
		&tx.Amount, &tx.Currency, &tx.Status, &tx.TransactionDate, &tx.CreatedBy, &tx.OverrideUsed,
		&tx.OverrideJustification, &tx.PeriodID, &tx.ReversalOfID, &tx.ReversedByID, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &tx, nil
}

// affectedEntitiesJSON renders a string slice as a minimal JSON array
// without pulling in encoding/json for what's ultimately an audit detail
// column; Postgres's jsonb column accepts this literal directly.
func affectedEntitiesJSON(entities []string) string {
	out := "["

	for i, e := range entities {
		if i > 0 {
			out += ","
		}

		out += fmt.Sprintf("%q", e)
	}

	return out + "]"
}
