// Package settlement adapts C9's settlement.Repository onto Postgres.
package settlement

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atlaspay/aggregator-core/internal/platform/mpostgres"
	"github.com/atlaspay/aggregator-core/internal/settlement"
)

// Repository is a Postgres-backed implementation of settlement.Repository.
type Repository struct {
	db dbresolver.DB
}

// New builds a Repository over db.
func New(db dbresolver.DB) *Repository {
	return &Repository{db: db}
}

var _ settlement.Repository = (*Repository)(nil)

// WithTx scopes fn inside a single serializable storage transaction
// (mpostgres.WithTx), the same explicit boundary the ledger adapter uses.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return mpostgres.WithTx(ctx, r.db, fn)
}

func (r *Repository) q(ctx context.Context) mpostgres.Querier {
	return mpostgres.Q(ctx, r.db)
}

func (r *Repository) Save(ctx context.Context, s *settlement.Settlement) error {
	query, args, err := sq.Insert("settlements").
		Columns("id", "tenant", "merchant_ref", "batch_ref", "amount", "currency", "state",
			"retry_count", "max_retries", "utr", "bank_ref", "next_retry_at", "created_at", "updated_at").
		Values(s.ID, s.Tenant, s.MerchantRef, s.BatchRef, s.Amount, s.Currency, s.State,
			s.RetryCount, s.MaxRetries, s.UTR, s.BankRef, s.NextRetryAt, s.CreatedAt, s.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, retry_count = EXCLUDED.retry_count,
			utr = EXCLUDED.utr, bank_ref = EXCLUDED.bank_ref, next_retry_at = EXCLUDED.next_retry_at,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}

func (r *Repository) FindByID(ctx context.Context, tenant string, id uuid.UUID) (*settlement.Settlement, error) {
	return r.find(ctx, sq.Eq{"tenant": tenant, "id": id})
}

func (r *Repository) FindByUTR(ctx context.Context, tenant, utr string) (*settlement.Settlement, error) {
	return r.find(ctx, sq.Eq{"tenant": tenant, "utr": utr})
}

func (r *Repository) find(ctx context.Context, pred sq.Eq) (*settlement.Settlement, error) {
	query, args, err := sq.Select("id", "tenant", "merchant_ref", "batch_ref", "amount", "currency", "state",
		"retry_count", "max_retries", "utr", "bank_ref", "next_retry_at", "created_at", "updated_at").
		From("settlements").
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s settlement.Settlement

	row := r.q(ctx).QueryRowContext(ctx, query, args...)

	err = row.Scan(&s.ID, &s.Tenant, &s.MerchantRef, &s.BatchRef, &s.Amount, &s.Currency, &s.State,
		&s.RetryCount, &s.MaxRetries, &s.UTR, &s.BankRef, &s.NextRetryAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &s, nil
}

// AppendTransition persists one audit row; Metadata is msgpack-encoded into
// a bytea column since its shape varies per transition (spec.md §4.9's
// per-transition metadata is free-form, not a fixed schema).
func (r *Repository) AppendTransition(ctx context.Context, t settlement.Transition) error {
	meta, err := msgpack.Marshal(t.Metadata)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("settlement_transitions").
		Columns("id", "settlement_id", "from_state", "to_state", "at", "actor", "metadata").
		Values(t.ID, t.SettlementID, t.From, t.To, t.At, t.Actor, meta).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.q(ctx).ExecContext(ctx, query, args...)

	return err
}
