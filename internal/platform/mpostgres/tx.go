package mpostgres

import (
	"context"
	"database/sql"

	"github.com/bxcodec/dbresolver/v2"
)

// Querier is the narrow subset of *sql.DB / *sql.Tx every repository in
// this module needs; squirrel's RunWith accepts it directly.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx opens one serializable transaction against db, stores it in ctx
// for Q(ctx, db) to find, runs fn, and commits on success or rolls back on
// error or panic. The Postgres ledger and settlement repositories' WithTx
// methods thread their multi-step work through this so a failure at any
// step leaves no visible partial state (spec.md §9 "Ambient database
// connection"); the period repository does not use it.
func WithTx(ctx context.Context, db dbresolver.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			_ = tx.Rollback()
			return
		}

		err = tx.Commit()
	}()

	err = fn(context.WithValue(ctx, txKey{}, Querier(tx)))

	return err
}

// Q resolves the Querier to run a statement against: the transaction stashed
// in ctx by WithTx if present, otherwise the pooled connection directly (for
// read-only lookups outside any WithTx scope).
func Q(ctx context.Context, db dbresolver.DB) Querier {
	if q, ok := ctx.Value(txKey{}).(Querier); ok {
		return q
	}

	return db
}
