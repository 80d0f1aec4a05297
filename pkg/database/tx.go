package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// WithTx returns a context carrying the given transaction. Repositories
// resolving their Querier through QuerierFrom will run inside it.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom extracts the transaction bound to the context, if any.
func TxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// QuerierFrom returns the transaction bound to the context when present,
// falling back to the pool otherwise.
func QuerierFrom(ctx context.Context, pool DBTX) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return pool
}

// TxRunner executes a function within a database transaction. The function
// receives a context carrying the transaction; any error rolls it back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxTxRunner is the pool-backed TxRunner used in production.
type PgxTxRunner struct {
	pool DBTX
}

// NewTxRunner creates a TxRunner on top of the given pool.
func NewTxRunner(pool DBTX) *PgxTxRunner {
	return &PgxTxRunner{pool: pool}
}

// InTx begins a transaction, binds it to the context and runs fn. The
// transaction commits when fn returns nil and rolls back otherwise. Nested
// calls reuse the already-bound transaction.
func (r *PgxTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
