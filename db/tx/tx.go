package tx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// contextKey keeps the transaction value private to this package
type contextKey string

const txContextKey contextKey = "database_transaction"

// WithTransaction returns a context that carries an open transaction
func WithTransaction(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey, tx)
}

// TransactionFromContext reports the transaction carried by ctx, if any
func TransactionFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey).(*sqlx.Tx)
	return tx, ok
}

// Transactional is the query surface shared by *sqlx.DB and *sqlx.Tx, so
// repository methods run the same whether or not a transaction is open
type Transactional interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// GetTransactional resolves the queryable for ctx: the carried transaction
// when one is open, the plain connection otherwise. Repositories call this
// at the top of every method so they transparently join an enclosing
// transaction.
func GetTransactional(ctx context.Context, db *sqlx.DB) Transactional {
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx
	}
	return db
}
