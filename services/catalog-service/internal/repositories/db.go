package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATEs of constraint violations
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// isUniqueViolation reports whether err was caused by a unique constraint
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isForeignKeyViolation reports whether err was caused by a row still being referenced
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// execer is implemented by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// setBuilder collects the SET assignments of a partial update
type setBuilder struct {
	setParts []string
	args     []any
}

// Set assigns a bound value to column
func (s *setBuilder) Set(column string, value any) {
	s.setParts = append(s.setParts, fmt.Sprintf("%s = %s", column, s.Bind(value)))
}

// SetExpr assigns a raw SQL expression to column
func (s *setBuilder) SetExpr(column, expr string) {
	s.setParts = append(s.setParts, fmt.Sprintf("%s = %s", column, expr))
}

// Bind appends a value and returns its placeholder
func (s *setBuilder) Bind(value any) string {
	s.args = append(s.args, value)
	return fmt.Sprintf("$%d", len(s.args))
}

// withTx runs fn inside a transaction, committing when it returns nil
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// textArray binds a text[] value, storing nil slices as empty arrays
func textArray(values []string) any {
	if values == nil {
		values = []string{}
	}
	return pq.Array(values)
}
