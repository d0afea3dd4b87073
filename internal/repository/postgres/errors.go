package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState extracts the five-character SQLSTATE code from a pgx error,
// or "" for anything else.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgNoRowsError reports whether a query matched no rows, the usual
// trigger for domain.ErrNotFound in the repositories.
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError reports whether an insert referenced a missing row,
// e.g. a turn appended to a thread deleted mid-round.
func IsPgForeignKeyError(err error) bool {
	return sqlState(err) == "23503" // foreign_key_violation
}
