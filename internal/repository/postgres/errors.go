package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// invalidTextRepresentation is raised when a uuid parameter is malformed
const invalidTextRepresentation = "22P02"

// rowMissing reports whether err means the addressed row does not exist:
// nothing came back, or the id could never have matched a row.
func rowMissing(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
