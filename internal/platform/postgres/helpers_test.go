package postgres

import "github.com/jackc/pgx/v5/pgconn"

func newPgErr(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, Message: "error message"}
}
