// Package repository provides PostgreSQL access for domain entities.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
)

// Postgres error codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// violation returns the violated constraint name if err is a Postgres error
// with the given code.
func violation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func isForeignKeyViolation(err error) bool {
	_, ok := violation(err, codeForeignKeyViolation)
	return ok
}

// writeFailed wraps a failed insert or update. Rows rejected by a CHECK
// constraint or a numeric column's range are the caller's input, so they
// surface as Validation.
func writeFailed(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeCheckViolation || pgErr.Code == codeNumericOutOfRange) {
		return apperr.Wrap(apperr.KindValidation, err, "rejected value on "+action)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
