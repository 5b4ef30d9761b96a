package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes for integrity constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
)

// ErrorMap names the domain errors a repository reports for database
// failures. Nil fields leave the matching failure unchanged.
type ErrorMap struct {
	NotFound  error
	Duplicate error
	// Invalid covers check, not-null, and foreign key violations.
	Invalid error
}

// Map translates err to the mapped domain error. sql.ErrNoRows maps to
// NotFound; a unique violation maps to Duplicate. The constraint name is
// kept in the message of constraint failures.
func (m ErrorMap) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && m.NotFound != nil {
		return m.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if m.Duplicate != nil {
			return constraintError(m.Duplicate, pgErr)
		}
	case pgCheckViolation, pgNotNullViolation, pgForeignKeyViolation:
		if m.Invalid != nil {
			return constraintError(m.Invalid, pgErr)
		}
	}
	return err
}

func constraintError(domain error, pgErr *pgconn.PgError) error {
	if pgErr.ConstraintName == "" {
		return domain
	}
	return &violation{domain: domain, constraint: pgErr.ConstraintName}
}

type violation struct {
	domain     error
	constraint string
}

func (v *violation) Error() string {
	return v.domain.Error() + " (" + v.constraint + ")"
}

func (v *violation) Unwrap() error {
	return v.domain
}
