package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes recognized by ErrorMap.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
)

// ErrorMap translates driver errors into a domain's sentinels. A nil
// field leaves the matching class of error unchanged.
type ErrorMap struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// Map returns the domain error for err. Constraint violations keep the
// constraint name in the message and still match the sentinel with
// errors.Is.
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

	var target error
	switch pgErr.Code {
	case codeUniqueViolation:
		target = m.Duplicate
	case codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
		target = m.Invalid
	}
	if target == nil {
		return err
	}
	if pgErr.ConstraintName == "" {
		return target
	}
	return fmt.Errorf("%w: %s", target, pgErr.ConstraintName)
}
