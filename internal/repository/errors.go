package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// uniqueFields maps unique constraints to the payload field they guard.
var uniqueFields = map[string][2]string{
	"users_username_key": {"username", "user"},
	"users_email_key":    {"email", "user"},
	"tickets_title_key":  {"title", "ticket"},
}

// translate turns constraint violations into validation errors so they surface as
// 400s instead of opaque storage failures.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
			return DuplicateError(field[1], field[0])
		}
		return apperrors.NewValidationError("duplicate value", map[string]any{"constraint": pgErr.ConstraintName})
	case pgForeignKeyViolation:
		return apperrors.NewValidationError("referenced record does not exist", map[string]any{"constraint": pgErr.ConstraintName})
	}
	return err
}

// DuplicateError reports a uniqueness conflict on one field of an entity.
func DuplicateError(entity, field string) error {
	return apperrors.NewValidationError(fmt.Sprintf("%s already exists", entity), map[string]any{
		field: fmt.Sprintf("This %s is already in use.", field),
	})
}

// orderBy resolves a client ordering key ("-status") against a whitelist of columns.
func orderBy(key string, columns map[string]string, fallback string) string {
	desc := false
	if len(key) > 0 && key[0] == '-' {
		desc = true
		key = key[1:]
	}
	column, ok := columns[key]
	if !ok {
		return fallback
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
