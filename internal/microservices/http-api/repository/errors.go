package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrTokenConsumed is returned when a refresh token was already revoked or used.
var ErrTokenConsumed = errors.New("refresh token already used")

// DuplicateKeyError reports a write rejected by a uniqueness rule.
type DuplicateKeyError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// ReferentialIntegrityError reports a delete blocked by dependent rows.
type ReferentialIntegrityError struct {
	Entity     string
	ID         string
	Dependents int64
}

func (e *ReferentialIntegrityError) Error() string {
	if e.Dependents > 0 {
		return fmt.Sprintf("cannot delete %s %s: %d dependent record(s) reference it", e.Entity, e.ID, e.Dependents)
	}
	return fmt.Sprintf("cannot delete %s %s: it is still referenced", e.Entity, e.ID)
}

// StaleObjectError reports an optimistic-concurrency conflict: the row changed
// since the caller read it.
type StaleObjectError struct {
	Entity string
	ID     string
}

func (e *StaleObjectError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

// notFound maps gorm's sentinel onto ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
