package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrConflict is returned when a unique constraint is violated
	ErrConflict = errors.New("conflict")
	// ErrPermission is returned when row level security rejects the statement
	ErrPermission = errors.New("not authorized")
	// ErrNotFound is returned for unknown ids and rows hidden by the owner filter
	ErrNotFound = errors.New("not found")
	// ErrNetwork is returned when the database cannot be reached
	ErrNetwork = errors.New("database unavailable")
)

// SlugConstraint is the unique constraint on checkout_pages.slug
const SlugConstraint = "checkout_pages_slug_key"

// ConflictError is a unique violation on Constraint. It matches ErrConflict.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict, e.Constraint)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// mapError translates driver errors into the store error taxonomy
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &ConflictError{Constraint: pqErr.Constraint}
		case "42501": // insufficient_privilege
			return ErrPermission
		case "22P02": // malformed uuid can never match a row
			return ErrNotFound
		}
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return fmt.Errorf("%w: %s", ErrNetwork, pqErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return err
}

// IsSlugConflict reports whether err is a unique violation on the page slug
func IsSlugConflict(err error) bool {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.Constraint == SlugConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == SlugConstraint
	}
	return false
}
