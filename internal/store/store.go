// Package store implements persistence on top of SQLite. Functions take a
// *sql.DB and return (nil, nil) when a single record is not found.
package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by mutations that matched no live row.
var ErrNotFound = errors.New("not found")

// ErrInUse is returned when deleting a record other rows still reference.
var ErrInUse = errors.New("still referenced")

// expectOne maps a zero-row mutation to ErrNotFound.
func expectOne(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s rows: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
