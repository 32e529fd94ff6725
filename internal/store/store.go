// Package store holds what the relational backends share: the sentinel
// errors they translate driver failures into. The backends themselves live in
// the sqlite and postgres subpackages and satisfy board.Store and auth.Store.
package store

import "errors"

var (
	// ErrNoRows is returned when a lookup, update or delete matches nothing.
	ErrNoRows = errors.New("store: no rows")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("store: duplicate key")
)
