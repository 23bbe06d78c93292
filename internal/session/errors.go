package session

import "errors"

var (
	// ErrNotFound is returned when no record with the given ID exists in
	// either partition.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownField is returned for a field edit naming a column that
	// is not part of the CSV schema.
	ErrUnknownField = errors.New("unknown field")
)
