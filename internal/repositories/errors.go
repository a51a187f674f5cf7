package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references an id absent from
	// the target collection.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is returned when the backing store could not be
	// read or written, or holds a payload that no longer parses.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDuplicateID is returned when a freshly minted id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
