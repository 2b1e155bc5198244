package codespace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a durable row or an ephemeral cache entry
	// does not exist.
	ErrNotFound = errors.New("codespace not found")

	// ErrNotCached is returned when an operation needs the live cache entry
	// and there is none. It matches ErrNotFound under errors.Is.
	ErrNotCached = fmt.Errorf("%w: not cached", ErrNotFound)

	// ErrStoreUnavailable wraps I/O failures of the cache or the durable
	// store that callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidField is returned for hot-field writes that are not allowed
	// or exceed column limits.
	ErrInvalidField = errors.New("invalid field")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
