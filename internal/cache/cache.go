// Package cache provides the hash-oriented key-value store that holds the
// live copy of codespace hot fields. Two implementations are available: a
// Redis adapter for production and an in-process store for single-node
// deployments and tests.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned (wrapped) when the backing store cannot be
// reached or answers with a transport-level error.
var ErrUnavailable = errors.New("cache unavailable")

// TTL sentinels follow the Redis TTL command.
const (
	NoExpiry   time.Duration = -1
	MissingKey time.Duration = -2
)

// Store is the subset of a hash-capable key-value store used by the
// codespace overlay. Every method is safe for concurrent use.
type Store interface {
	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// HGet returns a single hash field. ok is false when the key or the
	// field is absent.
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)

	// HGetAll returns every field of the hash at key, or an empty map when
	// the key does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSetIfAbsent writes all fields and arms ttl in a single atomic step,
	// but only when key does not exist yet. A ttl of zero or less leaves the
	// key persistent. It reports whether the write happened.
	HSetIfAbsent(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error)

	// HSetIfExists updates one field of an existing hash atomically. It
	// never creates the key and reports whether the write happened.
	HSetIfExists(ctx context.Context, key, field, value string) (bool, error)

	// Expire (re)arms the time-to-live of key. Missing keys are ignored.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining lifetime of key, NoExpiry when the key is
	// persistent or MissingKey when it does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("cache %s: %w: %w", op, ErrUnavailable, err)
}
