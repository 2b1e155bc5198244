// Package store is the durable record store for users and codespaces. It
// runs on SQLite, PostgreSQL, MySQL or SQL Server through sqlx.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/codespace/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("already exists")
)

// Config selects and tunes the backing database.
type Config struct {
	Driver string // sqlite, postgres, mysql, sqlserver
	DSN    string // empty with sqlite means in-memory
	Pool   model.PoolConfig
}

// Store wraps the database handle together with its dialect.
type Store struct {
	db      *sqlx.DB
	dialect dialect
	driver  string
}

// Open connects to the configured database. Call Migrate before use.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if driver == "sqlite" && dsn == "" {
		dsn = ":memory:"
	}

	db, err := sqlx.Connect(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", driver, err)
	}

	if d.singleConn {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		applyPool(db, cfg.Pool)
	}

	return &Store{db: db, dialect: d, driver: driver}, nil
}

func applyPool(db *sqlx.DB, pool model.PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
}

// OpenMemory returns a migrated in-memory SQLite store.
func OpenMemory() (*Store, error) {
	s, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// q rewrites ? placeholders into the driver's bind syntax.
func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// now returns the timestamp stored on writes. Microsecond precision is the
// finest every supported backend keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// isUniqueViolation recognises duplicate-key errors across drivers.
func isUniqueViolation(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry") ||
		strings.Contains(lower, "violation of unique")
}
