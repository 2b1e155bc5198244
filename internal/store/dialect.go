package store

import (
	"fmt"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// dialect captures everything that differs between the supported SQL
// backends: the database/sql driver, the DDL and the row-limiting syntax.
type dialect struct {
	driverName   string
	versionTable string
	migrations   []string

	// paginate returns the clause appended after ORDER BY, with its args.
	paginate func(limit, offset int) (string, []interface{})

	// singleConn forces a one-connection pool (SQLite).
	singleConn bool
}

func limitOffset(limit, offset int) (string, []interface{}) {
	return " LIMIT ? OFFSET ?", []interface{}{limit, offset}
}

func offsetFetch(limit, offset int) (string, []interface{}) {
	return " OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", []interface{}{offset, limit}
}

var dialects = map[string]dialect{
	"sqlite": {
		driverName:   "sqlite",
		versionTable: `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`,
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS codespaces (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				code TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_codespaces_owner ON codespaces(owner_id, created_at)`,
		},
		paginate:   limitOffset,
		singleConn: true,
	},

	"postgres": {
		driverName:   "pgx",
		versionTable: `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`,
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(254) UNIQUE NOT NULL,
				first_name VARCHAR(150) NOT NULL DEFAULT '',
				last_name VARCHAR(150) NOT NULL DEFAULT '',
				password_hash VARCHAR(128) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS codespaces (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				code TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_codespaces_owner ON codespaces(owner_id, created_at)`,
		},
		paginate: limitOffset,
	},

	"mysql": {
		driverName:   "mysql",
		versionTable: `CREATE TABLE IF NOT EXISTS schema_migrations (version INT NOT NULL)`,
		migrations: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id CHAR(36) PRIMARY KEY,
				email VARCHAR(254) UNIQUE NOT NULL,
				first_name VARCHAR(150) NOT NULL DEFAULT '',
				last_name VARCHAR(150) NOT NULL DEFAULT '',
				password_hash VARCHAR(128) NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL
			) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS codespaces (
				id CHAR(36) PRIMARY KEY,
				owner_id CHAR(36) NOT NULL,
				name VARCHAR(255) NOT NULL,
				code LONGTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				CONSTRAINT fk_codespaces_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
			) ENGINE=InnoDB`,
			`CREATE INDEX idx_codespaces_owner ON codespaces(owner_id, created_at)`,
		},
		paginate: limitOffset,
	},

	"sqlserver": {
		driverName:   "sqlserver",
		versionTable: `IF OBJECT_ID(N'schema_migrations', N'U') IS NULL CREATE TABLE schema_migrations (version INT NOT NULL)`,
		migrations: []string{
			`CREATE TABLE users (
				id NVARCHAR(36) PRIMARY KEY,
				email NVARCHAR(254) UNIQUE NOT NULL,
				first_name NVARCHAR(150) NOT NULL DEFAULT '',
				last_name NVARCHAR(150) NOT NULL DEFAULT '',
				password_hash NVARCHAR(128) NOT NULL,
				created_at DATETIME2 NOT NULL,
				updated_at DATETIME2 NOT NULL
			)`,
			`CREATE TABLE codespaces (
				id NVARCHAR(36) PRIMARY KEY,
				owner_id NVARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name NVARCHAR(255) NOT NULL,
				code NVARCHAR(MAX) NOT NULL,
				created_at DATETIME2 NOT NULL,
				updated_at DATETIME2 NOT NULL
			)`,
			`CREATE INDEX idx_codespaces_owner ON codespaces(owner_id, created_at)`,
		},
		paginate: offsetFetch,
	},
}

// Drivers returns the names accepted in Config.Driver.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver: %s (available: %s)", driver, strings.Join(Drivers(), ", "))
	}
	return d, nil
}
