// Package store implements the SQLite persistence layer: the fixed
// definition tables, versioned row access with latest-pointer
// maintenance, page assignments, and the wiki event handlers that keep
// the denormalized side tables current.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pagegrid/pagegrid/internal/field"
	"github.com/pagegrid/pagegrid/internal/wiki"
)

//go:embed schema.sql
var schemaSQL string

// Backend owns the database handle and the host binding. All data
// access goes through it.
type Backend struct {
	db   *sql.DB
	host wiki.Host
	log  *zap.SugaredLogger
}

// Open opens (or creates) the database at path, applies the fixed
// schema, and binds the host for the access functions SQL calls back
// into.
func Open(path string, host wiki.Host, log *zap.SugaredLogger) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// The registered access functions read session state; keep a single
	// connection so they always see the binding of the current request.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing database schema: %w", err)
	}

	b := &Backend{db: db, host: host, log: log}
	bindHost(host)
	log.Debugw("database opened", "path", path)
	return b, nil
}

// Close releases the database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

// DB exposes the handle for the schema and search layers.
func (b *Backend) DB() *sql.DB { return b.db }

// Host returns the bound wiki host.
func (b *Backend) Host() wiki.Host { return b.host }

// BindUser sets the acting user for the access function until the next
// call. Queries evaluating PG_ACCESS must run on the backend that
// performed the binding.
func (b *Backend) BindUser(user string) {
	bindUser(user)
}

// Hooks returns the type-system host hooks backed by this backend's
// host.
func (b *Backend) Hooks() field.Hooks {
	return field.Hooks{
		UserExists: b.host.UserExists,
		PageExists: b.host.PageExists,
		PageTitle:  b.host.PageTitle,
	}
}
