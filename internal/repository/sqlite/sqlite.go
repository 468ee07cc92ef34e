// Package sqlite implements the repository interfaces on SQLite via sqlx.
//
// WHY modernc.org/sqlite?
// A pure-Go translation of SQLite — no CGo, no C toolchain, cross-compiles
// anywhere Go does. The driver registers itself as "sqlite" at init time via
// the blank import below.
//
// WHY sqlx ON TOP OF database/sql?
// The generic repository (generic.go) scans arbitrary entity structs by their
// `db` tags and inserts them with named parameters. database/sql would force
// a hand-written Scan per entity; sqlx.GetContext/SelectContext/NamedExec
// make one implementation serve every schema.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mrahman/sitebuilder/internal/apperror"
)

// Querier is the transaction-scope handle: every repository operation runs
// against one, and both *sqlx.DB (auto-commit) and *sqlx.Tx (inside WithTx)
// satisfy it. Passing the Querier down instead of reaching for a global
// connection is what lets callers group several operations atomically.
type Querier interface {
	sqlx.ExtContext
}

var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

// Store owns the connection pool and implements repository.UserStore and
// repository.WebsiteStore.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: SQLite allows a single writer, and a pooled ":memory:"
	// database would give every connection its own empty schema.
	db.SetMaxOpenConns(1)

	// Surface a bad path or permissions problem now, not on first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed during a write — required for a web server.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity: every website_id / user_id must resolve.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return s, nil
}

// Close closes the connection pool. Defer it wherever New is called.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool as a Querier for single-statement operations.
func (s *Store) DB() Querier {
	return s.db
}

// WithTx runs fn inside a transaction. fn receives a Querier scoped to the
// transaction; returning an error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id != 0;

		CREATE TABLE IF NOT EXISTS websites (
			id                 TEXT PRIMARY KEY,
			title              TEXT NOT NULL,
			template           TEXT NOT NULL,
			is_published       INTEGER NOT NULL DEFAULT 0,
			password_protected INTEGER NOT NULL DEFAULT 0,
			password_hash      TEXT NOT NULL DEFAULT '',
			user_id            TEXT NOT NULL REFERENCES users(id),
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_websites_user_id ON websites(user_id);

		CREATE TABLE IF NOT EXISTS website_sections (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			sort_order INTEGER NOT NULL DEFAULT 0,
			website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sections_website_id ON website_sections(website_id);

		CREATE TABLE IF NOT EXISTS text_fields (
			id         TEXT PRIMARY KEY,
			key        TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (website_id, key)
		);

		CREATE TABLE IF NOT EXISTS images (
			id         TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			alt_text   TEXT,
			website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_images_website_id ON images(website_id);

		CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// translateErr maps driver-level failures onto the app's error taxonomy.
// Uniqueness violations become ErrConflict; everything else passes through
// for the caller to wrap. Raw driver messages never reach API clients — the
// handler layer only exposes AppError messages.
func translateErr(err error, table string) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperror.Conflict(table, fmt.Sprintf("%s already exists", table))
		}
	}
	return err
}
