/*
Package sqlstore is the database/sql implementation of ledger.TxStore shared
by the SQLite and MySQL stores.

PURPOSE:
  The check-in queries are plain SQL with "?" placeholders and run unchanged
  on both engines. What differs is behind Dialect: DDL, how the month's
  invoice counter row is created and locked, and how a unique-key violation
  looks.

INTERFACES IMPLEMENTED:
  ledger.TxStore:        Reads and writes of one check-in + WithTx
  ledger.StaffDirectory: Active user lookups

MONEY:
  Amounts are bound and scanned as decimal.Decimal (driver.Valuer /
  sql.Scanner). Sums are computed in Go so SQLite's REAL coercion never
  touches money.

APPEND-ONLY:
  booking_payments and activity_logs are only ever INSERTed.

CONCURRENCY:
  WithTx begins with the caller's context; cancellation rolls back. With
  Options.SerializeTx the store also holds a mutex for the whole
  transaction, for engines with a single writer.

SEE ALSO:
  - queries.go: The ledger.Store methods
  - records.go: Seeding and read models for the API
  - store/sqlite, store/mysql: Dialects
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/adf/settlement-engine/ledger"
)

// Dialect carries what differs between engines.
type Dialect interface {
	Name() string

	// Schema returns DDL statements, executed in order by Migrate.
	Schema() []string

	// EnsureSequenceSQL inserts (period, 0) into invoice_sequences unless the
	// row exists. Where the engine has row locks the row must be left
	// exclusively locked in both cases. One argument: period.
	EnsureSequenceSQL() string

	// LockSequenceSQL selects last_value for a period, taking the row lock
	// where the engine has row locks. One argument: period.
	LockSequenceSQL() string

	// IsUniqueViolation reports whether err is a unique-key violation.
	IsUniqueViolation(err error) bool
}

type Options struct {
	// SerializeTx holds a process-wide mutex for every WithTx.
	SerializeTx bool
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ledger.Store against either the pool or one *sql.Tx.
type queries struct {
	q       querier
	dialect Dialect
}

// DB implements ledger.TxStore and ledger.StaffDirectory.
type DB struct {
	queries
	db   *sql.DB
	opts Options
	mu   sync.Mutex
}

// New wraps an open *sql.DB. It does not migrate; call Migrate.
func New(db *sql.DB, dialect Dialect, opts Options) *DB {
	return &DB{
		queries: queries{q: db, dialect: dialect},
		db:      db,
		opts:    opts,
	}
}

// Migrate creates the schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range d.dialect.Schema() {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d.dialect.Name(), err)
		}
	}
	return nil
}

// SQL returns the underlying pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	if d.opts.SerializeTx {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx, dialect: d.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// STAFF DIRECTORY (ledger.StaffDirectory interface)
// =============================================================================

func (d *DB) IsActiveStaff(ctx context.Context, id ledger.StaffID) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE id = ? AND is_active = 1", int64(id),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return count > 0, nil
}

func (d *DB) FirstActiveStaff(ctx context.Context) (*ledger.StaffID, error) {
	var id int64
	err := d.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE is_active = 1 ORDER BY id ASC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up first active user: %w", err)
	}
	staff := ledger.StaffID(id)
	return &staff, nil
}
