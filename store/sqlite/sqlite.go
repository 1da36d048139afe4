/*
Package sqlite provides a SQLite-backed implementation of the ledger store.

PURPOSE:
  Development, demo and test store. The check-in SQL itself lives in
  store/sqlstore and is shared with store/mysql; this package adds the
  SQLite dialect: schema, counter row handling and constraint errors.

INTERFACES IMPLEMENTED:
  ledger.TxStore:        Check-in reads and writes + WithTx
  ledger.StaffDirectory: Active user lookups

KEY TABLES:
  bookings, guests, rooms:  Reservation, guest snapshot source, occupancy
  booking_payments:         Append-only payment records
  sales_invoices_header:    Invoices (invoice_number UNIQUE)
  sales_invoices_detail:    Invoice lines
  divisions, users:         Billing divisions, staff
  activity_logs:            Append-only audit trail
  invoice_sequences:        Per-month invoice counter

MONEY:
  Amount columns are TEXT holding the decimal string. SQLite has no exact
  numeric type; REAL would round.

CONCURRENCY:
  SQLite has a single writer. The pool is capped at one connection (an
  in-memory database is per connection anyway) and WithTx holds a mutex,
  so the invoice counter read-modify-write is serialized. In production
  with MySQL, row locks do this instead.

USAGE:
  store, err := sqlite.New("./data/settlement.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := checkin.New(store, store, checkin.Config{})

SEE ALSO:
  - store/sqlstore/sqlstore.go: Shared implementation
  - store/mysql/mysql.go: Production dialect
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/adf/settlement-engine/store/sqlstore"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	*sqlstore.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{DB: sqlstore.New(db, Dialect{}, sqlstore.Options{SerializeTx: true})}
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// =============================================================================
// DIALECT
// =============================================================================

type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) EnsureSequenceSQL() string {
	return "INSERT OR IGNORE INTO invoice_sequences (period, last_value) VALUES (?, 0)"
}

// LockSequenceSQL needs no row lock: the write transaction already holds
// the database lock once the ensure statement ran.
func (Dialect) LockSequenceSQL() string {
	return "SELECT last_value FROM invoice_sequences WHERE period = ?"
}

func (Dialect) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS guests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guest_name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'available',
			current_guest_id INTEGER,
			updated_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_code TEXT NOT NULL UNIQUE,
			guest_id INTEGER NOT NULL REFERENCES guests(id),
			room_id INTEGER REFERENCES rooms(id),
			status TEXT NOT NULL DEFAULT 'pending',
			booking_source TEXT NOT NULL DEFAULT '',
			final_price TEXT NOT NULL DEFAULT '0',
			paid_amount TEXT NOT NULL DEFAULT '0',
			check_in_date DATE NOT NULL,
			check_out_date DATE NOT NULL,
			actual_checkin_time DATETIME,
			checked_in_by INTEGER,
			updated_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,

		`CREATE TABLE IF NOT EXISTS booking_payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL REFERENCES bookings(id),
			amount TEXT NOT NULL,
			payment_date DATETIME NOT NULL,
			payment_method TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			processed_by INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_payments_booking ON booking_payments(booking_id)`,

		`CREATE TABLE IF NOT EXISTS divisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			division_name TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS sales_invoices_header (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invoice_number TEXT NOT NULL UNIQUE,
			invoice_date DATE NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			division_id INTEGER NOT NULL,
			payment_method TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			subtotal TEXT NOT NULL DEFAULT '0',
			discount_amount TEXT NOT NULL DEFAULT '0',
			tax_amount TEXT NOT NULL DEFAULT '0',
			total_amount TEXT NOT NULL DEFAULT '0',
			paid_amount TEXT NOT NULL DEFAULT '0',
			notes TEXT NOT NULL DEFAULT '',
			created_by INTEGER,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sales_invoices_detail (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invoice_header_id INTEGER NOT NULL REFERENCES sales_invoices_header(id),
			item_name TEXT NOT NULL,
			item_description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 1,
			unit_price TEXT NOT NULL,
			total_price TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invoice_detail_header ON sales_invoices_detail(invoice_header_id)`,

		`CREATE TABLE IF NOT EXISTS activity_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS invoice_sequences (
			period TEXT PRIMARY KEY,
			last_value INTEGER NOT NULL DEFAULT 0
		)`,
	}
}
