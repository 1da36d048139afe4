/*
Package mysql provides the production MySQL/MariaDB store.

PURPOSE:
  Same check-in SQL as store/sqlite (store/sqlstore), with the InnoDB
  dialect: DECIMAL money columns, an exclusive upsert + SELECT ... FOR UPDATE
  on the month's invoice counter row, and error 1062 as the unique violation.

COUNTER LOCKING:
  Two check-ins issuing invoices in the same month both reach
  AdvanceInvoiceSequence. The ensure step is INSERT ... ON DUPLICATE KEY
  UPDATE, which takes the exclusive lock on the counter row whether or not
  the row already exists. The second transaction blocks right there until
  the first commits or rolls back, then reads the advanced value.

  INSERT IGNORE must not be used here: on an existing row it only takes a
  shared lock, two transactions both hold it, and both then wait on each
  other's FOR UPDATE (error 1213).

SEE ALSO:
  - store/sqlstore/sqlstore.go: Shared implementation
  - store/sqlite/sqlite.go: Development dialect
*/
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/adf/settlement-engine/store/sqlstore"
)

// errDuplicateEntry is ER_DUP_ENTRY.
const errDuplicateEntry = 1062

type Store struct {
	*sqlstore.DB
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New connects using dsn (go-sql-driver format), verifies the connection and
// migrates the schema. parseTime is forced on and times are read as UTC.
func New(ctx context.Context, dsn string, pool PoolConfig) (*Store, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysqldriver.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach mysql: %w", err)
	}

	store := NewWithDB(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an existing pool without pinging or migrating.
func NewWithDB(db *sql.DB) *Store {
	return &Store{DB: sqlstore.New(db, Dialect{}, sqlstore.Options{})}
}

// =============================================================================
// DIALECT
// =============================================================================

type Dialect struct{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) EnsureSequenceSQL() string {
	return "INSERT INTO invoice_sequences (period, last_value) VALUES (?, 0) " +
		"ON DUPLICATE KEY UPDATE last_value = last_value"
}

func (Dialect) LockSequenceSQL() string {
	return "SELECT last_value FROM invoice_sequences WHERE period = ? FOR UPDATE"
}

func (Dialect) IsUniqueViolation(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS guests (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			guest_name VARCHAR(150) NOT NULL,
			phone VARCHAR(30) NOT NULL DEFAULT '',
			email VARCHAR(150) NOT NULL DEFAULT ''
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			room_number VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			current_guest_id BIGINT NULL,
			updated_at DATETIME NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_code VARCHAR(40) NOT NULL UNIQUE,
			guest_id BIGINT NOT NULL,
			room_id BIGINT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			booking_source VARCHAR(40) NOT NULL DEFAULT '',
			final_price DECIMAL(15,2) NOT NULL DEFAULT 0,
			paid_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
			check_in_date DATE NOT NULL,
			check_out_date DATE NOT NULL,
			actual_checkin_time DATETIME NULL,
			checked_in_by BIGINT NULL,
			updated_at DATETIME NULL,
			INDEX idx_bookings_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS booking_payments (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			amount DECIMAL(15,2) NOT NULL,
			payment_date DATETIME NOT NULL,
			payment_method VARCHAR(30) NOT NULL,
			notes VARCHAR(255) NOT NULL DEFAULT '',
			processed_by BIGINT NULL,
			INDEX idx_booking_payments_booking (booking_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS divisions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			division_name VARCHAR(100) NOT NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(60) NOT NULL UNIQUE,
			full_name VARCHAR(150) NOT NULL DEFAULT '',
			is_active TINYINT(1) NOT NULL DEFAULT 1
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS sales_invoices_header (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			invoice_number VARCHAR(30) NOT NULL,
			invoice_date DATE NOT NULL,
			customer_name VARCHAR(150) NOT NULL DEFAULT '',
			customer_phone VARCHAR(30) NOT NULL DEFAULT '',
			customer_email VARCHAR(150) NOT NULL DEFAULT '',
			division_id BIGINT NOT NULL,
			payment_method VARCHAR(30) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			subtotal DECIMAL(15,2) NOT NULL DEFAULT 0,
			discount_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
			tax_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
			total_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
			paid_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
			notes VARCHAR(255) NOT NULL DEFAULT '',
			created_by BIGINT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE KEY uq_invoice_number (invoice_number)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS sales_invoices_detail (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			invoice_header_id BIGINT NOT NULL,
			item_name VARCHAR(150) NOT NULL,
			item_description VARCHAR(255) NOT NULL DEFAULT '',
			category VARCHAR(60) NOT NULL DEFAULT '',
			quantity INT NOT NULL DEFAULT 1,
			unit_price DECIMAL(15,2) NOT NULL,
			total_price DECIMAL(15,2) NOT NULL,
			CONSTRAINT fk_invoice_detail_header FOREIGN KEY (invoice_header_id)
				REFERENCES sales_invoices_header(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS activity_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NULL,
			action VARCHAR(50) NOT NULL,
			description TEXT NOT NULL,
			created_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS invoice_sequences (
			period CHAR(6) PRIMARY KEY,
			last_value INT NOT NULL DEFAULT 0
		) ENGINE=InnoDB`,
	}
}
