package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// SEEDING - Bookings, guests, rooms, users and divisions are owned by other
// back-office screens. These writers exist for demo scenarios and tests.
// =============================================================================

func (d *DB) SaveGuest(ctx context.Context, g ledger.Guest) (ledger.GuestID, error) {
	id, err := d.insert(ctx,
		"INSERT INTO guests (id, guest_name, phone, email) VALUES (?, ?, ?, ?)",
		nullID(int64(g.ID)), g.Name, g.Phone, g.Email)
	return ledger.GuestID(id), err
}

func (d *DB) SaveRoom(ctx context.Context, r ledger.Room) (ledger.RoomID, error) {
	status := r.Status
	if status == "" {
		status = ledger.RoomAvailable
	}
	var guest sql.NullInt64
	if r.CurrentGuestID != nil {
		guest = sql.NullInt64{Int64: int64(*r.CurrentGuestID), Valid: true}
	}
	id, err := d.insert(ctx,
		"INSERT INTO rooms (id, room_number, status, current_guest_id) VALUES (?, ?, ?, ?)",
		nullID(int64(r.ID)), r.Number, string(status), guest)
	return ledger.RoomID(id), err
}

// SaveBooking inserts a reservation. Guest and room must exist.
func (d *DB) SaveBooking(ctx context.Context, b ledger.Booking) (ledger.BookingID, error) {
	status := b.Status
	if status == "" {
		status = ledger.BookingPending
	}
	id, err := d.insert(ctx, `
		INSERT INTO bookings
		(id, booking_code, guest_id, room_id, status, booking_source, final_price, paid_amount,
		 check_in_date, check_out_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(int64(b.ID)), b.Code, int64(b.GuestID), nullID(int64(b.RoomID)), string(status), b.Source,
		b.FinalPrice, b.PaidAmount, dateOnly(b.CheckInDate), dateOnly(b.CheckOutDate))
	return ledger.BookingID(id), err
}

func (d *DB) SaveUser(ctx context.Context, s ledger.Staff) (ledger.StaffID, error) {
	id, err := d.insert(ctx,
		"INSERT INTO users (id, username, full_name, is_active) VALUES (?, ?, ?, ?)",
		nullID(int64(s.ID)), s.Username, s.FullName, s.Active)
	return ledger.StaffID(id), err
}

func (d *DB) SaveDivision(ctx context.Context, div ledger.Division) (ledger.DivisionID, error) {
	id, err := d.insert(ctx,
		"INSERT INTO divisions (id, division_name, is_active) VALUES (?, ?, ?)",
		nullID(int64(div.ID)), div.Name, div.Active)
	return ledger.DivisionID(id), err
}

func (d *DB) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert: %w", err)
	}
	return res.LastInsertId()
}

// nullID lets the engine assign the key when id is 0.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// =============================================================================
// READ MODELS - Used by the API and by tests to observe committed state
// =============================================================================

func (d *DB) GetRoom(ctx context.Context, id ledger.RoomID) (*ledger.Room, error) {
	var (
		r      ledger.Room
		status string
		guest  sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT id, room_number, status, current_guest_id FROM rooms WHERE id = ?", int64(id),
	).Scan(&r.ID, &r.Number, &status, &guest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	r.Status = ledger.RoomStatus(status)
	if guest.Valid {
		g := ledger.GuestID(guest.Int64)
		r.CurrentGuestID = &g
	}
	return &r, nil
}

// ListBookings returns bookings ordered by id; status "" means all.
func (d *DB) ListBookings(ctx context.Context, status ledger.BookingStatus) ([]ledger.Booking, error) {
	query := "SELECT " + bookingColumns + bookingFrom
	var args []any
	if status != "" {
		query += " WHERE b.status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY b.id ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []ledger.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (d *DB) ListPayments(ctx context.Context, id ledger.BookingID) ([]ledger.PaymentRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, booking_id, amount, payment_date, payment_method, notes, processed_by
		FROM booking_payments
		WHERE booking_id = ?
		ORDER BY id ASC`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.PaymentRecord
	for rows.Next() {
		var (
			p  ledger.PaymentRecord
			by sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Amount, &p.PaidAt, &p.Method, &p.Notes, &by); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.ProcessedBy = staffPtr(by)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetInvoice returns the header and its lines, or nil when absent.
func (d *DB) GetInvoice(ctx context.Context, number string) (*ledger.Invoice, error) {
	var (
		inv ledger.Invoice
		by  sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, invoice_number, invoice_date, customer_name, customer_phone, customer_email,
		       division_id, payment_method, payment_status, subtotal, discount_amount,
		       tax_amount, total_amount, paid_amount, notes, created_by
		FROM sales_invoices_header
		WHERE invoice_number = ?`, number,
	).Scan(&inv.ID, &inv.Number, &inv.Date, &inv.CustomerName, &inv.CustomerPhone, &inv.CustomerEmail,
		&inv.DivisionID, &inv.PaymentMethod, &inv.PaymentStatus, &inv.Subtotal, &inv.DiscountAmount,
		&inv.TaxAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.Notes, &by)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	inv.CreatedBy = staffPtr(by)

	rows, err := d.db.QueryContext(ctx, `
		SELECT item_name, item_description, category, quantity, unit_price, total_price
		FROM sales_invoices_detail
		WHERE invoice_header_id = ?
		ORDER BY id ASC`, int64(inv.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ledger.InvoiceLine
		if err := rows.Scan(&l.ItemName, &l.ItemDescription, &l.Category, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	return &inv, rows.Err()
}

// InvoiceNumbers lists every invoice number, ascending.
func (d *DB) InvoiceNumbers(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT invoice_number FROM sales_invoices_header ORDER BY invoice_number ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListAudit returns the newest activity log rows first.
func (d *DB) ListAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, action, description, created_at
		FROM activity_logs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	var out []ledger.AuditEntry
	for rows.Next() {
		var (
			e  ledger.AuditEntry
			by sql.NullInt64
		)
		if err := rows.Scan(&by, &e.Action, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		e.StaffID = staffPtr(by)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset clears all data (for testing/demo).
func (d *DB) Reset(ctx context.Context) error {
	tables := []string{
		"sales_invoices_detail", "sales_invoices_header", "invoice_sequences",
		"booking_payments", "activity_logs", "bookings", "rooms", "guests",
		"divisions", "users",
	}
	for _, table := range tables {
		if _, err := d.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func staffPtr(v sql.NullInt64) *ledger.StaffID {
	if !v.Valid {
		return nil
	}
	id := ledger.StaffID(v.Int64)
	return &id
}
