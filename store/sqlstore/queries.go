package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// READS (ledger.Reader interface)
// =============================================================================

const bookingColumns = `
	b.id, b.booking_code, b.guest_id, COALESCE(b.room_id, 0), b.status,
	COALESCE(b.booking_source, ''), b.final_price, b.paid_amount,
	b.check_in_date, b.check_out_date, b.actual_checkin_time, b.checked_in_by,
	COALESCE(g.guest_name, ''), COALESCE(g.phone, ''), COALESCE(g.email, ''),
	COALESCE(r.room_number, '')`

const bookingFrom = `
	FROM bookings b
	LEFT JOIN guests g ON g.id = b.guest_id
	LEFT JOIN rooms r ON r.id = b.room_id`

func (s *queries) GetBooking(ctx context.Context, id ledger.BookingID) (*ledger.Booking, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+bookingColumns+bookingFrom+" WHERE b.id = ?", int64(id))

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %d: %w", id, err)
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*ledger.Booking, error) {
	var (
		b           ledger.Booking
		status      string
		actual      sql.NullTime
		checkedInBy sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.Code, &b.GuestID, &b.RoomID, &status,
		&b.Source, &b.FinalPrice, &b.PaidAmount,
		&b.CheckInDate, &b.CheckOutDate, &actual, &checkedInBy,
		&b.GuestName, &b.GuestPhone, &b.GuestEmail,
		&b.RoomNumber,
	)
	if err != nil {
		return nil, err
	}
	b.Status = ledger.BookingStatus(status)
	if actual.Valid {
		t := actual.Time
		b.ActualCheckIn = &t
	}
	if checkedInBy.Valid {
		id := ledger.StaffID(checkedInBy.Int64)
		b.CheckedInBy = &id
	}
	return &b, nil
}

func (s *queries) PaymentsTotal(ctx context.Context, id ledger.BookingID) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT amount FROM booking_payments WHERE booking_id = ?", int64(id))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var a decimal.Decimal
		if err := rows.Scan(&a); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan payment: %w", err)
		}
		amounts = append(amounts, a)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}
	return ledger.SumAmounts(amounts), nil
}

func (s *queries) ActiveDivisions(ctx context.Context) ([]ledger.Division, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, division_name, is_active FROM divisions WHERE is_active = 1 ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Division
	for rows.Next() {
		var d ledger.Division
		if err := rows.Scan(&d.ID, &d.Name, &d.Active); err != nil {
			return nil, fmt.Errorf("failed to scan division: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *queries) LastInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := s.q.QueryRowContext(ctx, `
		SELECT invoice_number FROM sales_invoices_header
		WHERE invoice_number LIKE ? ESCAPE '!'
		ORDER BY invoice_number DESC
		LIMIT 1`, likePrefix(prefix),
	).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last invoice number: %w", err)
	}
	return number, nil
}

// likePrefix matches values starting with prefix, taken literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// =============================================================================
// WRITES (ledger.Writer interface)
// =============================================================================

func (s *queries) AppendPayment(ctx context.Context, p ledger.PaymentRecord) (ledger.PaymentID, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO booking_payments
		(booking_id, amount, payment_date, payment_method, notes, processed_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(p.BookingID), p.Amount, p.PaidAt, p.Method, p.Notes, nullStaff(p.ProcessedBy),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return ledger.PaymentID(id), nil
}

func (s *queries) AdvanceInvoiceSequence(ctx context.Context, period string, floor int) (int, error) {
	if _, err := s.q.ExecContext(ctx, s.dialect.EnsureSequenceSQL(), period); err != nil {
		return 0, fmt.Errorf("failed to create invoice sequence %s: %w", period, err)
	}

	var current int
	if err := s.q.QueryRowContext(ctx, s.dialect.LockSequenceSQL(), period).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to lock invoice sequence %s: %w", period, err)
	}

	next := max(current, floor) + 1
	if _, err := s.q.ExecContext(ctx,
		"UPDATE invoice_sequences SET last_value = ? WHERE period = ?", next, period,
	); err != nil {
		return 0, fmt.Errorf("failed to advance invoice sequence %s: %w", period, err)
	}
	return next, nil
}

func (s *queries) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.InvoiceID, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO sales_invoices_header
		(invoice_number, invoice_date, customer_name, customer_phone, customer_email,
		 division_id, payment_method, payment_status, subtotal, discount_amount,
		 tax_amount, total_amount, paid_amount, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, dateOnly(inv.Date), inv.CustomerName, inv.CustomerPhone, inv.CustomerEmail,
		int64(inv.DivisionID), inv.PaymentMethod, inv.PaymentStatus, inv.Subtotal, inv.DiscountAmount,
		inv.TaxAmount, inv.TotalAmount, inv.PaidAmount, inv.Notes, nullStaff(inv.CreatedBy), inv.Date,
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, fmt.Errorf("invoice %s: %w", inv.Number, ledger.ErrDuplicateInvoiceNumber)
		}
		return 0, fmt.Errorf("failed to insert invoice header: %w", err)
	}
	headerID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, l := range inv.Lines {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO sales_invoices_detail
			(invoice_header_id, item_name, item_description, category, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			headerID, l.ItemName, l.ItemDescription, l.Category, l.Quantity, l.UnitPrice, l.TotalPrice,
		); err != nil {
			return 0, fmt.Errorf("failed to insert invoice line: %w", err)
		}
	}
	return ledger.InvoiceID(headerID), nil
}

// MarkCheckedIn is the guarded transition: the status predicate in the
// WHERE clause is what makes a concurrent second check-in match zero rows.
func (s *queries) MarkCheckedIn(ctx context.Context, id ledger.BookingID, by *ledger.StaffID, at time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'checked_in',
		    actual_checkin_time = ?,
		    checked_in_by = ?,
		    updated_at = ?
		WHERE id = ? AND status IN ('pending', 'confirmed')`,
		at, nullStaff(by), at, int64(id),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *queries) OccupyRoom(ctx context.Context, id ledger.RoomID, guest ledger.GuestID, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE rooms
		SET status = 'occupied', current_guest_id = ?, updated_at = ?
		WHERE id = ?`,
		int64(guest), at, int64(id),
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

func (s *queries) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO activity_logs (user_id, action, description, created_at) VALUES (?, ?, ?, ?)",
		nullStaff(e.StaffID), e.Action, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullStaff(id *ledger.StaffID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
