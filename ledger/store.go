/*
store.go - Persistence interfaces for the check-in workflow

PURPOSE:
  Defines the boundary between the settlement logic and the database.
  Implementations: store/sqlite (dev, tests), store/mysql (production) and
  ledger/store (in-memory, fault injection in tests).

KEY INTERFACES:
  Reader:         Booking, payment, division and invoice-number lookups
  Writer:         The writes a check-in performs
  Store:          Reader + Writer
  TxStore:        Store + WithTx for the atomic unit
  StaffDirectory: Active-user lookups used for staff resolution

ATOMICITY:
  WithTx runs fn against a Store bound to one database transaction. fn
  returning an error, or ctx being cancelled, rolls everything back. No
  partial check-in is ever observable.

APPEND-ONLY:
  Payment records and audit entries are only ever appended.

GUARDED TRANSITION:
  MarkCheckedIn must only update a booking whose status is still pending or
  confirmed, and report false when no row matched. That is how two
  concurrent check-ins of one booking are told apart.

SEE ALSO:
  - store/sqlstore/sqlstore.go: Shared SQL implementation
  - checkin/service.go: The only caller of the Writer methods
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Reads and writes of one check-in
// =============================================================================

type Reader interface {
	// GetBooking returns the booking joined with guest and room, or nil when absent.
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	// PaymentsTotal sums every payment record of the booking.
	PaymentsTotal(ctx context.Context, id BookingID) (decimal.Decimal, error)

	// ActiveDivisions returns active divisions ordered by id.
	ActiveDivisions(ctx context.Context) ([]Division, error)

	// LastInvoiceNumber returns the lexicographically greatest invoice number
	// starting with prefix, or "" when there is none.
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
}

type Writer interface {
	// AppendPayment inserts a payment record.
	AppendPayment(ctx context.Context, p PaymentRecord) (PaymentID, error)

	// AdvanceInvoiceSequence moves the counter of period (YYYYMM) to
	// max(current, floor)+1 and returns the new value. Callers must be inside
	// WithTx; the counter row stays locked until commit.
	AdvanceInvoiceSequence(ctx context.Context, period string, floor int) (int, error)

	// InsertInvoice writes the header and its lines. A clash on the invoice
	// number returns ErrDuplicateInvoiceNumber.
	InsertInvoice(ctx context.Context, inv Invoice) (InvoiceID, error)

	// MarkCheckedIn flips a pending/confirmed booking to checked_in. It
	// returns false when the status guard matched no row.
	MarkCheckedIn(ctx context.Context, id BookingID, by *StaffID, at time.Time) (bool, error)

	// OccupyRoom sets the room occupied by guest.
	OccupyRoom(ctx context.Context, id RoomID, guest GuestID, at time.Time) error

	// AppendAudit inserts an activity log row.
	AppendAudit(ctx context.Context, e AuditEntry) error
}

type Store interface {
	Reader
	Writer
}

// =============================================================================
// TRANSACTIONAL STORE - The atomic unit
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// STAFF DIRECTORY - Identity resolution, outside the transaction
// =============================================================================

type StaffDirectory interface {
	// IsActiveStaff reports whether id belongs to an active user.
	IsActiveStaff(ctx context.Context, id StaffID) (bool, error)

	// FirstActiveStaff returns the active user with the lowest id, or nil.
	FirstActiveStaff(ctx context.Context) (*StaffID, error)
}
