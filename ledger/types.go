/*
Package ledger provides the core records of the front-desk settlement engine.

PURPOSE:
  Holds the types shared by every layer: bookings, rooms, payment records,
  invoices, divisions and audit entries, plus the persistence interfaces the
  check-in workflow runs against. Nothing in this package talks to a database;
  store/sqlite and store/mysql implement the interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers (BookingID, RoomID, ...) so ids cannot be mixed up
  - BookingStatus / RoomStatus enumerations
  - Booking: reservation joined with the guest snapshot and room number
  - PaymentRecord: append-only payment entry
  - Invoice + InvoiceLine: debt invoice issued at check-in
  - AuditEntry: append-only activity log row

MONEY:
  All amounts are decimal.Decimal. Never float64.

SEE ALSO:
  - balance.go: Paid-to-date and remainder rules
  - store.go: Store / TxStore interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	BookingID  int64
	GuestID    int64
	RoomID     int64
	StaffID    int64
	DivisionID int64
	PaymentID  int64
	InvoiceID  int64
)

// =============================================================================
// STATUSES
// =============================================================================

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
)

// CanCheckIn reports whether a booking in this status may transition to checked_in.
func (s BookingStatus) CanCheckIn() bool {
	return s == BookingPending || s == BookingConfirmed
}

type RoomStatus string

const (
	RoomAvailable RoomStatus = "available"
	RoomOccupied  RoomStatus = "occupied"
)

// Payment and invoice tags written by the check-in workflow.
const (
	PaymentMethodOTA  = "ota"
	PaymentMethodCash = "cash"

	InvoiceUnpaid = "unpaid"

	CategoryRoomRevenue = "Room Revenue"

	AuditActionCheckIn = "check_in"
)

// =============================================================================
// RECORDS
// =============================================================================

// Booking is a reservation row joined with its guest and room.
// GuestName/GuestPhone/GuestEmail and RoomNumber are read-only snapshots.
type Booking struct {
	ID            BookingID
	Code          string
	GuestID       GuestID
	RoomID        RoomID
	Status        BookingStatus
	Source        string
	FinalPrice    decimal.Decimal
	PaidAmount    decimal.Decimal // cached running total, a floor only
	CheckInDate   time.Time
	CheckOutDate  time.Time
	ActualCheckIn *time.Time
	CheckedInBy   *StaffID

	GuestName  string
	GuestPhone string
	GuestEmail string
	RoomNumber string
}

type Guest struct {
	ID    GuestID
	Name  string
	Phone string
	Email string
}

type Room struct {
	ID             RoomID
	Number         string
	Status         RoomStatus
	CurrentGuestID *GuestID
}

// PaymentRecord is append-only. ProcessedBy is nil when no staff could be resolved.
type PaymentRecord struct {
	ID          PaymentID
	BookingID   BookingID
	Amount      decimal.Decimal
	PaidAt      time.Time
	Method      string
	Notes       string
	ProcessedBy *StaffID
}

// Invoice is a sales invoice header. Customer fields are a copy of the guest
// at issue time, not a live reference.
type Invoice struct {
	ID             InvoiceID
	Number         string
	Date           time.Time
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	DivisionID     DivisionID
	PaymentMethod  string
	PaymentStatus  string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
	Notes          string
	CreatedBy      *StaffID
	Lines          []InvoiceLine
}

type InvoiceLine struct {
	ItemName        string
	ItemDescription string
	Category        string
	Quantity        int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}

type Division struct {
	ID     DivisionID
	Name   string
	Active bool
}

type Staff struct {
	ID       StaffID
	Username string
	FullName string
	Active   bool
}

// AuditEntry is one activity_logs row.
type AuditEntry struct {
	StaffID     *StaffID
	Action      string
	Description string
	CreatedAt   time.Time
}
