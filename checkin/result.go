package checkin

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/settlement"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Request is one check-in attempt. StaffID is the caller's user id when the
// session resolved one; it is only trusted if it names an active user.
type Request struct {
	BookingID     ledger.BookingID
	CreateInvoice bool
	StaffID       *ledger.StaffID
}

// Result describes a committed check-in.
type Result struct {
	BookingID     ledger.BookingID
	BookingCode   string
	GuestName     string
	RoomNumber    string
	Source        string
	Decision      settlement.Decision
	Balance       ledger.Balance
	AutoSettled   decimal.Decimal // amount recorded as an OTA payment
	Invoiced      decimal.Decimal // amount put on the invoice
	InvoiceNumber *string
	StaffID       *ledger.StaffID
	StaffFallback bool // StaffID came from the first-active-user fallback
	CheckedInAt   time.Time
	Message       string
}

// Preview is the read-only settlement view shown before checking a guest in.
type Preview struct {
	BookingID     ledger.BookingID
	BookingCode   string
	GuestName     string
	RoomNumber    string
	Source        string
	Status        ledger.BookingStatus
	IsOTA         bool
	Decision      settlement.Decision
	Balance       ledger.Balance
	CanCheckIn    bool
	NextInvoice   string // prefix the invoice would be numbered under, "" when none
	InvoiceNeeded bool
}

func successMessage(r *Result) string {
	msg := fmt.Sprintf("Check-in successful! %s - Room %s", r.GuestName, r.RoomNumber)
	switch {
	case r.AutoSettled.IsPositive():
		msg += fmt.Sprintf(" (%s settled via %s)", ledger.FormatRupiah(r.AutoSettled), r.Source)
	case r.InvoiceNumber != nil:
		msg += fmt.Sprintf(" (invoice %s for %s)", *r.InvoiceNumber, ledger.FormatRupiah(r.Invoiced))
	}
	return msg
}
