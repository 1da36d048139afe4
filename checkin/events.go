package checkin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EVENTS - Published after commit, best effort
// =============================================================================

// CheckedIn is emitted once per committed check-in.
type CheckedIn struct {
	BookingID     int64           `json:"booking_id"`
	BookingCode   string          `json:"booking_code"`
	GuestName     string          `json:"guest_name"`
	RoomNumber    string          `json:"room_number"`
	Source        string          `json:"booking_source"`
	Decision      string          `json:"decision"`
	AutoSettled   decimal.Decimal `json:"auto_settled"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Invoiced      decimal.Decimal `json:"invoiced"`
	StaffID       *int64          `json:"staff_id,omitempty"`
	CheckedInAt   time.Time       `json:"checked_in_at"`
}

// Notifier delivers CheckedIn events. A failing notifier never undoes a
// check-in; the error is logged.
type Notifier interface {
	PublishCheckedIn(ctx context.Context, e CheckedIn) error
}

type nopNotifier struct{}

func (nopNotifier) PublishCheckedIn(context.Context, CheckedIn) error { return nil }

func eventOf(r *Result) CheckedIn {
	e := CheckedIn{
		BookingID:   int64(r.BookingID),
		BookingCode: r.BookingCode,
		GuestName:   r.GuestName,
		RoomNumber:  r.RoomNumber,
		Source:      r.Source,
		Decision:    r.Decision.String(),
		AutoSettled: r.AutoSettled,
		Invoiced:    r.Invoiced,
		CheckedInAt: r.CheckedInAt,
	}
	if r.InvoiceNumber != nil {
		e.InvoiceNumber = *r.InvoiceNumber
	}
	if r.StaffID != nil {
		id := int64(*r.StaffID)
		e.StaffID = &id
	}
	return e
}
