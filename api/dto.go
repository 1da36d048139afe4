/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The check-in response
  keeps the field names the front-desk screens already read
  (success, message, booking_id, guest_name, room_number, invoice_number)
  and adds the settlement details.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Envelope types

LENIENT INPUT:
  Front-desk forms post booking_id as a string and create_invoice as "1".
  FlexInt64 and FlexBool accept both the JSON and the form spellings.

VALIDATION:
  Request types carry go-playground/validator tags; handlers run them
  before calling the service.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adf/settlement-engine/checkin"
	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// LENIENT SCALARS
// =============================================================================

// FlexInt64 accepts 12 and "12".
type FlexInt64 int64

func (n *FlexInt64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = FlexInt64(v)
	return nil
}

// FlexBool accepts true/false, 1/0 and their string forms. Anything else
// unrecognized is false, matching the form handling the desk screens expect.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	*b = FlexBool(parseFlexBool(string(bytes.Trim(bytes.TrimSpace(data), `"`))))
	return nil
}

func parseFlexBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CheckInRequest is the body of POST /api/checkin.
type CheckInRequest struct {
	BookingID     FlexInt64 `json:"booking_id" validate:"gt=0"`
	CreateInvoice FlexBool  `json:"create_invoice"`
}

// BookingCheckInRequest is the optional body of POST /api/bookings/{id}/check-in.
type BookingCheckInRequest struct {
	CreateInvoice FlexBool `json:"create_invoice"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CheckInResponse is returned after a committed check-in.
type CheckInResponse struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	BookingID     int64           `json:"booking_id"`
	BookingCode   string          `json:"booking_code"`
	GuestName     string          `json:"guest_name"`
	RoomNumber    string          `json:"room_number"`
	InvoiceNumber *string         `json:"invoice_number"`
	Decision      string          `json:"decision"`
	Remaining     decimal.Decimal `json:"remaining"`
	AutoSettled   decimal.Decimal `json:"auto_settled"`
	Invoiced      decimal.Decimal `json:"invoiced"`
	StaffID       *int64          `json:"staff_id"`
	StaffFallback bool            `json:"staff_fallback"`
	CheckedInAt   string          `json:"checked_in_at"`
}

// ErrorResponse is every failed call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// BalanceDTO is the settlement balance of a booking.
type BalanceDTO struct {
	FinalPrice    decimal.Decimal `json:"final_price"`
	PaymentsTotal decimal.Decimal `json:"payments_total"`
	CachedPaid    decimal.Decimal `json:"cached_paid"`
	PaidToDate    decimal.Decimal `json:"paid_to_date"`
	Remaining     decimal.Decimal `json:"remaining"`
	Display       string          `json:"display"`
}

// PreviewDTO is the settlement preview shown before check-in.
type PreviewDTO struct {
	BookingID     int64      `json:"booking_id"`
	BookingCode   string     `json:"booking_code"`
	GuestName     string     `json:"guest_name"`
	RoomNumber    string     `json:"room_number"`
	Source        string     `json:"booking_source"`
	Status        string     `json:"status"`
	IsOTA         bool       `json:"is_ota"`
	Decision      string     `json:"decision"`
	Balance       BalanceDTO `json:"balance"`
	CanCheckIn    bool       `json:"can_check_in"`
	InvoiceNeeded bool       `json:"invoice_needed"`
	InvoicePrefix string     `json:"invoice_prefix,omitempty"`
}

// BookingDTO is one row of the arrivals list.
type BookingDTO struct {
	ID            int64           `json:"id"`
	Code          string          `json:"booking_code"`
	GuestName     string          `json:"guest_name"`
	RoomNumber    string          `json:"room_number"`
	Status        string          `json:"status"`
	Source        string          `json:"booking_source"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	CheckInDate   string          `json:"check_in_date"`
	CheckOutDate  string          `json:"check_out_date"`
	ActualCheckIn *string         `json:"actual_checkin_time"`
}

// InvoiceDTO is a sales invoice with its lines.
type InvoiceDTO struct {
	Number         string           `json:"invoice_number"`
	Date           string           `json:"invoice_date"`
	CustomerName   string           `json:"customer_name"`
	CustomerPhone  string           `json:"customer_phone"`
	CustomerEmail  string           `json:"customer_email"`
	DivisionID     int64            `json:"division_id"`
	PaymentMethod  string           `json:"payment_method"`
	PaymentStatus  string           `json:"payment_status"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TaxAmount      decimal.Decimal  `json:"tax_amount"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	PaidAmount     decimal.Decimal  `json:"paid_amount"`
	Notes          string           `json:"notes"`
	Lines          []InvoiceLineDTO `json:"lines"`
}

type InvoiceLineDTO struct {
	ItemName        string          `json:"item_name"`
	ItemDescription string          `json:"item_description"`
	Category        string          `json:"category"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// HealthDTO is returned by GET /api/health.
type HealthDTO struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	BusinessID string `json:"business_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCheckInResponse(r *checkin.Result) CheckInResponse {
	resp := CheckInResponse{
		Success:       true,
		Message:       r.Message,
		BookingID:     int64(r.BookingID),
		BookingCode:   r.BookingCode,
		GuestName:     r.GuestName,
		RoomNumber:    r.RoomNumber,
		InvoiceNumber: r.InvoiceNumber,
		Decision:      r.Decision.String(),
		Remaining:     r.Balance.Remaining,
		AutoSettled:   r.AutoSettled,
		Invoiced:      r.Invoiced,
		StaffFallback: r.StaffFallback,
		CheckedInAt:   r.CheckedInAt.Format(time.RFC3339),
	}
	if r.StaffID != nil {
		id := int64(*r.StaffID)
		resp.StaffID = &id
	}
	return resp
}

func toBalanceDTO(b ledger.Balance) BalanceDTO {
	return BalanceDTO{
		FinalPrice:    b.FinalPrice,
		PaymentsTotal: b.PaymentsTotal,
		CachedPaid:    b.CachedPaid,
		PaidToDate:    b.PaidToDate,
		Remaining:     b.Remaining,
		Display:       ledger.FormatRupiah(b.Remaining),
	}
}

func toPreviewDTO(p *checkin.Preview) PreviewDTO {
	return PreviewDTO{
		BookingID:     int64(p.BookingID),
		BookingCode:   p.BookingCode,
		GuestName:     p.GuestName,
		RoomNumber:    p.RoomNumber,
		Source:        p.Source,
		Status:        string(p.Status),
		IsOTA:         p.IsOTA,
		Decision:      p.Decision.String(),
		Balance:       toBalanceDTO(p.Balance),
		CanCheckIn:    p.CanCheckIn,
		InvoiceNeeded: p.InvoiceNeeded,
		InvoicePrefix: p.NextInvoice,
	}
}

func toBookingDTO(b ledger.Booking) BookingDTO {
	dto := BookingDTO{
		ID:           int64(b.ID),
		Code:         b.Code,
		GuestName:    b.GuestName,
		RoomNumber:   b.RoomNumber,
		Status:       string(b.Status),
		Source:       b.Source,
		FinalPrice:   b.FinalPrice,
		PaidAmount:   b.PaidAmount,
		CheckInDate:  b.CheckInDate.Format(time.DateOnly),
		CheckOutDate: b.CheckOutDate.Format(time.DateOnly),
	}
	if b.ActualCheckIn != nil {
		s := b.ActualCheckIn.Format(time.RFC3339)
		dto.ActualCheckIn = &s
	}
	return dto
}

func toInvoiceDTO(inv *ledger.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		Number:         inv.Number,
		Date:           inv.Date.Format(time.DateOnly),
		CustomerName:   inv.CustomerName,
		CustomerPhone:  inv.CustomerPhone,
		CustomerEmail:  inv.CustomerEmail,
		DivisionID:     int64(inv.DivisionID),
		PaymentMethod:  inv.PaymentMethod,
		PaymentStatus:  inv.PaymentStatus,
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		TaxAmount:      inv.TaxAmount,
		TotalAmount:    inv.TotalAmount,
		PaidAmount:     inv.PaidAmount,
		Notes:          inv.Notes,
		Lines:          make([]InvoiceLineDTO, len(inv.Lines)),
	}
	for i, l := range inv.Lines {
		dto.Lines[i] = InvoiceLineDTO{
			ItemName:        l.ItemName,
			ItemDescription: l.ItemDescription,
			Category:        l.Category,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.TotalPrice,
		}
	}
	return dto
}

// decodeJSON decodes an optional body; an empty body leaves v untouched.
func decodeJSON(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
