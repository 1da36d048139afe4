package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/adf/settlement-engine/ledger"
)

// issueInvoice bills the remainder to the resolved division. Allocation and
// insert share the caller's transaction; a clash on the invoice number
// re-allocates up to maxAttempts times.
func (s *Service) issueInvoice(ctx context.Context, tx ledger.Store, b *ledger.Booking, amount decimal.Decimal, staff *ledger.StaffID, at time.Time) (string, error) {
	divisions, err := tx.ActiveDivisions(ctx)
	if err != nil {
		return "", fmt.Errorf("load divisions: %w", err)
	}
	division, err := s.divisions.Resolve(divisions)
	if err != nil {
		return "", err
	}

	inv := buildInvoice(b, amount, division.ID, staff, at)
	for attempt := 1; ; attempt++ {
		number, err := s.seq.Next(ctx, tx, at)
		if err != nil {
			return "", err
		}
		inv.Number = number

		_, err = tx.InsertInvoice(ctx, inv)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, ledger.ErrDuplicateInvoiceNumber) {
			return "", fmt.Errorf("insert invoice: %w", err)
		}
		if attempt >= s.maxAttempts {
			return "", ledger.StorageError("allocate invoice number",
				fmt.Errorf("%d attempts clashed, last %s: %w", attempt, number, err))
		}
		s.log.Warn("invoice number clashed, allocating again",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt),
		)
	}
}

func buildInvoice(b *ledger.Booking, amount decimal.Decimal, division ledger.DivisionID, staff *ledger.StaffID, at time.Time) ledger.Invoice {
	return ledger.Invoice{
		Date:           at,
		CustomerName:   b.GuestName,
		CustomerPhone:  b.GuestPhone,
		CustomerEmail:  b.GuestEmail,
		DivisionID:     division,
		PaymentMethod:  ledger.PaymentMethodCash,
		PaymentStatus:  ledger.InvoiceUnpaid,
		Subtotal:       amount,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		TotalAmount:    amount,
		PaidAmount:     decimal.Zero,
		Notes:          "Auto invoice from check-in. Booking #" + b.Code,
		CreatedBy:      staff,
		Lines: []ledger.InvoiceLine{{
			ItemName: "Room Revenue - " + b.Code,
			ItemDescription: fmt.Sprintf("Room %s %s - %s", b.RoomNumber,
				b.CheckInDate.Format(time.DateOnly), b.CheckOutDate.Format(time.DateOnly)),
			Category:   ledger.CategoryRoomRevenue,
			Quantity:   1,
			UnitPrice:  amount,
			TotalPrice: amount,
		}},
	}
}
