package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE - What the guest still owes at check-in
// =============================================================================

// Balance is the settlement view of one booking.
type Balance struct {
	FinalPrice    decimal.Decimal
	PaymentsTotal decimal.Decimal // sum of booking_payments rows
	CachedPaid    decimal.Decimal // bookings.paid_amount
	PaidToDate    decimal.Decimal
	Remaining     decimal.Decimal
}

// ComputeBalance applies the paid-to-date rule: the larger of the payment
// records and the cached paid amount counts, so a lagging cache never
// under-credits the guest. Remaining is clamped at zero.
func ComputeBalance(finalPrice, paymentsTotal, cachedPaid decimal.Decimal) Balance {
	paid := decimal.Max(paymentsTotal, cachedPaid)
	remaining := finalPrice.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Balance{
		FinalPrice:    finalPrice,
		PaymentsTotal: paymentsTotal,
		CachedPaid:    cachedPaid,
		PaidToDate:    paid,
		Remaining:     remaining,
	}
}

// Owed reports whether anything is left to settle.
func (b Balance) Owed() bool {
	return b.Remaining.IsPositive()
}

// SumAmounts adds amounts exactly.
func SumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FormatRupiah renders an amount as "Rp1.250.000". Fractions are rounded to
// whole rupiah.
func FormatRupiah(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	digits := amount.Round(0).StringFixed(0)

	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return sign + "Rp" + out.String()
}
