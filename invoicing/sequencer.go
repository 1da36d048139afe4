/*
Package invoicing allocates invoice numbers and picks the billing division
for invoices issued at check-in.

INVOICE NUMBERS:
  Format: {prefix}-{YYYYMM}-{NNNN}, e.g. INV-202603-0007. The counter restarts
  every calendar month and is zero-padded to four digits.

ALLOCATION:
  1. Floor = counter of the greatest existing number with this month's prefix
     (0 when none). Keeps the series monotonic when invoices were created
     outside the counter, e.g. by manual entry.
  2. The store advances the month's counter row to max(stored, floor)+1
     while holding the row lock of the surrounding transaction.
  3. A counter past 9999 fails with ErrSequenceExhausted.

  Allocation must run inside the same transaction as the invoice insert. The
  invoice_number column is UNIQUE as a second line of defence; see
  checkin/invoice.go for the bounded retry on ErrDuplicateInvoiceNumber.

ROLLED-BACK NUMBERS:
  The counter advance rolls back with the check-in. A number allocated by a
  check-in that later failed is handed to the next check-in of the month, so
  such numbers are reused (never duplicated, since the failed invoice was
  never committed). Committed numbers are never reused.

SEE ALSO:
  - division.go: Billing division fallback
  - store/sqlstore/queries.go: AdvanceInvoiceSequence
*/
package invoicing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adf/settlement-engine/ledger"
)

const (
	DefaultPrefix = "INV"
	MaxCounter    = 9999
)

// SequenceStore is the part of ledger.Store the sequencer needs.
type SequenceStore interface {
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
	AdvanceInvoiceSequence(ctx context.Context, period string, floor int) (int, error)
}

type Sequencer struct {
	prefix string
}

// NewSequencer returns a sequencer for prefix; "" means DefaultPrefix.
func NewSequencer(prefix string) *Sequencer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sequencer{prefix: prefix}
}

func (s *Sequencer) Prefix() string { return s.prefix }

// PrefixFor returns "INV-YYYYMM-" for the period.
func (s *Sequencer) PrefixFor(p ledger.Period) string {
	return fmt.Sprintf("%s-%s-", s.prefix, p.Key())
}

// Next allocates the next invoice number of the month containing at.
func (s *Sequencer) Next(ctx context.Context, st SequenceStore, at time.Time) (string, error) {
	period := ledger.PeriodOf(at)
	prefix := s.PrefixFor(period)

	last, err := st.LastInvoiceNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("read last invoice number: %w", err)
	}

	n, err := st.AdvanceInvoiceSequence(ctx, period.Key(), CounterOf(last, prefix))
	if err != nil {
		return "", fmt.Errorf("advance invoice sequence: %w", err)
	}
	if n > MaxCounter {
		return "", ledger.NewError(ledger.ErrSequenceExhausted,
			fmt.Sprintf("invoice numbers for %s are exhausted (max %d)", period, MaxCounter))
	}
	return fmt.Sprintf("%s%04d", prefix, n), nil
}

// CounterOf extracts the numeric counter from number. Anything that is not
// prefix followed by digits counts as 0.
func CounterOf(number, prefix string) int {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || rest == "" {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
