/*
Package settlement decides how a booking's outstanding balance is settled at
check-in.

PURPOSE:
  A pure function from (booking source, remaining amount) to a Decision.
  No I/O, no clock. The orchestrator in checkin/ acts on the decision.

DECISIONS:
  AutoSettle:           OTA channel. The agency already collected the money,
                        so the remainder is recorded as an "ota" payment.
  RequireInvoiceIfOwed: Direct booking with something owed. A debt invoice
                        is issued even if the caller did not ask for one.
  None:                 Direct booking, nothing owed. With an optional-invoice
                        policy also a direct booking that owes: the caller's
                        create_invoice flag decides, and without it the
                        check-in fails with PaymentRequired.

CHANNEL TABLE:
  OTA membership is data, not code: see channels.go and
  factory.SettlementFactory. Adding a partner is a config change.

SEE ALSO:
  - checkin/service.go: Applies the decision inside the transaction
*/
package settlement

import (
	"github.com/shopspring/decimal"
)

// Decision is what to do with the remainder at check-in.
type Decision int

const (
	None Decision = iota
	AutoSettle
	RequireInvoiceIfOwed
)

func (d Decision) String() string {
	switch d {
	case AutoSettle:
		return "auto_settle"
	case RequireInvoiceIfOwed:
		return "require_invoice_if_owed"
	default:
		return "none"
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Policy maps a booking source and remainder to a Decision.
type Policy struct {
	channels        Channels
	invoiceOptional bool
}

func NewPolicy(channels Channels) *Policy {
	return &Policy{channels: channels}
}

// DefaultPolicy uses DefaultOTASources.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultChannels())
}

// Decide is total: every (source, remaining) pair has exactly one answer.
// An OTA source always auto-settles; a zero remainder then simply records
// nothing.
func (p *Policy) Decide(source string, remaining decimal.Decimal) Decision {
	if p.channels.IsOTA(source) {
		return AutoSettle
	}
	if remaining.IsPositive() && !p.invoiceOptional {
		return RequireInvoiceIfOwed
	}
	return None
}

// WithOptionalInvoice returns a copy of p that never forces a debt invoice
// on a direct booking.
func (p *Policy) WithOptionalInvoice() *Policy {
	c := *p
	c.invoiceOptional = true
	return &c
}

// ForcesInvoice reports whether direct bookings that owe get an invoice
// regardless of the caller's request.
func (p *Policy) ForcesInvoice() bool {
	return !p.invoiceOptional
}

// IsOTA exposes the channel lookup, used for message wording.
func (p *Policy) IsOTA(source string) bool {
	return p.channels.IsOTA(source)
}

func (p *Policy) Channels() Channels {
	return p.channels
}
