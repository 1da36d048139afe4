package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Calendar month an invoice series belongs to
// =============================================================================

// Period is a calendar month. Invoice numbering restarts every period.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Key returns the YYYYMM form used in invoice numbers and counter rows.
func (p Period) Key() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Key()
}
