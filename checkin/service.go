/*
Package checkin moves a booking to checked_in and settles its balance in one
atomic unit.

PURPOSE:
  The front-desk workflow: validate the booking, work out what the guest
  still owes, and either record the OTA's payment or issue a debt invoice,
  then flip booking and room status and write the audit row. Either all of
  it is committed or none of it is.

FLOW (CheckIn):
  1. Validate the request (booking id present)
  2. Resolve acting staff, outside the transaction (staff.go)
  3. In WithTx:
     a. Load booking, check status and room
     b. Balance = final price - max(payments, cached paid amount)
     c. settlement.Policy.Decide(source, remaining)
     d. AutoSettle   -> append "ota" payment for the remainder
        invoice path -> division + invoice number + header/line (invoice.go)
     e. Guarded UPDATE to checked_in (zero rows = someone else won)
     f. Room occupied by the booking's guest
     g. Audit row when staff resolved
  4. Commit, then publish the CheckedIn event (best effort)

ERRORS:
  Every failure unwraps to one ledger error kind. Storage failures are
  logged with the booking id and reported with a generic message.

CONCURRENCY:
  No goroutines. Two check-ins of one booking: the loser sees checked_in
  on read or hits the status guard, and gets ErrAlreadyDone. Check-ins of
  different bookings contend only on the month's invoice counter row.

SEE ALSO:
  - settlement/policy.go: Decision table
  - invoicing/sequencer.go: Invoice numbers
  - ledger/store.go: TxStore contract
*/
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/adf/settlement-engine/invoicing"
	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/settlement"
)

// DefaultMaxSequenceAttempts bounds invoice-number retries on a unique-key clash.
const DefaultMaxSequenceAttempts = 3

// Config wires the collaborators. Zero fields get defaults.
type Config struct {
	Policy              *settlement.Policy
	Sequencer           *invoicing.Sequencer
	Divisions           *invoicing.DivisionResolver
	Notifier            Notifier
	Logger              *zap.Logger
	Clock               func() time.Time
	MaxSequenceAttempts int
}

// Service is the check-in orchestrator.
type Service struct {
	store       ledger.TxStore
	staff       ledger.StaffDirectory
	policy      *settlement.Policy
	seq         *invoicing.Sequencer
	divisions   invoicing.DivisionResolver
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time
	maxAttempts int
}

func New(store ledger.TxStore, staff ledger.StaffDirectory, cfg Config) *Service {
	s := &Service{
		store:       store,
		staff:       staff,
		policy:      cfg.Policy,
		seq:         cfg.Sequencer,
		divisions:   invoicing.DefaultDivisionResolver(),
		notifier:    cfg.Notifier,
		log:         cfg.Logger,
		now:         cfg.Clock,
		maxAttempts: cfg.MaxSequenceAttempts,
	}
	if s.policy == nil {
		s.policy = settlement.DefaultPolicy()
	}
	if s.seq == nil {
		s.seq = invoicing.NewSequencer(invoicing.DefaultPrefix)
	}
	if cfg.Divisions != nil {
		s.divisions = *cfg.Divisions
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxSequenceAttempts
	}
	return s
}

// =============================================================================
// CHECK-IN
// =============================================================================

// CheckIn runs the whole workflow. On error nothing was written.
func (s *Service) CheckIn(ctx context.Context, req Request) (*Result, error) {
	if req.BookingID <= 0 {
		return nil, ledger.NewError(ledger.ErrInvalidRequest, "booking id is required")
	}

	staff, fallback, err := s.resolveStaff(ctx, req.StaffID)
	if err != nil {
		return nil, s.fail(req.BookingID, ledger.StorageError("resolve staff", err))
	}

	res := &Result{
		BookingID:     req.BookingID,
		StaffID:       staff,
		StaffFallback: fallback,
		CheckedInAt:   s.now(),
		AutoSettled:   decimal.Zero,
		Invoiced:      decimal.Zero,
	}

	err = s.store.WithTx(ctx, func(tx ledger.Store) error {
		return s.checkIn(ctx, tx, req.CreateInvoice, res)
	})
	if err != nil {
		return nil, s.fail(req.BookingID, err)
	}

	res.Message = successMessage(res)
	s.log.Info("guest checked in",
		zap.Int64("booking_id", int64(res.BookingID)),
		zap.String("booking_code", res.BookingCode),
		zap.Stringer("decision", res.Decision),
		zap.String("remaining", res.Balance.Remaining.String()),
		zap.Stringp("invoice_number", res.InvoiceNumber),
	)

	if err := s.notifier.PublishCheckedIn(ctx, eventOf(res)); err != nil {
		s.log.Warn("check-in event not published",
			zap.Int64("booking_id", int64(res.BookingID)),
			zap.Error(err),
		)
	}
	return res, nil
}

func (s *Service) checkIn(ctx context.Context, tx ledger.Store, createInvoice bool, res *Result) error {
	b, err := s.loadEligible(ctx, tx, res.BookingID)
	if err != nil {
		return err
	}
	res.BookingCode = b.Code
	res.GuestName = b.GuestName
	res.RoomNumber = b.RoomNumber
	res.Source = b.Source

	paid, err := tx.PaymentsTotal(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("sum payments: %w", err)
	}
	res.Balance = ledger.ComputeBalance(b.FinalPrice, paid, b.PaidAmount)
	res.Decision = s.policy.Decide(b.Source, res.Balance.Remaining)
	remaining := res.Balance.Remaining

	switch res.Decision {
	case settlement.AutoSettle:
		if remaining.IsPositive() {
			if _, err := tx.AppendPayment(ctx, ledger.PaymentRecord{
				BookingID:   b.ID,
				Amount:      remaining,
				PaidAt:      res.CheckedInAt,
				Method:      ledger.PaymentMethodOTA,
				Notes:       fmt.Sprintf("Auto-payment upon check-in (OTA Source: %s)", b.Source),
				ProcessedBy: res.StaffID,
			}); err != nil {
				return fmt.Errorf("record ota payment: %w", err)
			}
			res.AutoSettled = remaining
			remaining = decimal.Zero
		}
	case settlement.RequireInvoiceIfOwed:
		createInvoice = true
	}

	if remaining.IsPositive() {
		if !createInvoice {
			return ledger.NewError(ledger.ErrPaymentRequired, fmt.Sprintf(
				"payment not settled: %s outstanding, take payment or issue an invoice", ledger.FormatRupiah(remaining)))
		}
		number, err := s.issueInvoice(ctx, tx, b, remaining, res.StaffID, res.CheckedInAt)
		if err != nil {
			return err
		}
		res.InvoiceNumber = &number
		res.Invoiced = remaining
	}

	ok, err := tx.MarkCheckedIn(ctx, b.ID, res.StaffID, res.CheckedInAt)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if !ok {
		return ledger.NewError(ledger.ErrAlreadyDone, "guest already checked in")
	}

	if err := tx.OccupyRoom(ctx, b.RoomID, b.GuestID, res.CheckedInAt); err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	if res.StaffID != nil {
		if err := tx.AppendAudit(ctx, ledger.AuditEntry{
			StaffID:     res.StaffID,
			Action:      ledger.AuditActionCheckIn,
			Description: fmt.Sprintf("Check-in guest: %s - Room %s - Booking #%s", b.GuestName, b.RoomNumber, b.Code),
			CreatedAt:   res.CheckedInAt,
		}); err != nil {
			return fmt.Errorf("write activity log: %w", err)
		}
	}
	return nil
}

// loadEligible returns the booking if it may be checked in now.
func (s *Service) loadEligible(ctx context.Context, st ledger.Reader, id ledger.BookingID) (*ledger.Booking, error) {
	b, err := st.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b == nil {
		return nil, ledger.NewError(ledger.ErrNotFound, "booking not found")
	}
	if b.Status == ledger.BookingCheckedIn {
		return nil, ledger.NewError(ledger.ErrAlreadyDone, "guest already checked in")
	}
	if !b.Status.CanCheckIn() {
		return nil, ledger.NewError(ledger.ErrInvalidState,
			fmt.Sprintf("booking status %q cannot be checked in", b.Status))
	}
	if b.RoomID == 0 {
		return nil, ledger.NewError(ledger.ErrInvalidState, "booking has no room assigned")
	}
	return b, nil
}

// fail normalizes err to a ledger error and logs storage failures.
func (s *Service) fail(id ledger.BookingID, err error) error {
	var le *ledger.Error
	if !errors.As(err, &le) {
		err = ledger.StorageError("check-in", err)
	}
	if ledger.KindOf(err) == ledger.ErrStorage || ledger.KindOf(err) == ledger.ErrConfiguration {
		s.log.Error("check-in failed",
			zap.Int64("booking_id", int64(id)),
			zap.String("code", ledger.Code(err)),
			zap.Error(err),
		)
	}
	return err
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview computes balance and decision without writing anything.
func (s *Service) Preview(ctx context.Context, id ledger.BookingID) (*Preview, error) {
	if id <= 0 {
		return nil, ledger.NewError(ledger.ErrInvalidRequest, "booking id is required")
	}
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, s.fail(id, fmt.Errorf("load booking: %w", err))
	}
	if b == nil {
		return nil, ledger.NewError(ledger.ErrNotFound, "booking not found")
	}
	paid, err := s.store.PaymentsTotal(ctx, id)
	if err != nil {
		return nil, s.fail(id, fmt.Errorf("sum payments: %w", err))
	}

	bal := ledger.ComputeBalance(b.FinalPrice, paid, b.PaidAmount)
	p := &Preview{
		BookingID:   b.ID,
		BookingCode: b.Code,
		GuestName:   b.GuestName,
		RoomNumber:  b.RoomNumber,
		Source:      b.Source,
		Status:      b.Status,
		IsOTA:       s.policy.IsOTA(b.Source),
		Decision:    s.policy.Decide(b.Source, bal.Remaining),
		Balance:     bal,
		CanCheckIn:  b.Status.CanCheckIn() && b.RoomID != 0,
	}
	if p.Decision == settlement.RequireInvoiceIfOwed {
		p.InvoiceNeeded = true
		p.NextInvoice = s.seq.PrefixFor(ledger.PeriodOf(s.now()))
	}
	return p, nil
}
