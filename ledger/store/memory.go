// Package store provides an in-memory ledger.TxStore for tests and demos.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Op names a write (or read) the memory store can be told to fail.
type Op string

const (
	OpGetBooking      Op = "GetBooking"
	OpPaymentsTotal   Op = "PaymentsTotal"
	OpAppendPayment   Op = "AppendPayment"
	OpAdvanceSequence Op = "AdvanceInvoiceSequence"
	OpInsertInvoice   Op = "InsertInvoice"
	OpMarkCheckedIn   Op = "MarkCheckedIn"
	OpOccupyRoom      Op = "OccupyRoom"
	OpAppendAudit     Op = "AppendAudit"
)

type fault struct {
	err   error
	times int // <0 means every call
}

// Memory implements ledger.TxStore and ledger.StaffDirectory.
//
// WithTx takes a snapshot and restores it when fn fails, so a rolled back
// check-in leaves every collection exactly as it was. Injected faults are not
// part of the snapshot.
type Memory struct {
	mu     sync.RWMutex
	data   *state
	faults map[Op]*fault
	steal  bool
}

type state struct {
	bookings  map[ledger.BookingID]ledger.Booking
	rooms     map[ledger.RoomID]ledger.Room
	payments  []ledger.PaymentRecord
	invoices  []ledger.Invoice
	divisions []ledger.Division
	staff     map[ledger.StaffID]ledger.Staff
	audit     []ledger.AuditEntry
	sequences map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		data: &state{
			bookings:  make(map[ledger.BookingID]ledger.Booking),
			rooms:     make(map[ledger.RoomID]ledger.Room),
			staff:     make(map[ledger.StaffID]ledger.Staff),
			sequences: make(map[string]int),
		},
		faults: make(map[Op]*fault),
	}
}

// =============================================================================
// SEEDING AND FAULTS
// =============================================================================

func (m *Memory) AddBooking(b ledger.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.bookings[b.ID] = b
}

func (m *Memory) AddRoom(r ledger.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.rooms[r.ID] = r
}

func (m *Memory) AddDivision(d ledger.Division) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.divisions = append(m.data.divisions, d)
}

func (m *Memory) AddStaff(s ledger.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.staff[s.ID] = s
}

// AddPayment records an existing payment, as if taken before check-in.
func (m *Memory) AddPayment(p ledger.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = ledger.PaymentID(len(m.data.payments) + 1)
	m.data.payments = append(m.data.payments, p)
}

// AddInvoice records an existing invoice, bypassing the sequence counter.
func (m *Memory) AddInvoice(inv ledger.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = ledger.InvoiceID(len(m.data.invoices) + 1)
	m.data.invoices = append(m.data.invoices, inv)
}

// FailOn makes the next `times` calls of op return err. times < 0 fails
// every call until ClearFaults.
func (m *Memory) FailOn(op Op, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = &fault{err: err, times: times}
}

func (m *Memory) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = make(map[Op]*fault)
}

// StealNextCheckIn makes the next MarkCheckedIn match no row, as if a
// concurrent request had checked the booking in first.
func (m *Memory) StealNextCheckIn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steal = true
}

func (m *Memory) fault(op Op) error {
	f, ok := m.faults[op]
	if !ok || f.times == 0 {
		return nil
	}
	if f.times > 0 {
		f.times--
	}
	return f.err
}

// =============================================================================
// INSPECTION
// =============================================================================

func (m *Memory) Booking(id ledger.BookingID) (ledger.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data.bookings[id]
	return b, ok
}

func (m *Memory) Room(id ledger.RoomID) (ledger.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data.rooms[id]
	return r, ok
}

func (m *Memory) Payments(id ledger.BookingID) []ledger.PaymentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.PaymentRecord
	for _, p := range m.data.payments {
		if p.BookingID == id {
			out = append(out, p)
		}
	}
	return out
}

func (m *Memory) Invoices() []ledger.Invoice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.Invoice(nil), m.data.invoices...)
}

func (m *Memory) Audit() []ledger.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ledger.AuditEntry(nil), m.data.audit...)
}

// =============================================================================
// STORE (ledger.Store interface)
// =============================================================================

func (m *Memory) GetBooking(_ context.Context, id ledger.BookingID) (*ledger.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getBooking(id)
}

func (m *Memory) PaymentsTotal(_ context.Context, id ledger.BookingID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paymentsTotal(id)
}

func (m *Memory) ActiveDivisions(_ context.Context) ([]ledger.Division, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeDivisions(), nil
}

func (m *Memory) LastInvoiceNumber(_ context.Context, prefix string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInvoiceNumber(prefix), nil
}

func (m *Memory) AppendPayment(_ context.Context, p ledger.PaymentRecord) (ledger.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPayment(p)
}

func (m *Memory) AdvanceInvoiceSequence(_ context.Context, period string, floor int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advanceSequence(period, floor)
}

func (m *Memory) InsertInvoice(_ context.Context, inv ledger.Invoice) (ledger.InvoiceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertInvoice(inv)
}

func (m *Memory) MarkCheckedIn(_ context.Context, id ledger.BookingID, by *ledger.StaffID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markCheckedIn(id, by, at)
}

func (m *Memory) OccupyRoom(_ context.Context, id ledger.RoomID, guest ledger.GuestID, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupyRoom(id, guest)
}

func (m *Memory) AppendAudit(_ context.Context, e ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAudit(e)
}

// =============================================================================
// STAFF DIRECTORY (ledger.StaffDirectory interface)
// =============================================================================

func (m *Memory) IsActiveStaff(_ context.Context, id ledger.StaffID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data.staff[id]
	return ok && s.Active, nil
}

func (m *Memory) FirstActiveStaff(_ context.Context) (*ledger.StaffID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first *ledger.StaffID
	for id, s := range m.data.staff {
		if !s.Active {
			continue
		}
		if first == nil || id < *first {
			id := id
			first = &id
		}
	}
	return first, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx executes fn within a transaction, simulated with a snapshot that is
// restored when fn fails or ctx is done.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.data.clone()
	if err := fn(&txView{parent: m}); err != nil {
		m.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (s *state) clone() *state {
	c := &state{
		bookings:  make(map[ledger.BookingID]ledger.Booking, len(s.bookings)),
		rooms:     make(map[ledger.RoomID]ledger.Room, len(s.rooms)),
		payments:  append([]ledger.PaymentRecord(nil), s.payments...),
		invoices:  append([]ledger.Invoice(nil), s.invoices...),
		divisions: append([]ledger.Division(nil), s.divisions...),
		staff:     make(map[ledger.StaffID]ledger.Staff, len(s.staff)),
		audit:     append([]ledger.AuditEntry(nil), s.audit...),
		sequences: make(map[string]int, len(s.sequences)),
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// txView runs against the parent while WithTx holds its lock.
type txView struct {
	parent *Memory
}

func (tv *txView) GetBooking(_ context.Context, id ledger.BookingID) (*ledger.Booking, error) {
	return tv.parent.getBooking(id)
}

func (tv *txView) PaymentsTotal(_ context.Context, id ledger.BookingID) (decimal.Decimal, error) {
	return tv.parent.paymentsTotal(id)
}

func (tv *txView) ActiveDivisions(_ context.Context) ([]ledger.Division, error) {
	return tv.parent.activeDivisions(), nil
}

func (tv *txView) LastInvoiceNumber(_ context.Context, prefix string) (string, error) {
	return tv.parent.lastInvoiceNumber(prefix), nil
}

func (tv *txView) AppendPayment(_ context.Context, p ledger.PaymentRecord) (ledger.PaymentID, error) {
	return tv.parent.appendPayment(p)
}

func (tv *txView) AdvanceInvoiceSequence(_ context.Context, period string, floor int) (int, error) {
	return tv.parent.advanceSequence(period, floor)
}

func (tv *txView) InsertInvoice(_ context.Context, inv ledger.Invoice) (ledger.InvoiceID, error) {
	return tv.parent.insertInvoice(inv)
}

func (tv *txView) MarkCheckedIn(_ context.Context, id ledger.BookingID, by *ledger.StaffID, at time.Time) (bool, error) {
	return tv.parent.markCheckedIn(id, by, at)
}

func (tv *txView) OccupyRoom(_ context.Context, id ledger.RoomID, guest ledger.GuestID, _ time.Time) error {
	return tv.parent.occupyRoom(id, guest)
}

func (tv *txView) AppendAudit(_ context.Context, e ledger.AuditEntry) error {
	return tv.parent.appendAudit(e)
}

// =============================================================================
// LOCKED OPERATIONS (caller holds mu)
// =============================================================================

func (m *Memory) getBooking(id ledger.BookingID) (*ledger.Booking, error) {
	if err := m.fault(OpGetBooking); err != nil {
		return nil, err
	}
	b, ok := m.data.bookings[id]
	if !ok {
		return nil, nil
	}
	if r, ok := m.data.rooms[b.RoomID]; ok {
		b.RoomNumber = r.Number
	}
	return &b, nil
}

func (m *Memory) paymentsTotal(id ledger.BookingID) (decimal.Decimal, error) {
	if err := m.fault(OpPaymentsTotal); err != nil {
		return decimal.Zero, err
	}
	var amounts []decimal.Decimal
	for _, p := range m.data.payments {
		if p.BookingID == id {
			amounts = append(amounts, p.Amount)
		}
	}
	return ledger.SumAmounts(amounts), nil
}

func (m *Memory) activeDivisions() []ledger.Division {
	var out []ledger.Division
	for _, d := range m.data.divisions {
		if d.Active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) lastInvoiceNumber(prefix string) string {
	last := ""
	for _, inv := range m.data.invoices {
		if strings.HasPrefix(inv.Number, prefix) && inv.Number > last {
			last = inv.Number
		}
	}
	return last
}

func (m *Memory) appendPayment(p ledger.PaymentRecord) (ledger.PaymentID, error) {
	if err := m.fault(OpAppendPayment); err != nil {
		return 0, err
	}
	p.ID = ledger.PaymentID(len(m.data.payments) + 1)
	m.data.payments = append(m.data.payments, p)
	return p.ID, nil
}

func (m *Memory) advanceSequence(period string, floor int) (int, error) {
	if err := m.fault(OpAdvanceSequence); err != nil {
		return 0, err
	}
	next := m.data.sequences[period]
	if floor > next {
		next = floor
	}
	next++
	m.data.sequences[period] = next
	return next, nil
}

func (m *Memory) insertInvoice(inv ledger.Invoice) (ledger.InvoiceID, error) {
	if err := m.fault(OpInsertInvoice); err != nil {
		return 0, err
	}
	for _, existing := range m.data.invoices {
		if existing.Number == inv.Number {
			return 0, ledger.ErrDuplicateInvoiceNumber
		}
	}
	inv.ID = ledger.InvoiceID(len(m.data.invoices) + 1)
	inv.Lines = append([]ledger.InvoiceLine(nil), inv.Lines...)
	m.data.invoices = append(m.data.invoices, inv)
	return inv.ID, nil
}

func (m *Memory) markCheckedIn(id ledger.BookingID, by *ledger.StaffID, at time.Time) (bool, error) {
	if err := m.fault(OpMarkCheckedIn); err != nil {
		return false, err
	}
	if m.steal {
		m.steal = false
		return false, nil
	}
	b, ok := m.data.bookings[id]
	if !ok || !b.Status.CanCheckIn() {
		return false, nil
	}
	b.Status = ledger.BookingCheckedIn
	b.ActualCheckIn = &at
	b.CheckedInBy = by
	m.data.bookings[id] = b
	return true, nil
}

func (m *Memory) occupyRoom(id ledger.RoomID, guest ledger.GuestID) error {
	if err := m.fault(OpOccupyRoom); err != nil {
		return err
	}
	r := m.data.rooms[id]
	r.ID = id
	r.Status = ledger.RoomOccupied
	r.CurrentGuestID = &guest
	m.data.rooms[id] = r
	return nil
}

func (m *Memory) appendAudit(e ledger.AuditEntry) error {
	if err := m.fault(OpAppendAudit); err != nil {
		return err
	}
	m.data.audit = append(m.data.audit, e)
	return nil
}
