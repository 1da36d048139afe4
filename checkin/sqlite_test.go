package checkin_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adf/settlement-engine/checkin"
	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/store/sqlite"
)

// =============================================================================
// SQLITE-BACKED TESTS - Same properties against real SQL and real rollback
// =============================================================================

func setupSQLite(t *testing.T) (*sqlite.Store, *checkin.Service) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	_, err = store.SaveUser(ctx, ledger.Staff{ID: 1, Username: "frontdesk", FullName: "Front Desk", Active: true})
	require.NoError(t, err)
	_, err = store.SaveDivision(ctx, ledger.Division{ID: 1, Name: "Front Desk", Active: true})
	require.NoError(t, err)

	svc := checkin.New(store, store, checkin.Config{
		Clock: func() time.Time { return checkinTime },
	})
	return store, svc
}

func seedSQLiteBooking(t *testing.T, store *sqlite.Store, n int, source string, final, paid int64) ledger.BookingID {
	t.Helper()
	ctx := context.Background()
	guest, err := store.SaveGuest(ctx, ledger.Guest{Name: fmt.Sprintf("Guest %d", n), Phone: "0811"})
	require.NoError(t, err)
	room, err := store.SaveRoom(ctx, ledger.Room{Number: fmt.Sprintf("%d", 100+n)})
	require.NoError(t, err)
	id, err := store.SaveBooking(ctx, ledger.Booking{
		Code:         fmt.Sprintf("BK-%04d", n),
		GuestID:      guest,
		RoomID:       room,
		Status:       ledger.BookingConfirmed,
		Source:       source,
		FinalPrice:   rp(final),
		PaidAmount:   rp(paid),
		CheckInDate:  checkinTime,
		CheckOutDate: checkinTime.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	return id
}

func rowCounts(t *testing.T, store *sqlite.Store) map[string]int {
	t.Helper()
	counts := map[string]int{}
	for _, table := range []string{"booking_payments", "sales_invoices_header", "sales_invoices_detail", "activity_logs", "invoice_sequences"} {
		var n int
		require.NoError(t, store.SQL().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		counts[table] = n
	}
	return counts
}

func TestSQLite_WalkInGetsFirstInvoiceOfMonth(t *testing.T) {
	store, svc := setupSQLite(t)
	ctx := context.Background()
	id := seedSQLiteBooking(t, store, 1, "walk_in", 1_000_000, 400_000)

	res, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})

	require.NoError(t, err)
	require.NotNil(t, res.InvoiceNumber)
	assert.Equal(t, "INV-202603-0001", *res.InvoiceNumber)

	inv, err := store.GetInvoice(ctx, *res.InvoiceNumber)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.TotalAmount.Equal(rp(600_000)))
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, ledger.InvoiceUnpaid, inv.PaymentStatus)
	assert.Equal(t, "Guest 1", inv.CustomerName)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Room Revenue - BK-0001", inv.Lines[0].ItemName)

	b, err := store.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.BookingCheckedIn, b.Status)
	require.NotNil(t, b.ActualCheckIn)

	room, err := store.GetRoom(ctx, b.RoomID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RoomOccupied, room.Status)

	audit, err := store.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "Check-in guest: Guest 1 - Room 101 - Booking #BK-0001", audit[0].Description)
}

func TestSQLite_OTAPayment(t *testing.T) {
	store, svc := setupSQLite(t)
	ctx := context.Background()
	id := seedSQLiteBooking(t, store, 1, "Booking", 1_000_000, 400_000)

	_, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})

	require.NoError(t, err)
	payments, err := store.ListPayments(ctx, id)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(rp(600_000)))
	assert.Equal(t, ledger.PaymentMethodOTA, payments[0].Method)
	assert.Equal(t, "Auto-payment upon check-in (OTA Source: Booking)", payments[0].Notes)

	numbers, err := store.InvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestSQLite_SecondCheckInWritesNothing(t *testing.T) {
	store, svc := setupSQLite(t)
	ctx := context.Background()
	id := seedSQLiteBooking(t, store, 1, "walk_in", 1_000_000, 0)

	_, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})
	require.NoError(t, err)
	before := rowCounts(t, store)

	_, err = svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})

	assert.ErrorIs(t, err, ledger.ErrAlreadyDone)
	assert.Equal(t, before, rowCounts(t, store))
}

func TestSQLite_ForcedFaultLeavesEveryTableUnchanged(t *testing.T) {
	// GIVEN: any update of rooms aborts, i.e. a fault after payment/invoice writes
	store, svc := setupSQLite(t)
	ctx := context.Background()
	ota := seedSQLiteBooking(t, store, 1, "agoda", 1_000_000, 0)
	walkIn := seedSQLiteBooking(t, store, 2, "walk_in", 1_000_000, 0)
	_, err := store.SQL().Exec(`
		CREATE TRIGGER fail_room_update BEFORE UPDATE ON rooms
		BEGIN
			SELECT RAISE(ABORT, 'forced fault');
		END`)
	require.NoError(t, err)
	before := rowCounts(t, store)

	for _, id := range []ledger.BookingID{ota, walkIn} {
		// WHEN
		_, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})

		// THEN
		require.Error(t, err)
		assert.Equal(t, ledger.ErrStorage, ledger.KindOf(err))
		assert.Equal(t, before, rowCounts(t, store))

		b, err := store.GetBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.BookingConfirmed, b.Status)
		assert.Nil(t, b.ActualCheckIn)
	}
}

func TestSQLite_NumberOfFailedCheckInGoesToNextInvoice(t *testing.T) {
	// GIVEN: a walk-in whose check-in fails after its invoice was written
	store, svc := setupSQLite(t)
	ctx := context.Background()
	failed := seedSQLiteBooking(t, store, 1, "walk_in", 700_000, 0)
	next := seedSQLiteBooking(t, store, 2, "walk_in", 300_000, 0)
	_, err := store.SQL().Exec(`
		CREATE TRIGGER fail_room_update BEFORE UPDATE ON rooms WHEN OLD.room_number = '101'
		BEGIN
			SELECT RAISE(ABORT, 'forced fault');
		END`)
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, checkin.Request{BookingID: failed, StaffID: staffID(1)})
	require.Error(t, err)

	// WHEN: the next walk-in is checked in
	res, err := svc.CheckIn(ctx, checkin.Request{BookingID: next, StaffID: staffID(1)})

	// THEN: it gets the number the failed check-in never committed
	require.NoError(t, err)
	require.NotNil(t, res.InvoiceNumber)
	assert.Equal(t, "INV-202603-0001", *res.InvoiceNumber)
	numbers, err := store.InvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-202603-0001"}, numbers)
}

func TestSQLite_ConcurrentInvoicesAreDistinct(t *testing.T) {
	// GIVEN: ten walk-in bookings owing money, checked in at once
	store, svc := setupSQLite(t)
	ctx := context.Background()
	const n = 10
	ids := make([]ledger.BookingID, n)
	for i := range ids {
		ids[i] = seedSQLiteBooking(t, store, i+1, "walk_in", 500_000, 0)
	}

	// WHEN
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id ledger.BookingID) {
			defer wg.Done()
			res, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, *res.InvoiceNumber)
		}(id)
	}
	wg.Wait()

	// THEN: 0001..0010, no duplicates, no gaps
	require.Empty(t, errs)
	sort.Strings(numbers)
	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("INV-202603-%04d", i+1)
	}
	assert.Equal(t, want, numbers)
}

func TestSQLite_ConcurrentCheckInOfOneBooking(t *testing.T) {
	store, svc := setupSQLite(t)
	ctx := context.Background()
	id := seedSQLiteBooking(t, store, 1, "walk_in", 500_000, 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckIn(ctx, checkin.Request{BookingID: id, StaffID: staffID(1)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if ledger.KindOf(err) == ledger.ErrAlreadyDone {
				already++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, already)
	numbers, err := store.InvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.Len(t, numbers, 1)
}

func TestSQLite_SequenceContinuesAfterManualInvoice(t *testing.T) {
	store, svc := setupSQLite(t)
	ctx := context.Background()
	_, err := store.InsertInvoice(ctx, ledger.Invoice{
		Number: "INV-202603-0007", Date: checkinTime, DivisionID: 1,
		PaymentMethod: "cash", PaymentStatus: "unpaid", TotalAmount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	id := seedSQLiteBooking(t, store, 1, "walk_in", 100_000, 0)

	res, err := svc.CheckIn(ctx, checkin.Request{BookingID: id})

	require.NoError(t, err)
	assert.Equal(t, "INV-202603-0008", *res.InvoiceNumber)
}
