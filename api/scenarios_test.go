/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state and that every
	arriving booking it seeds can actually be checked in:
	- Users and divisions are created
	- Bookings, payments and prior invoices are seeded
	- Invoice numbering continues after the seeded invoices

These tests double as end-to-end checks of the check-in path over SQLite.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adf/settlement-engine/ledger"
)

func TestScenarios_ListAndLoad(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)

	list := decode[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios", "", "", ""))
	require.Len(t, list, len(scenarios))

	for _, s := range list {
		t.Run(s.ID, func(t *testing.T) {
			rec := ts.postJSON(t, "/api/scenarios/load", fmt.Sprintf(`{"scenario_id": %q}`, s.ID))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			current := decode[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", "", "", ""))
			assert.Equal(t, s.ID, current.ID)
			assert.Equal(t, s.Name, current.Name)
		})
	}
}

func TestScenarios_LoadReplacesPreviousData(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)

	require.Equal(t, http.StatusOK, ts.postJSON(t, "/api/scenarios/load", `{"scenario_id": "front-desk-day"}`).Code)
	require.Equal(t, http.StatusOK, ts.postJSON(t, "/api/scenarios/load", `{"scenario_id": "no-division"}`).Code)

	bookings, err := ts.h.Store.ListBookings(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestScenarios_BadRequests(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)

	for _, body := range []string{`{}`, `{"scenario_id": "nope"}`, `not json`} {
		rec := ts.postJSON(t, "/api/scenarios/load", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestScenarios_Reset(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)
	require.Equal(t, http.StatusOK, ts.postJSON(t, "/api/scenarios/load", `{"scenario_id": "front-desk-day"}`).Code)

	rec := ts.postJSON(t, "/api/scenarios/reset", "")

	require.Equal(t, http.StatusOK, rec.Code)
	bookings, err := ts.h.Store.ListBookings(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, bookings)
	current := ts.do(t, http.MethodGet, "/api/scenarios/current", "", "", "")
	assert.JSONEq(t, "null", current.Body.String())
}

func TestScenarios_DisabledByDefault(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)
	ts.router = NewRouter(ts.h, Options{})

	rec := ts.do(t, http.MethodGet, "/api/scenarios", "", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_FrontDeskDay(t *testing.T) {
	// GIVEN: The front-desk-day scenario
	ts := setupTestServer(t, false, fixedClock)
	loadScenario(t, ts, (*Handler).loadFrontDeskDayScenario)
	ctx := context.Background()

	// WHEN: Every arrival is checked in
	for id := 1; id <= 5; id++ {
		rec := ts.postJSON(t, "/api/checkin", fmt.Sprintf(`{"booking_id": %d, "create_invoice": true}`, id))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// THEN: Only Agoda had a remainder to auto-settle
	agoda, err := ts.h.Store.ListPayments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, agoda, 1)
	bdc, err := ts.h.Store.ListPayments(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, bdc)

	// AND: Walk-in and phone guest got consecutive invoices
	numbers, err := ts.h.Store.InvoiceNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-202603-0001", "INV-202603-0002"}, numbers)

	// AND: Everyone is in their room
	checkedIn, err := ts.h.Store.ListBookings(ctx, ledger.BookingCheckedIn)
	require.NoError(t, err)
	assert.Len(t, checkedIn, 5)
	for _, b := range checkedIn {
		room, err := ts.h.Store.GetRoom(ctx, b.RoomID)
		require.NoError(t, err)
		assert.Equal(t, ledger.RoomOccupied, room.Status, b.Code)
	}

	audit, err := ts.h.Store.ListAudit(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, audit, 5)
}

func TestScenario_InvoiceSequence(t *testing.T) {
	// GIVEN: Invoices 0001-0003 and a hand-typed 0010 this month
	ts := setupTestServer(t, false, nil)
	loadScenario(t, ts, (*Handler).loadInvoiceSequenceScenario)
	month := ledger.PeriodOf(time.Now()).Key()

	// WHEN: Both walk-ins check in
	first := decode[CheckInResponse](t, ts.postJSON(t, "/api/checkin", `{"booking_id": 1, "create_invoice": true}`))
	second := decode[CheckInResponse](t, ts.postJSON(t, "/api/checkin", `{"booking_id": 2, "create_invoice": true}`))

	// THEN: Numbering continues after the highest number in the month
	require.NotNil(t, first.InvoiceNumber)
	require.NotNil(t, second.InvoiceNumber)
	assert.Equal(t, "INV-"+month+"-0011", *first.InvoiceNumber)
	assert.Equal(t, "INV-"+month+"-0012", *second.InvoiceNumber)
	assert.Equal(t, "500000", second.Invoiced.String())
}

func TestScenario_EdgeCases(t *testing.T) {
	ts := setupTestServer(t, false, fixedClock)
	loadScenario(t, ts, (*Handler).loadEdgeCasesScenario)
	ctx := context.Background()

	bookings, err := ts.h.Store.ListBookings(ctx, "")
	require.NoError(t, err)
	require.Len(t, bookings, 4)
	assert.Equal(t, ledger.BookingCheckedIn, bookings[0].Status)
	assert.Equal(t, ledger.BookingStatus("cancelled"), bookings[1].Status)
	assert.Equal(t, ledger.RoomID(0), bookings[2].RoomID)

	divisions, err := ts.h.Store.ActiveDivisions(ctx)
	require.NoError(t, err)
	assert.Len(t, divisions, 2)
}
