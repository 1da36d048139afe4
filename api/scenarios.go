/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	front-desk data. Each scenario creates staff, divisions, rooms, guests
	and bookings that exercise one part of check-in settlement.

AVAILABLE SCENARIOS:

	front-desk-day:   OTA, walk-in and phone bookings arriving today
	invoice-sequence: Invoices already issued this month, including a
	                  manually numbered one the counter must skip past
	edge-cases:       Already checked in, cancelled, no room, fallback division
	no-division:      No active billing division, invoicing must fail cleanly

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create users and divisions
 3. Create rooms and guests
 4. Create bookings (and prior payments/invoices)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "front-desk-day"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Check-in handlers
  - store/sqlstore/records.go: Seeding writers
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "front-desk-day",
		Name:        "Front Desk Day",
		Description: "OTA bookings auto-settle, walk-ins get a debt invoice, paid guests just check in",
		Category:    "checkin",
	},
	{
		ID:          "invoice-sequence",
		Name:        "Invoice Sequence",
		Description: "Invoices already issued this month; new numbers continue after the highest one",
		Category:    "invoicing",
	},
	{
		ID:          "edge-cases",
		Name:        "Edge Cases",
		Description: "Already checked in, cancelled and room-less bookings; billing falls back to the first division",
		Category:    "checkin",
	},
	{
		ID:          "no-division",
		Name:        "No Billing Division",
		Description: "No active division: OTA check-ins work, invoiced check-ins fail and roll back",
		Category:    "invoicing",
	},
}

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"front-desk-day":   h.loadFrontDeskDayScenario,
		"invoice-sequence": h.loadInvoiceSequenceScenario,
		"edge-cases":       h.loadEdgeCasesScenario,
		"no-division":      h.loadNoDivisionScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	body, err := readBody(w, r)
	if err != nil || decodeJSON(body, &req) != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "scenario_id is required")
		return
	}
	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "Unknown scenario")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		h.Log.Error("reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to reset database")
		return
	}
	if err := load(ctx); err != nil {
		h.Log.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", fmt.Sprintf("Failed to load scenario: %v", err))
		return
	}
	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.Log.Error("reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", "Failed to reset database")
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// stay describes one seeded booking.
type stay struct {
	code       string
	guest      string
	phone      string
	room       string // "" = no room assigned
	status     ledger.BookingStatus
	source     string
	finalPrice int64
	cachedPaid int64
	payments   []int64 // booking_payments rows recorded before arrival
	nights     int
}

func (h *Handler) seedStaff(ctx context.Context) error {
	for _, u := range []ledger.Staff{
		{ID: 1, Username: "owner", FullName: "Pemilik Hotel", Active: true},
		{ID: 2, Username: "rina", FullName: "Rina Front Desk", Active: true},
		{ID: 3, Username: "budi", FullName: "Budi (resigned)", Active: false},
	} {
		if _, err := h.Store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", u.Username, err)
		}
	}
	return nil
}

func (h *Handler) seedDivisions(ctx context.Context, divisions ...ledger.Division) error {
	for _, d := range divisions {
		if _, err := h.Store.SaveDivision(ctx, d); err != nil {
			return fmt.Errorf("division %s: %w", d.Name, err)
		}
	}
	return nil
}

func (h *Handler) seedStays(ctx context.Context, arrival time.Time, stays []stay) error {
	for _, s := range stays {
		guestID, err := h.Store.SaveGuest(ctx, ledger.Guest{Name: s.guest, Phone: s.phone})
		if err != nil {
			return fmt.Errorf("guest %s: %w", s.guest, err)
		}
		var roomID ledger.RoomID
		if s.room != "" {
			if roomID, err = h.Store.SaveRoom(ctx, ledger.Room{Number: s.room}); err != nil {
				return fmt.Errorf("room %s: %w", s.room, err)
			}
		}
		nights := max(s.nights, 1)
		id, err := h.Store.SaveBooking(ctx, ledger.Booking{
			Code:         s.code,
			GuestID:      guestID,
			RoomID:       roomID,
			Status:       s.status,
			Source:       s.source,
			FinalPrice:   decimal.NewFromInt(s.finalPrice),
			PaidAmount:   decimal.NewFromInt(s.cachedPaid),
			CheckInDate:  arrival,
			CheckOutDate: arrival.AddDate(0, 0, nights),
		})
		if err != nil {
			return fmt.Errorf("booking %s: %w", s.code, err)
		}
		for _, amount := range s.payments {
			if _, err := h.Store.AppendPayment(ctx, ledger.PaymentRecord{
				BookingID: id,
				Amount:    decimal.NewFromInt(amount),
				PaidAt:    arrival.AddDate(0, 0, -3),
				Method:    "transfer",
				Notes:     "Down payment",
			}); err != nil {
				return fmt.Errorf("payment for %s: %w", s.code, err)
			}
		}
	}
	return nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handler) loadFrontDeskDayScenario(ctx context.Context) error {
	if err := h.seedStaff(ctx); err != nil {
		return err
	}
	if err := h.seedDivisions(ctx,
		ledger.Division{ID: 1, Name: "Restaurant", Active: true},
		ledger.Division{ID: 2, Name: "Hotel", Active: true},
	); err != nil {
		return err
	}
	return h.seedStays(ctx, today(), []stay{
		{code: "BK-AGD-1001", guest: "Sarah Tan", phone: "+6581234567", room: "101",
			status: ledger.BookingConfirmed, source: "Agoda", finalPrice: 1_250_000, cachedPaid: 250_000, nights: 2},
		{code: "BK-BDC-1002", guest: "Kenji Sato", phone: "+819012345678", room: "102",
			status: ledger.BookingConfirmed, source: "booking", finalPrice: 900_000, cachedPaid: 900_000},
		{code: "BK-WLK-1003", guest: "Budi Santoso", phone: "081234567890", room: "103",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 750_000},
		{code: "BK-PHN-1004", guest: "Dewi Lestari", phone: "081398765432", room: "104",
			status: ledger.BookingPending, source: "phone", finalPrice: 1_500_000, cachedPaid: 500_000,
			payments: []int64{400_000, 300_000}, nights: 3},
		{code: "BK-DIR-1005", guest: "Agus Wijaya", phone: "085611112222", room: "105",
			status: ledger.BookingConfirmed, source: "direct", finalPrice: 600_000, payments: []int64{600_000}},
	})
}

func (h *Handler) loadInvoiceSequenceScenario(ctx context.Context) error {
	if err := h.seedStaff(ctx); err != nil {
		return err
	}
	if err := h.seedDivisions(ctx, ledger.Division{ID: 1, Name: "Front Desk", Active: true}); err != nil {
		return err
	}

	now := time.Now()
	thisMonth := ledger.PeriodOf(now).Key()
	lastMonth := ledger.PeriodOf(now.AddDate(0, -1, 0)).Key()
	for _, number := range []string{
		"INV-" + lastMonth + "-0042",
		"INV-" + thisMonth + "-0001",
		"INV-" + thisMonth + "-0002",
		"INV-" + thisMonth + "-0003",
		"INV-" + thisMonth + "-0010", // typed in by hand at the cashier
	} {
		if _, err := h.Store.InsertInvoice(ctx, ledger.Invoice{
			Number:        number,
			Date:          now,
			CustomerName:  "Walk-in customer",
			DivisionID:    1,
			PaymentMethod: ledger.PaymentMethodCash,
			PaymentStatus: "paid",
			Subtotal:      decimal.NewFromInt(150_000),
			TotalAmount:   decimal.NewFromInt(150_000),
			PaidAmount:    decimal.NewFromInt(150_000),
		}); err != nil {
			return fmt.Errorf("invoice %s: %w", number, err)
		}
	}

	return h.seedStays(ctx, today(), []stay{
		{code: "BK-WLK-2001", guest: "Rudi Hartono", room: "201",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 800_000},
		{code: "BK-WLK-2002", guest: "Maya Putri", room: "202",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 650_000, cachedPaid: 150_000},
	})
}

func (h *Handler) loadEdgeCasesScenario(ctx context.Context) error {
	if err := h.seedStaff(ctx); err != nil {
		return err
	}
	if err := h.seedDivisions(ctx,
		ledger.Division{ID: 1, Name: "Hotel", Active: false},
		ledger.Division{ID: 4, Name: "Laundry", Active: true},
		ledger.Division{ID: 2, Name: "Restaurant", Active: true},
	); err != nil {
		return err
	}
	return h.seedStays(ctx, today(), []stay{
		{code: "BK-DUP-3001", guest: "Lina Marlina", room: "301",
			status: ledger.BookingCheckedIn, source: "Traveloka", finalPrice: 700_000, cachedPaid: 700_000},
		{code: "BK-CXL-3002", guest: "Hendra Gunawan", room: "302",
			status: "cancelled", source: "tiket", finalPrice: 500_000},
		{code: "BK-NRM-3003", guest: "Fitri Handayani",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 450_000},
		{code: "BK-WLK-3004", guest: "Yusuf Pratama", room: "304",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 550_000},
	})
}

func (h *Handler) loadNoDivisionScenario(ctx context.Context) error {
	if err := h.seedStaff(ctx); err != nil {
		return err
	}
	if err := h.seedDivisions(ctx, ledger.Division{ID: 1, Name: "Hotel", Active: false}); err != nil {
		return err
	}
	return h.seedStays(ctx, today(), []stay{
		{code: "BK-EXP-4001", guest: "Emily Clark", room: "401",
			status: ledger.BookingConfirmed, source: "Expedia", finalPrice: 1_100_000},
		{code: "BK-WLK-4002", guest: "Joko Susilo", room: "402",
			status: ledger.BookingConfirmed, source: "walk_in", finalPrice: 400_000},
	})
}
