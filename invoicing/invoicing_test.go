package invoicing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adf/settlement-engine/invoicing"
	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/ledger/store"
)

var march = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

// =============================================================================
// SEQUENCER
// =============================================================================

func TestSequencer_FirstNumberOfMonth(t *testing.T) {
	mem := store.NewMemory()
	seq := invoicing.NewSequencer("")

	n, err := seq.Next(context.Background(), mem, march)

	require.NoError(t, err)
	assert.Equal(t, "INV-202603-0001", n)
}

func TestSequencer_Increments(t *testing.T) {
	mem := store.NewMemory()
	seq := invoicing.NewSequencer("INV")
	ctx := context.Background()

	first, err := seq.Next(ctx, mem, march)
	require.NoError(t, err)
	second, err := seq.Next(ctx, mem, march)
	require.NoError(t, err)

	assert.Equal(t, "INV-202603-0001", first)
	assert.Equal(t, "INV-202603-0002", second)
}

func TestSequencer_FloorFromExistingInvoices(t *testing.T) {
	// GIVEN: invoice 0041 was entered by hand, the counter never saw it
	mem := store.NewMemory()
	mem.AddInvoice(ledger.Invoice{Number: "INV-202603-0041"})
	mem.AddInvoice(ledger.Invoice{Number: "INV-202602-0300"})

	// WHEN
	n, err := invoicing.NewSequencer("").Next(context.Background(), mem, march)

	// THEN: the series continues after the greatest existing number
	require.NoError(t, err)
	assert.Equal(t, "INV-202603-0042", n)
}

func TestSequencer_NewMonthRestarts(t *testing.T) {
	mem := store.NewMemory()
	mem.AddInvoice(ledger.Invoice{Number: "INV-202603-0041"})

	n, err := invoicing.NewSequencer("").Next(context.Background(), mem, march.AddDate(0, 1, 0))

	require.NoError(t, err)
	assert.Equal(t, "INV-202604-0001", n)
}

func TestSequencer_Exhausted(t *testing.T) {
	mem := store.NewMemory()
	mem.AddInvoice(ledger.Invoice{Number: "INV-202603-9999"})

	_, err := invoicing.NewSequencer("").Next(context.Background(), mem, march)

	assert.ErrorIs(t, err, ledger.ErrSequenceExhausted)
}

func TestSequencer_StoreFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpAdvanceSequence, errors.New("lock wait timeout"), 1)

	_, err := invoicing.NewSequencer("").Next(context.Background(), mem, march)

	require.Error(t, err)
	assert.Equal(t, ledger.ErrStorage, ledger.KindOf(err))
}

func TestCounterOf(t *testing.T) {
	p := "INV-202603-"
	assert.Equal(t, 7, invoicing.CounterOf("INV-202603-0007", p))
	assert.Equal(t, 0, invoicing.CounterOf("", p))
	assert.Equal(t, 0, invoicing.CounterOf("INV-202603-MANUAL", p))
	assert.Equal(t, 0, invoicing.CounterOf("INV-202602-0007", p))
}

// =============================================================================
// DIVISION RESOLUTION
// =============================================================================

func TestResolve_ExactPreferredNameWins(t *testing.T) {
	divs := []ledger.Division{
		{ID: 1, Name: "Hotel Restaurant", Active: true},
		{ID: 5, Name: "Front Desk", Active: true},
		{ID: 3, Name: "Laundry", Active: true},
	}

	d, err := invoicing.DefaultDivisionResolver().Resolve(divs)

	require.NoError(t, err)
	assert.Equal(t, ledger.DivisionID(5), d.ID)
}

func TestResolve_LowestIDAmongExactMatches(t *testing.T) {
	divs := []ledger.Division{
		{ID: 9, Name: "Room Sell", Active: true},
		{ID: 4, Name: "hotel", Active: true},
	}

	d, err := invoicing.DefaultDivisionResolver().Resolve(divs)

	require.NoError(t, err)
	assert.Equal(t, ledger.DivisionID(4), d.ID, "case-insensitive exact match, lowest id")
}

func TestResolve_KeywordTier(t *testing.T) {
	divs := []ledger.Division{
		{ID: 2, Name: "Restaurant", Active: true},
		{ID: 7, Name: "Frontline Sales", Active: true},
		{ID: 6, Name: "Hotel Annex", Active: false},
	}

	d, err := invoicing.DefaultDivisionResolver().Resolve(divs)

	require.NoError(t, err)
	assert.Equal(t, ledger.DivisionID(7), d.ID, "inactive divisions are skipped")
}

func TestResolve_LowestIDFallback(t *testing.T) {
	divs := []ledger.Division{
		{ID: 8, Name: "Spa", Active: true},
		{ID: 3, Name: "Restaurant", Active: true},
	}

	d, err := invoicing.DefaultDivisionResolver().Resolve(divs)

	require.NoError(t, err)
	assert.Equal(t, ledger.DivisionID(3), d.ID)
}

func TestResolve_NoActiveDivision(t *testing.T) {
	_, err := invoicing.DefaultDivisionResolver().Resolve([]ledger.Division{{ID: 1, Name: "Hotel"}})

	assert.ErrorIs(t, err, ledger.ErrConfiguration)
	assert.Equal(t, "no division available for invoice", ledger.Message(err))
}
