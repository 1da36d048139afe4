package ledger_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/adf/settlement-engine/ledger"
)

func rp(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeBalance_CachedPaidIsAFloor(t *testing.T) {
	// GIVEN: payment rows total 300k but the cached paid_amount says 400k
	b := ledger.ComputeBalance(rp(1_000_000), rp(300_000), rp(400_000))

	// THEN: the larger source wins
	assert.True(t, b.PaidToDate.Equal(rp(400_000)))
	assert.True(t, b.Remaining.Equal(rp(600_000)))
	assert.True(t, b.Owed())
}

func TestComputeBalance_PaymentsAheadOfCache(t *testing.T) {
	b := ledger.ComputeBalance(rp(1_000_000), rp(700_000), rp(400_000))

	assert.True(t, b.PaidToDate.Equal(rp(700_000)))
	assert.True(t, b.Remaining.Equal(rp(300_000)))
}

func TestComputeBalance_OverpaidClampsToZero(t *testing.T) {
	b := ledger.ComputeBalance(rp(500_000), rp(650_000), decimal.Zero)

	assert.True(t, b.Remaining.IsZero(), "remaining must never go negative")
	assert.False(t, b.Owed())
}

func TestComputeBalance_KeepsFractions(t *testing.T) {
	b := ledger.ComputeBalance(decimal.RequireFromString("100.10"), decimal.RequireFromString("0.20"), decimal.Zero)

	assert.Equal(t, "99.9", b.Remaining.String())
}

func TestFormatRupiah(t *testing.T) {
	cases := map[string]decimal.Decimal{
		"Rp0":         decimal.Zero,
		"Rp600.000":   rp(600_000),
		"Rp1.000.000": rp(1_000_000),
		"-Rp25.500":   rp(-25_500),
		"Rp12.346":    decimal.RequireFromString("12345.6"),
		"Rp999":       rp(999),
	}
	for want, in := range cases {
		assert.Equal(t, want, ledger.FormatRupiah(in))
	}
}

func TestPeriodKey(t *testing.T) {
	p := ledger.PeriodOf(time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "202603", p.Key())
}

func TestKindOf_ClassifiesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", ledger.NewError(ledger.ErrAlreadyDone, "guest already checked in"))

	assert.Equal(t, ledger.ErrAlreadyDone, ledger.KindOf(err))
	assert.Equal(t, "guest already checked in", ledger.Message(err))
	assert.Equal(t, "already_done", ledger.Code(err))
	assert.True(t, ledger.IsClientError(err))
}

func TestKindOf_UnknownIsStorage(t *testing.T) {
	err := errors.New("driver: bad connection")

	assert.Equal(t, ledger.ErrStorage, ledger.KindOf(err))
	assert.Equal(t, "storage_error", ledger.Code(err))
	assert.NotContains(t, ledger.Message(err), "driver", "storage details stay out of the user message")
}

func TestStorageError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("deadlock found")
	err := ledger.StorageError("update room", cause)

	assert.ErrorIs(t, err, ledger.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "update room: deadlock found", err.Error())
}
