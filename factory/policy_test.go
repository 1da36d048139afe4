package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adf/settlement-engine/factory"
	"github.com/adf/settlement-engine/invoicing"
	"github.com/adf/settlement-engine/ledger"
	"github.com/adf/settlement-engine/settlement"
)

func TestParse_FullYAML(t *testing.T) {
	// GIVEN: a property that also sells through a partner called "mister aladin"
	data := []byte(`
channels:
  ota: [agoda, booking, "Mister Aladin"]
invoice:
  prefix: HTL
  max_sequence_attempts: 5
divisions:
  preferred: [Rooms]
  keywords: [Room]
`)

	// WHEN
	b, err := factory.NewSettlementFactory().Parse(data)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, settlement.AutoSettle, b.Policy.Decide(" mister aladin ", decimal.NewFromInt(1)))
	assert.Equal(t, settlement.RequireInvoiceIfOwed, b.Policy.Decide("traveloka", decimal.NewFromInt(1)),
		"channels not listed are direct")
	assert.Equal(t, "HTL-202603-", b.Sequencer.PrefixFor(ledger.Period{Year: 2026, Month: 3}))
	assert.Equal(t, 5, b.MaxSequenceAttempts)
	assert.Equal(t, []string{"Rooms"}, b.Divisions.Preferred)
	assert.Equal(t, []string{"Room"}, b.Divisions.Keywords)
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	b, err := factory.NewSettlementFactory().Parse([]byte(""))

	require.NoError(t, err)
	assert.Equal(t, settlement.DefaultChannels().Names(), b.Policy.Channels().Names())
	assert.Equal(t, invoicing.DefaultPrefix, b.Sequencer.Prefix())
	assert.Equal(t, 3, b.MaxSequenceAttempts)
	assert.Equal(t, invoicing.DefaultPreferredDivisions, b.Divisions.Preferred)
}

func TestParse_ExplicitEmptyChannelList(t *testing.T) {
	b, err := factory.NewSettlementFactory().Parse([]byte("channels:\n  ota: []\n"))

	require.NoError(t, err)
	assert.Zero(t, b.Policy.Channels().Len())
	assert.Equal(t, settlement.RequireInvoiceIfOwed, b.Policy.Decide("agoda", decimal.NewFromInt(1)))
}

func TestParse_InvoiceNotForcedForDirect(t *testing.T) {
	// GIVEN: the desk decides per guest whether to invoice a direct booking
	f := factory.NewSettlementFactory()
	b, err := f.Parse([]byte("channels:\n  ota: [tiket]\ninvoice:\n  force_for_direct: false\n"))
	require.NoError(t, err)

	// THEN: direct debt is not forced, OTA still auto-settles
	assert.False(t, b.Policy.ForcesInvoice())
	assert.Equal(t, settlement.None, b.Policy.Decide("walk_in", decimal.NewFromInt(1)))
	assert.Equal(t, settlement.AutoSettle, b.Policy.Decide("tiket", decimal.NewFromInt(1)))

	// AND: the setting survives a round trip
	data, err := f.Marshal(b)
	require.NoError(t, err)
	again, err := f.Parse(data)
	require.NoError(t, err)
	assert.False(t, again.Policy.ForcesInvoice())

	// AND: true (or absent) keeps the default
	forced, err := f.Parse([]byte("invoice:\n  force_for_direct: true\n"))
	require.NoError(t, err)
	assert.True(t, forced.Policy.ForcesInvoice())
}

func TestParse_AcceptsJSON(t *testing.T) {
	b, err := factory.NewSettlementFactory().Parse([]byte(`{"channels": {"ota": ["expedia"]}, "invoice": {"prefix": "INV2"}}`))

	require.NoError(t, err)
	assert.Equal(t, []string{"expedia"}, b.Policy.Channels().Names())
	assert.Equal(t, "INV2", b.Sequencer.Prefix())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "channels: [unclosed"},
		{"lowercase prefix", "invoice:\n  prefix: inv\n"},
		{"prefix with dash", "invoice:\n  prefix: IN-V\n"},
		{"prefix with underscore", "invoice:\n  prefix: IN_V\n"},
		{"prefix with percent", "invoice:\n  prefix: \"IN%\"\n"},
		{"negative attempts", "invoice:\n  max_sequence_attempts: -1\n"},
		{"too many attempts", "invoice:\n  max_sequence_attempts: 50\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewSettlementFactory().Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FileAndEmptyPath(t *testing.T) {
	f := factory.NewSettlementFactory()
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	require.NoError(t, os.WriteFile(path, []byte("channels:\n  ota: [tiket]\n"), 0o600))

	b, err := f.Load(path)
	require.NoError(t, err)
	assert.True(t, b.Policy.IsOTA("Tiket"))

	b, err = f.Load("")
	require.NoError(t, err)
	assert.Equal(t, len(settlement.DefaultOTASources), b.Policy.Channels().Len())

	_, err = f.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	f := factory.NewSettlementFactory()
	b, err := f.Parse([]byte("channels:\n  ota: [airbnb, agoda]\ninvoice:\n  prefix: HTL\n"))
	require.NoError(t, err)

	data, err := f.Marshal(b)
	require.NoError(t, err)
	again, err := f.Parse(data)

	require.NoError(t, err)
	assert.Equal(t, []string{"agoda", "airbnb"}, again.Policy.Channels().Names())
	assert.Equal(t, "HTL", again.Sequencer.Prefix())
	assert.Equal(t, b.MaxSequenceAttempts, again.MaxSequenceAttempts)
}

func TestBundle_CheckinConfig(t *testing.T) {
	b, err := factory.NewSettlementFactory().Parse([]byte("invoice:\n  max_sequence_attempts: 4\n"))
	require.NoError(t, err)

	cfg := b.CheckinConfig()

	assert.Same(t, b.Policy, cfg.Policy)
	assert.Same(t, b.Sequencer, cfg.Sequencer)
	require.NotNil(t, cfg.Divisions)
	assert.Equal(t, b.Divisions, *cfg.Divisions)
	assert.Equal(t, 4, cfg.MaxSequenceAttempts)
}
