/*
Package factory converts settlement configuration files into engine objects.

PURPOSE:
  The OTA channel table, invoice prefix, division preferences and retry
  bound are configuration data, not code. Adding a new OTA partner is an
  edit to settlement.yaml and a restart, with no release.

SCHEMA (YAML; JSON is accepted too since it is valid YAML):
  channels:
    ota: [agoda, booking, tiket, airbnb, ota, traveloka, pegipegi, expedia]
  invoice:
    prefix: INV
    max_sequence_attempts: 3
    force_for_direct: true   # false: direct bookings that owe need create_invoice
  divisions:
    preferred: [Hotel, Front Desk, Room Sell]
    keywords: [Hotel, Front]

  Omitted sections fall back to the built-in defaults. An explicit empty
  list (ota: []) means "no OTA channels" and is honored.

USAGE:
  f := factory.NewSettlementFactory()
  bundle, err := f.Load("./config/settlement.yaml")
  cfg := bundle.CheckinConfig()
  cfg.Logger = logger
  svc := checkin.New(store, store, cfg)

SEE ALSO:
  - settlement/channels.go: Channel table
  - invoicing/sequencer.go: Invoice prefix
  - invoicing/division.go: Division preferences
*/
package factory

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/adf/settlement-engine/checkin"
	"github.com/adf/settlement-engine/invoicing"
	"github.com/adf/settlement-engine/settlement"
)

// =============================================================================
// FILE SCHEMA TYPES
// =============================================================================

// SettlementConfig is the file representation.
type SettlementConfig struct {
	Channels  *ChannelsConfig  `yaml:"channels,omitempty" json:"channels,omitempty"`
	Invoice   *InvoiceConfig   `yaml:"invoice,omitempty" json:"invoice,omitempty"`
	Divisions *DivisionsConfig `yaml:"divisions,omitempty" json:"divisions,omitempty"`
}

type ChannelsConfig struct {
	OTA []string `yaml:"ota" json:"ota"`
}

type InvoiceConfig struct {
	Prefix              string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	MaxSequenceAttempts int    `yaml:"max_sequence_attempts,omitempty" json:"max_sequence_attempts,omitempty"`
	ForceForDirect      *bool  `yaml:"force_for_direct,omitempty" json:"force_for_direct,omitempty"`
}

type DivisionsConfig struct {
	Preferred []string `yaml:"preferred,omitempty" json:"preferred,omitempty"`
	Keywords  []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Bundle is what the check-in service is configured with.
type Bundle struct {
	Policy              *settlement.Policy
	Sequencer           *invoicing.Sequencer
	Divisions           invoicing.DivisionResolver
	MaxSequenceAttempts int
}

// CheckinConfig returns the check-in service configuration for the bundle.
// Notifier, Logger and Clock are left for the caller.
func (b *Bundle) CheckinConfig() checkin.Config {
	divisions := b.Divisions
	return checkin.Config{
		Policy:              b.Policy,
		Sequencer:           b.Sequencer,
		Divisions:           &divisions,
		MaxSequenceAttempts: b.MaxSequenceAttempts,
	}
}

// =============================================================================
// SETTLEMENT FACTORY
// =============================================================================

// Prefixes end up in invoice numbers; keep them printable and short.
var prefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// SettlementFactory converts configuration files to engine objects.
type SettlementFactory struct{}

func NewSettlementFactory() *SettlementFactory {
	return &SettlementFactory{}
}

// Load reads and parses a configuration file. An empty path yields the defaults.
func (f *SettlementFactory) Load(path string) (*Bundle, error) {
	if path == "" {
		return f.FromConfig(SettlementConfig{})
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement config: %w", err)
	}
	return f.Parse(data)
}

// Parse parses YAML (or JSON) bytes.
func (f *SettlementFactory) Parse(data []byte) (*Bundle, error) {
	var cfg SettlementConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settlement config: %w", err)
	}
	return f.FromConfig(cfg)
}

// FromConfig validates cfg and applies defaults.
func (f *SettlementFactory) FromConfig(cfg SettlementConfig) (*Bundle, error) {
	b := &Bundle{
		Policy:              settlement.DefaultPolicy(),
		Sequencer:           invoicing.NewSequencer(invoicing.DefaultPrefix),
		Divisions:           invoicing.DefaultDivisionResolver(),
		MaxSequenceAttempts: checkin.DefaultMaxSequenceAttempts,
	}

	if cfg.Channels != nil {
		b.Policy = settlement.NewPolicy(settlement.NewChannels(cfg.Channels.OTA...))
	}

	if cfg.Invoice != nil {
		if cfg.Invoice.Prefix != "" {
			if !prefixPattern.MatchString(cfg.Invoice.Prefix) {
				return nil, fmt.Errorf("invalid invoice prefix %q: want 1-8 uppercase letters or digits", cfg.Invoice.Prefix)
			}
			b.Sequencer = invoicing.NewSequencer(cfg.Invoice.Prefix)
		}
		switch n := cfg.Invoice.MaxSequenceAttempts; {
		case n < 0 || n > 10:
			return nil, fmt.Errorf("invalid max_sequence_attempts %d: want 1-10", n)
		case n > 0:
			b.MaxSequenceAttempts = n
		}
		if force := cfg.Invoice.ForceForDirect; force != nil && !*force {
			b.Policy = b.Policy.WithOptionalInvoice()
		}
	}

	if cfg.Divisions != nil {
		if len(cfg.Divisions.Preferred) > 0 {
			b.Divisions.Preferred = cfg.Divisions.Preferred
		}
		if len(cfg.Divisions.Keywords) > 0 {
			b.Divisions.Keywords = cfg.Divisions.Keywords
		}
	}

	return b, nil
}

// ToConfig converts a bundle back to its file form.
func (f *SettlementFactory) ToConfig(b *Bundle) SettlementConfig {
	force := b.Policy.ForcesInvoice()
	return SettlementConfig{
		Channels: &ChannelsConfig{OTA: b.Policy.Channels().Names()},
		Invoice: &InvoiceConfig{
			Prefix:              b.Sequencer.Prefix(),
			MaxSequenceAttempts: b.MaxSequenceAttempts,
			ForceForDirect:      &force,
		},
		Divisions: &DivisionsConfig{
			Preferred: b.Divisions.Preferred,
			Keywords:  b.Divisions.Keywords,
		},
	}
}

// Marshal renders a bundle as YAML.
func (f *SettlementFactory) Marshal(b *Bundle) ([]byte, error) {
	return yaml.Marshal(f.ToConfig(b))
}
