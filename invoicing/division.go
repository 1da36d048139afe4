package invoicing

import (
	"sort"
	"strings"

	"github.com/adf/settlement-engine/ledger"
)

// =============================================================================
// DIVISION RESOLUTION - Which division a check-in invoice is billed to
// =============================================================================

var (
	DefaultPreferredDivisions = []string{"Hotel", "Front Desk", "Room Sell"}
	DefaultDivisionKeywords   = []string{"Hotel", "Front"}
)

// DivisionResolver picks a billing division over the active divisions:
//
//  1. exact name in Preferred, lowest id
//  2. name containing one of Keywords, lowest id
//  3. lowest id overall
//
// Names compare case-insensitively.
type DivisionResolver struct {
	Preferred []string
	Keywords  []string
}

func DefaultDivisionResolver() DivisionResolver {
	return DivisionResolver{
		Preferred: DefaultPreferredDivisions,
		Keywords:  DefaultDivisionKeywords,
	}
}

// Resolve fails with ErrConfiguration when no active division exists.
func (r DivisionResolver) Resolve(divisions []ledger.Division) (ledger.Division, error) {
	active := make([]ledger.Division, 0, len(divisions))
	for _, d := range divisions {
		if d.Active {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return ledger.Division{}, ledger.NewError(ledger.ErrConfiguration, "no division available for invoice")
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	for _, d := range active {
		name := fold(d.Name)
		for _, p := range r.Preferred {
			if name == fold(p) {
				return d, nil
			}
		}
	}
	for _, d := range active {
		name := fold(d.Name)
		for _, k := range r.Keywords {
			if k = fold(k); k != "" && strings.Contains(name, k) {
				return d, nil
			}
		}
	}
	return active[0], nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
