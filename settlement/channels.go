package settlement

import (
	"sort"
	"strings"
)

// =============================================================================
// CHANNELS - Which booking sources are online travel agencies
// =============================================================================

// DefaultOTASources is the channel table used when no configuration file
// provides one.
var DefaultOTASources = []string{
	"agoda",
	"booking",
	"tiket",
	"airbnb",
	"ota",
	"traveloka",
	"pegipegi",
	"expedia",
}

// Channels is a closed set of normalized OTA source names.
type Channels struct {
	ota map[string]struct{}
}

// NewChannels builds a table from source names. Names are normalized; blanks
// are ignored.
func NewChannels(sources ...string) Channels {
	c := Channels{ota: make(map[string]struct{}, len(sources))}
	for _, s := range sources {
		if n := Normalize(s); n != "" {
			c.ota[n] = struct{}{}
		}
	}
	return c
}

func DefaultChannels() Channels {
	return NewChannels(DefaultOTASources...)
}

// IsOTA reports whether source names a channel in the table.
func (c Channels) IsOTA(source string) bool {
	_, ok := c.ota[Normalize(source)]
	return ok
}

// Names returns the table sorted, for display and config dumps.
func (c Channels) Names() []string {
	out := make([]string, 0, len(c.ota))
	for n := range c.ota {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c Channels) Len() int {
	return len(c.ota)
}

// Normalize lower-cases and trims a booking source.
func Normalize(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}
