// Package venue defines the closed set of trading venues the engine
// integrates and the boundary types venue adapters use to talk to the
// core. Nothing in this package knows about the book structure; venues
// are opaque identifiers as far as internal/cobe is concerned.
package venue

import "fmt"

// ID identifies one integrated trading venue. The set is closed and
// small, comparable, hashable and cheap to clone.
type ID uint8

const (
	Unknown ID = iota
	Binance
	Kraken
	Coinbase
	OKX
)

var names = map[ID]string{
	Unknown:  "unknown",
	Binance:  "binance",
	Kraken:   "kraken",
	Coinbase: "coinbase",
	OKX:      "okx",
}

var byName = map[string]ID{
	"binance":  Binance,
	"kraken":   Kraken,
	"coinbase": Coinbase,
	"okx":      OKX,
}

// String returns the venue's canonical lowercase name.
func (v ID) String() string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("venue(%d)", uint8(v))
}

// Parse resolves a venue name (case-sensitive, lowercase) to its ID.
// Unknown names resolve to Unknown, never an error, so a venue adapter
// added to config without a matching ID constant degrades gracefully
// into a generically-logged venue rather than crashing ingest.
func Parse(name string) ID {
	if id, ok := byName[name]; ok {
		return id
	}
	return Unknown
}

// Metadata carries information about a venue that never participates in
// book or sweep math. No component of the engine currently reads it.
type Metadata struct {
	Name        ID
	MakerFeeBps float64
	TakerFeeBps float64
}
