// Package book implements the consolidated, price-indexed side book: the
// canonical update record, the per-side book structure, its invariants,
// and the sentinel errors the rest of the engine surfaces to callers.
package book

import (
	"errors"

	"github.com/ai-agentic-browser/internal/venue"
)

// PriceTick is a USD price scaled by 100 (cents), non-negative.
type PriceTick int64

// VolumeUnits is a quantity scaled by 1_000_000 (micro-units), non-negative.
// A volume of 0 at a given (price, venue) is a semantic deletion marker.
type VolumeUnits int64

// Side is Buy or Sell.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Update is the canonical ingest record: "the resting size at Price on
// Venue for this side is now exactly Volume." Volume == 0 vacates the
// level on that venue.
type Update struct {
	Venue  venue.ID
	Side   Side
	Price  PriceTick
	Volume VolumeUnits
}

// Entry is one venue's resting size at a price level.
type Entry struct {
	Venue  venue.ID
	Volume VolumeUnits
}

// Error taxonomy. MalformedUpdate and TransportError are adapter-local
// and never constructed here.
var (
	// ErrInsufficientLiquidity: a sweep exhausted the book before
	// meeting the target volume.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrClosedBook: the worker has drained and no longer accepts
	// queries, or the query channel could not be reached.
	ErrClosedBook = errors.New("book closed")
)
