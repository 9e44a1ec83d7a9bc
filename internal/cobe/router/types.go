// Package router implements the REST Snapshot Router: the alternate,
// stateless routing path that allocates a target volume across venues
// from one-shot REST order-book snapshots rather than the live
// streaming book, picking the best price each step via a heap.
package router

import (
	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
)

// SnapshotLevel is one (price, quantity, venue) level pulled from a
// single venue's REST order-book snapshot.
type SnapshotLevel struct {
	Venue  venue.ID
	Price  book.PriceTick
	Volume book.VolumeUnits
}

// RouteRequest asks for an allocation of Target volume on Side,
// against a set of freshly fetched snapshot levels (one fetch per
// venue, merged by the caller before routing).
type RouteRequest struct {
	Side   book.Side
	Target book.VolumeUnits
}

// RoutedOrder is the resulting allocation: how much volume to send to
// each venue as a simultaneous market order to consume Target in total.
type RoutedOrder struct {
	PerVenue map[venue.ID]book.VolumeUnits
}
