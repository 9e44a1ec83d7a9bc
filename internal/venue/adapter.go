package venue

import "context"

// Adapter is the contract every venue integration satisfies. The core
// never imports a concrete adapter package; it only consumes the
// Updates channel an Adapter produces.
type Adapter interface {
	// Venue identifies which venue this adapter speaks for.
	Venue() ID

	// Run connects, subscribes at the configured depth, and normalizes
	// incoming deltas into Update values pushed onto out. Run
	// blocks until ctx is canceled or a terminal error occurs; on
	// return it SHOULD have pushed volume=0 updates for every level it
	// last advertised (best-effort disconnect flush).
	Run(ctx context.Context, out chan<- Update) error

	// Connected reports whether the adapter currently holds a live
	// session, for health checks.
	Connected() bool

	// LastUpdate reports the time of the most recently normalized
	// delta, for staleness health checks.
	LastUpdate() (lastUpdateUnixNano int64)
}

// Update is the adapter-facing shape of a canonical book delta, carried
// over the shared ingest channel before the ingest demultiplexer
// converts it into book.Update. Kept distinct from book.Update so that
// internal/venue never imports internal/cobe/book — adapters have no
// knowledge of book structure.
type Update struct {
	Venue  ID
	Side   Side
	Price  int64 // PriceTick
	Volume int64 // VolumeUnits, 0 = deletion
}

// Side mirrors book.Side without creating an import cycle between the
// venue and book packages; the ingest demultiplexer converts between
// the two trivially.
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
