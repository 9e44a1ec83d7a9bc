// Package ingest implements the single-consumer demultiplexer that
// forwards canonical venue updates to the correct side-book worker. It
// never inspects price or volume, performs no batching, and applies no
// backpressure beyond each worker channel's own buffering.
package ingest

import (
	"context"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
)

// Demultiplexer holds the receiving end of the shared, multi-producer
// ingest channel and owns the sending end of the two per-side worker
// channels.
type Demultiplexer struct {
	in   <-chan venue.Update
	buy  chan<- book.Update
	sell chan<- book.Update
}

// New constructs a demultiplexer. buy and sell are closed by Run when
// in is drained, so callers must not also close them.
func New(in <-chan venue.Update, buy, sell chan<- book.Update) *Demultiplexer {
	return &Demultiplexer{in: in, buy: buy, sell: sell}
}

// Run is the demultiplexer's lifecycle: Running while in is open,
// Draining once in closes or ctx is canceled (both worker channels are
// closed so each worker can reach its own Stopped state), Stopped on
// return.
func (d *Demultiplexer) Run(ctx context.Context) {
	defer close(d.buy)
	defer close(d.sell)

	for {
		select {
		case <-ctx.Done():
			return

		case u, ok := <-d.in:
			if !ok {
				return
			}
			out := toBookUpdate(u)
			if u.Side == venue.Buy {
				d.buy <- out
			} else {
				d.sell <- out
			}
		}
	}
}

func toBookUpdate(u venue.Update) book.Update {
	side := book.Buy
	if u.Side == venue.Sell {
		side = book.Sell
	}
	return book.Update{
		Venue:  u.Venue,
		Side:   side,
		Price:  book.PriceTick(u.Price),
		Volume: book.VolumeUnits(u.Volume),
	}
}
