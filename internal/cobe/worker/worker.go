// Package worker implements the side-book worker: the single-consumer
// cooperative loop that owns one price-indexed book, serially applying
// updates and serving sweep queries over a plain channel multiplex —
// no pause flag is needed once there is exactly one owning goroutine.
package worker

import (
	"context"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/sweep"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

// QuoteRequest is the worker-internal query message: a target volume in
// fixed-point units and a one-shot reply channel carried with the
// request itself. Reply must be buffered with capacity 1 so the
// worker's send never blocks
// even if the caller has stopped listening — a dropped reply channel
// is simply never drained, never closed, and eventually collected.
type QuoteRequest struct {
	Volume book.VolumeUnits
	Reply  chan QuoteResult
}

// QuoteResult is the worker's answer to a QuoteRequest: either a filled
// sweep result or the error that prevented one.
type QuoteResult struct {
	Filled   book.VolumeUnits
	VWAP     book.PriceTick
	PerVenue map[venue.ID]book.VolumeUnits
	Err      error
}

// slowSweepThreshold is the sweep duration above which a worker logs a
// slow-operation warning in addition to recording it in the
// SweepDuration histogram; a sweep over a book of realistic depth
// should complete well under this.
const slowSweepThreshold = 5 * time.Millisecond

// Worker owns one side's book exclusively. Nothing outside Run ever
// touches sideBook; there is no mutex because there is only one caller.
type Worker struct {
	side     book.Side
	sideBook *book.SideBook
	updates  chan book.Update
	queries  chan QuoteRequest
	metrics  *observability.MetricsProvider
	perf     *observability.SweepLogger
}

// New constructs a worker for the given side. updates and queries are
// owned by the caller (the ingest demultiplexer and the query
// coordinator respectively); Worker only ever receives from them.
// metrics and logger may both be nil, in which case no counters or
// slow-operation warnings are produced — the only safe place to read
// book-level gauges is this owning goroutine, so the worker itself
// updates them as it mutates its book.
func New(side book.Side, updates chan book.Update, queries chan QuoteRequest, metrics *observability.MetricsProvider, logger *observability.Logger) *Worker {
	w := &Worker{
		side:     side,
		sideBook: book.NewSideBook(side),
		updates:  updates,
		queries:  queries,
		metrics:  metrics,
	}
	if logger != nil {
		w.perf = observability.NewSweepLogger(logger)
	}
	return w
}

// Run multiplexes updates and queries until both channels are closed,
// or ctx is canceled. Each iteration processes exactly one message to
// completion before the next is dequeued; a sweep never interleaves
// with a partial update.
func (w *Worker) Run(ctx context.Context) {
	updates := w.updates
	queries := w.queries

	for updates != nil || queries != nil {
		select {
		case <-ctx.Done():
			return

		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			w.sideBook.Apply(u)
			w.recordUpdate(u)

		case q, ok := <-queries:
			if !ok {
				queries = nil
				continue
			}
			w.handleQuery(q)
		}
	}
}

func (w *Worker) handleQuery(q QuoteRequest) {
	start := time.Now()
	result, err := sweep.Sweep(w.sideBook, q.Volume)
	elapsed := time.Since(start)
	if w.metrics != nil {
		w.metrics.SweepDuration.WithLabelValues(w.side.String()).Observe(elapsed.Seconds())
	}
	if w.perf != nil {
		w.perf.LogSlowSweep(context.Background(), w.side, elapsed, slowSweepThreshold)
	}
	if err != nil {
		q.Reply <- QuoteResult{Err: err}
		return
	}
	q.Reply <- QuoteResult{
		Filled:   result.Filled,
		VWAP:     result.VWAPTicks,
		PerVenue: result.PerVenue,
	}
}

func (w *Worker) recordUpdate(u book.Update) {
	if w.metrics == nil {
		return
	}
	w.metrics.UpdatesProcessed.WithLabelValues(u.Venue.String(), w.side.String()).Inc()
	w.metrics.BookLevels.WithLabelValues(w.side.String()).Set(float64(w.sideBook.LevelCount()))
}
