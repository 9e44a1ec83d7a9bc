// Package query implements the Query Coordinator: the thin public
// façade callers use to issue QuoteRequests without knowing which
// side-book worker owns the answer, as a synchronous request/reply
// round trip over each worker's query channel.
package query

import (
	"context"
	"sync/atomic"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/worker"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

// QuoteRequest is the public, floating-point-facing request shape; the
// coordinator converts to and from the worker's fixed-point types at
// this boundary.
type QuoteRequest struct {
	Side   book.Side
	Volume float64
}

// QuoteResponse is the public, floating-point-facing response shape.
type QuoteResponse struct {
	Side        book.Side
	TotalVolume float64
	VWAP        float64
	PerVenue    map[venue.ID]float64
}

// Coordinator dispatches QuoteRequests to the correct side worker and
// waits for the reply. It holds no book state of its own.
type Coordinator struct {
	buyQueries  chan worker.QuoteRequest
	sellQueries chan worker.QuoteRequest
	stopped     atomic.Bool
	metrics     *observability.MetricsProvider
}

// New wires a coordinator to the two workers' query channels. The
// coordinator owns these channels' sending end and closes them on Stop.
// metrics may be nil, in which case query counters are simply not recorded.
func New(buyQueries, sellQueries chan worker.QuoteRequest, metrics *observability.MetricsProvider) *Coordinator {
	return &Coordinator{buyQueries: buyQueries, sellQueries: sellQueries, metrics: metrics}
}

// Quote dispatches req to the worker for req.Side and blocks for its
// reply, or until ctx is canceled. The core itself imposes no timeout;
// ctx is the caller's own cancellation, not a core one.
func (c *Coordinator) Quote(ctx context.Context, req QuoteRequest) (QuoteResponse, error) {
	if c.stopped.Load() {
		return QuoteResponse{}, book.ErrClosedBook
	}

	queries := c.buyQueries
	if req.Side == book.Sell {
		queries = c.sellQueries
	}

	reply := make(chan worker.QuoteResult, 1)
	wreq := worker.QuoteRequest{
		Volume: book.VolumeUnits(venue.ParseFloatVolume(req.Volume)),
		Reply:  reply,
	}

	if err := send(queries, wreq); err != nil {
		return QuoteResponse{}, err
	}

	select {
	case res := <-reply:
		c.recordOutcome(req.Side, res.Err)
		if res.Err != nil {
			return QuoteResponse{}, res.Err
		}
		return toResponse(req.Side, res), nil
	case <-ctx.Done():
		return QuoteResponse{}, ctx.Err()
	}
}

func (c *Coordinator) recordOutcome(side book.Side, err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case err == book.ErrInsufficientLiquidity:
		c.metrics.InsufficientLiquidity.WithLabelValues(side.String()).Inc()
		c.metrics.QueriesServed.WithLabelValues(side.String(), "insufficient_liquidity").Inc()
	case err != nil:
		c.metrics.QueriesServed.WithLabelValues(side.String(), "error").Inc()
	default:
		c.metrics.QueriesServed.WithLabelValues(side.String(), "ok").Inc()
	}
}

// Stop signals shutdown: the side workers see their query channels
// close and drain toward Stopped once their update channels also
// close. Idempotent via a CompareAndSwap-guarded flag.
func (c *Coordinator) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.buyQueries)
		close(c.sellQueries)
	}
}

// send delivers req to queries, turning a send-on-closed-channel panic
// into ClosedBook: Stop() races with in-flight Quote() calls by design,
// and Go has no other way to detect a closed channel from the sending
// side.
func send(queries chan worker.QuoteRequest, req worker.QuoteRequest) (err error) {
	defer func() {
		if recover() != nil {
			err = book.ErrClosedBook
		}
	}()
	queries <- req
	return nil
}

func toResponse(side book.Side, res worker.QuoteResult) QuoteResponse {
	perVenue := make(map[venue.ID]float64, len(res.PerVenue))
	for v, units := range res.PerVenue {
		perVenue[v] = venue.UnitsToQty(int64(units))
	}
	return QuoteResponse{
		Side:        side,
		TotalVolume: venue.UnitsToQty(int64(res.Filled)),
		VWAP:        venue.TicksToUSD(int64(res.VWAP)),
		PerVenue:    perVenue,
	}
}
