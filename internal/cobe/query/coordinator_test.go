package query

import (
	"context"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/worker"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*Coordinator, func()) {
	t.Helper()
	buyUpdates := make(chan book.Update, 16)
	buyQueries := make(chan worker.QuoteRequest, 16)
	sellUpdates := make(chan book.Update, 16)
	sellQueries := make(chan worker.QuoteRequest, 16)

	buyWorker := worker.New(book.Buy, buyUpdates, buyQueries, nil, nil)
	sellWorker := worker.New(book.Sell, sellUpdates, sellQueries, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go buyWorker.Run(ctx)
	go sellWorker.Run(ctx)

	buyUpdates <- book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 10_000_000}
	sellUpdates <- book.Update{Venue: venue.Binance, Side: book.Sell, Price: 2000, Volume: 10_000_000}
	time.Sleep(10 * time.Millisecond)

	c := New(buyQueries, sellQueries, nil)
	return c, cancel
}

func TestCoordinator_QuoteBuySide(t *testing.T) {
	c, cancel := newTestCoordinator(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	resp, err := c.Quote(ctx, QuoteRequest{Side: book.Buy, Volume: 1.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, resp.TotalVolume, 1e-9)
	assert.InDelta(t, 10.0, resp.VWAP, 1e-9)
}

func TestCoordinator_QuoteInsufficientLiquidity(t *testing.T) {
	c, cancel := newTestCoordinator(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	_, err := c.Quote(ctx, QuoteRequest{Side: book.Buy, Volume: 100.0})
	assert.ErrorIs(t, err, book.ErrInsufficientLiquidity)
}

func TestCoordinator_StopIsIdempotentAndClosesBook(t *testing.T) {
	c, cancel := newTestCoordinator(t)
	defer cancel()

	c.Stop()
	c.Stop() // must not panic

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	_, err := c.Quote(ctx, QuoteRequest{Side: book.Buy, Volume: 1.0})
	assert.ErrorIs(t, err, book.ErrClosedBook)
}
