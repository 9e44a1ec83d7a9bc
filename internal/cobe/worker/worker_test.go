package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(side book.Side) (*Worker, chan book.Update, chan QuoteRequest) {
	updates := make(chan book.Update, 16)
	queries := make(chan QuoteRequest, 16)
	return New(side, updates, queries, nil, nil), updates, queries
}

func TestWorker_AppliesUpdatesThenAnswersQuery(t *testing.T) {
	w, updates, queries := newTestWorker(book.Buy)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	updates <- book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 5}
	updates <- book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1000, Volume: 5}

	reply := make(chan QuoteResult, 1)
	queries <- QuoteRequest{Volume: 7, Reply: reply}

	select {
	case res := <-reply:
		require.NoError(t, res.Err)
		assert.Equal(t, book.VolumeUnits(7), res.Filled)
		assert.Equal(t, book.VolumeUnits(5), res.PerVenue[venue.Binance])
		assert.Equal(t, book.VolumeUnits(2), res.PerVenue[venue.Kraken])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for quote reply")
	}
}

func TestWorker_InsufficientLiquidityReply(t *testing.T) {
	w, updates, queries := newTestWorker(book.Buy)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	updates <- book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 1}

	reply := make(chan QuoteResult, 1)
	queries <- QuoteRequest{Volume: 5, Reply: reply}

	select {
	case res := <-reply:
		assert.ErrorIs(t, res.Err, book.ErrInsufficientLiquidity)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for quote reply")
	}
}

func TestWorker_ExitsWhenBothChannelsClosed(t *testing.T) {
	w, updates, queries := newTestWorker(book.Buy)
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	close(updates)
	close(queries)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after both channels closed")
	}
}

func TestWorker_DroppedReplyChannelIsBenign(t *testing.T) {
	w, updates, queries := newTestWorker(book.Buy)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(ctx)

	updates <- book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 5}

	reply := make(chan QuoteResult, 1)
	queries <- QuoteRequest{Volume: 1, Reply: reply}
	// Never read from reply: the worker's buffered send must not block
	// subsequent processing.

	reply2 := make(chan QuoteResult, 1)
	queries <- QuoteRequest{Volume: 1, Reply: reply2}

	select {
	case res := <-reply2:
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("worker stalled after a dropped reply channel")
	}
}
