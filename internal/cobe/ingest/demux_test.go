package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemultiplexer_SplitsBySide(t *testing.T) {
	in := make(chan venue.Update, 4)
	buy := make(chan book.Update, 4)
	sell := make(chan book.Update, 4)

	d := New(in, buy, sell)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	in <- venue.Update{Venue: venue.Binance, Side: venue.Buy, Price: 1000, Volume: 5}
	in <- venue.Update{Venue: venue.Binance, Side: venue.Sell, Price: 2000, Volume: 3}

	select {
	case u := <-buy:
		assert.Equal(t, book.Buy, u.Side)
		assert.Equal(t, book.PriceTick(1000), u.Price)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for buy update")
	}

	select {
	case u := <-sell:
		assert.Equal(t, book.Sell, u.Side)
		assert.Equal(t, book.PriceTick(2000), u.Price)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sell update")
	}
}

func TestDemultiplexer_ClosesWorkerChannelsOnDrain(t *testing.T) {
	in := make(chan venue.Update)
	buy := make(chan book.Update)
	sell := make(chan book.Update)

	d := New(in, buy, sell)
	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("demultiplexer did not exit after ingest channel closed")
	}

	_, ok := <-buy
	assert.False(t, ok, "buy worker channel should be closed on drain")
	_, ok = <-sell
	assert.False(t, ok, "sell worker channel should be closed on drain")
}

func TestDemultiplexer_CancelStopsPromptly(t *testing.T) {
	in := make(chan venue.Update)
	buy := make(chan book.Update)
	sell := make(chan book.Update)

	d := New(in, buy, sell)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("demultiplexer did not exit on context cancellation")
	}
	require.True(t, true)
}
