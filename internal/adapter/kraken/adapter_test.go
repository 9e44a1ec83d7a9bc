package kraken

import (
	"context"
	"testing"
	"time"

	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookSnapshot = `{"channel":"book","type":"snapshot","data":[{"symbol":"BTC/USD","bids":[{"price":100.0,"qty":1.0},{"price":99.0,"qty":2.0}],"asks":[{"price":101.0,"qty":1.5}]}]}`

func TestAdapter_FlushLastBookEmitsZeroVolumeForTrackedLevels(t *testing.T) {
	a := New(Config{Symbol: "BTC/USD"}, nil)
	out := make(chan venue.Update, 16)
	ctx := context.Background()

	a.handleFrame(ctx, []byte(bookSnapshot), out)
	require.Len(t, out, 3)
	for i := 0; i < 3; i++ {
		<-out
	}
	require.Len(t, a.levels, 3)

	a.flushLastBook(ctx, out)
	require.Empty(t, a.levels)
	require.Len(t, out, 3)

	for i := 0; i < 3; i++ {
		u := <-out
		assert.EqualValues(t, 0, u.Volume)
		assert.Equal(t, venue.Kraken, u.Venue)
	}
}

func TestAdapter_FlushLastBookDoesNotHangPastContextCancellation(t *testing.T) {
	a := New(Config{Symbol: "BTC/USD"}, nil)
	buffered := make(chan venue.Update, 16)
	a.handleFrame(context.Background(), []byte(bookSnapshot), buffered)
	require.Len(t, a.levels, 3)
	for i := 0; i < 3; i++ {
		<-buffered
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	unbuffered := make(chan venue.Update) // nothing ever reads from this
	done := make(chan struct{})
	go func() {
		a.flushLastBook(canceled, unbuffered)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flushLastBook blocked past context cancellation")
	}
}
