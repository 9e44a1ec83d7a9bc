package sweep

import (
	"testing"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_S1_SingleVenueBuy(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1050, Volume: 2})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1040, Volume: 3})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1030, Volume: 5})

	res, err := Sweep(b, 4)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(4), res.Filled)
	assert.Equal(t, book.PriceTick(1045), res.VWAPTicks)
	assert.Equal(t, map[venue.ID]book.VolumeUnits{venue.Binance: 4}, res.PerVenue)
}

func TestSweep_S2_MultiVenueTieFIFO(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 5})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1000, Volume: 5})

	res, err := Sweep(b, 7)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(7), res.Filled)
	assert.Equal(t, book.PriceTick(1000), res.VWAPTicks)
	assert.Equal(t, map[venue.ID]book.VolumeUnits{venue.Binance: 5, venue.Kraken: 2}, res.PerVenue)
}

func TestSweep_S3_ZeroVolumeDeletionInsufficientLiquidity(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 5})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1000, Volume: 5})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 0})

	_, err := Sweep(b, 6)
	assert.ErrorIs(t, err, book.ErrInsufficientLiquidity)
}

func TestSweep_S4_CrossVenueMergeSell(t *testing.T) {
	b := book.NewSideBook(book.Sell)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Sell, Price: 2000, Volume: 1})
	b.Apply(book.Update{Venue: venue.Coinbase, Side: book.Sell, Price: 2001, Volume: 10})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Sell, Price: 2000, Volume: 2})

	res, err := Sweep(b, 5)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(5), res.Filled)
	assert.Equal(t, book.PriceTick(2000), res.VWAPTicks) // (2000*3+2001*2)/5 = 2000.4, truncated
	assert.Equal(t, map[venue.ID]book.VolumeUnits{
		venue.Binance:  1,
		venue.Kraken:   2,
		venue.Coinbase: 2,
	}, res.PerVenue)
}

func TestSweep_S5_ReplacementSemantics(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 3})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1000, Volume: 10})

	res, err := Sweep(b, 8)
	require.NoError(t, err)
	assert.Equal(t, book.PriceTick(1000), res.VWAPTicks)
	assert.Equal(t, map[venue.ID]book.VolumeUnits{venue.Binance: 8}, res.PerVenue)
}

func TestSweep_InsufficientLiquidityOnEmptyBook(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	_, err := Sweep(b, 1)
	assert.ErrorIs(t, err, book.ErrInsufficientLiquidity)
}

func TestSweep_Conservation(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1010, Volume: 3})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1005, Volume: 7})

	res, err := Sweep(b, 6)
	require.NoError(t, err)

	var sum book.VolumeUnits
	for _, v := range res.PerVenue {
		sum += v
	}
	assert.Equal(t, res.Filled, sum)
	assert.LessOrEqual(t, int64(res.Filled), int64(6))
}

func TestSweep_Monotonicity(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1010, Volume: 3})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1005, Volume: 7})

	small, err := Sweep(b, 2)
	require.NoError(t, err)
	big, err := Sweep(b, 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int64(big.Filled), int64(small.Filled))
}

func TestSweep_VWAPBoundsBuy(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1050, Volume: 2})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1040, Volume: 3})
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1030, Volume: 5})

	res, err := Sweep(b, 8)
	require.NoError(t, err)
	assert.LessOrEqual(t, int64(res.VWAPTicks), int64(1050))
	assert.GreaterOrEqual(t, int64(res.VWAPTicks), int64(1030))
}

func TestSweep_ReadOnly(t *testing.T) {
	b := book.NewSideBook(book.Buy)
	b.Apply(book.Update{Venue: venue.Binance, Side: book.Buy, Price: 1010, Volume: 3})
	b.Apply(book.Update{Venue: venue.Kraken, Side: book.Buy, Price: 1005, Volume: 7})

	before := snapshot(b)
	_, err := Sweep(b, 6)
	require.NoError(t, err)
	after := snapshot(b)
	assert.Equal(t, before, after)
}

func snapshot(b *book.SideBook) []book.Entry {
	var all []book.Entry
	b.Walk(func(price book.PriceTick, entries []book.Entry) bool {
		all = append(all, entries...)
		return true
	})
	return all
}
