package router

import (
	"testing"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_BuyConsumesAsksLowestFirst(t *testing.T) {
	levels := []SnapshotLevel{
		{Venue: venue.Kraken, Price: 2001, Volume: 10},
		{Venue: venue.Binance, Price: 2000, Volume: 1},
		{Venue: venue.Coinbase, Price: 2000, Volume: 2},
	}

	order, err := Route(RouteRequest{Side: book.Buy, Target: 5}, levels)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(1), order.PerVenue[venue.Binance])
	assert.Equal(t, book.VolumeUnits(2), order.PerVenue[venue.Coinbase])
	assert.Equal(t, book.VolumeUnits(2), order.PerVenue[venue.Kraken])
}

func TestRoute_SellConsumesBidsHighestFirst(t *testing.T) {
	levels := []SnapshotLevel{
		{Venue: venue.Binance, Price: 1030, Volume: 5},
		{Venue: venue.Kraken, Price: 1050, Volume: 2},
		{Venue: venue.Coinbase, Price: 1040, Volume: 3},
	}

	order, err := Route(RouteRequest{Side: book.Sell, Target: 4}, levels)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(2), order.PerVenue[venue.Kraken])
	assert.Equal(t, book.VolumeUnits(2), order.PerVenue[venue.Coinbase])
	_, hasBinance := order.PerVenue[venue.Binance]
	assert.False(t, hasBinance)
}

func TestRoute_InsufficientLiquidity(t *testing.T) {
	levels := []SnapshotLevel{
		{Venue: venue.Binance, Price: 2000, Volume: 1},
	}
	_, err := Route(RouteRequest{Side: book.Buy, Target: 5}, levels)
	assert.ErrorIs(t, err, book.ErrInsufficientLiquidity)
}

func TestRoute_ZeroVolumeLevelsIgnored(t *testing.T) {
	levels := []SnapshotLevel{
		{Venue: venue.Binance, Price: 2000, Volume: 0},
		{Venue: venue.Kraken, Price: 2001, Volume: 5},
	}
	order, err := Route(RouteRequest{Side: book.Buy, Target: 5}, levels)
	require.NoError(t, err)
	assert.Equal(t, book.VolumeUnits(5), order.PerVenue[venue.Kraken])
	_, hasBinance := order.PerVenue[venue.Binance]
	assert.False(t, hasBinance)
}

func TestRoute_AllocationSumsToTarget(t *testing.T) {
	levels := []SnapshotLevel{
		{Venue: venue.Binance, Price: 2000, Volume: 1},
		{Venue: venue.Kraken, Price: 2000, Volume: 2},
		{Venue: venue.Coinbase, Price: 2001, Volume: 10},
	}
	order, err := Route(RouteRequest{Side: book.Buy, Target: 5}, levels)
	require.NoError(t, err)

	var sum book.VolumeUnits
	for _, v := range order.PerVenue {
		sum += v
	}
	assert.Equal(t, book.VolumeUnits(5), sum)
}
