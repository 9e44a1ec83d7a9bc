// Package sweep implements the pure volume-sweep algorithm that backs
// the streaming VWAP quote path, generalized over an arbitrary venue
// set. The REST snapshot router (internal/cobe/router) does not call
// it; it runs its own heap-driven allocation loop.
package sweep

import (
	"math/big"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
)

// Result is the outcome of a successful sweep: the filled volume, the
// volume-weighted average price in ticks, and how much of the fill
// landed on each venue.
type Result struct {
	Filled     book.VolumeUnits
	VWAPTicks  book.PriceTick
	PerVenue   map[venue.ID]book.VolumeUnits
}

// Sweep walks b in its side-appropriate order, consuming liquidity
// until target is met or the book is exhausted. It never mutates b.
//
// A 128-bit accumulator (math/big.Int) holds the running
// price*volume sum: PriceTick and VolumeUnits are each int64, and
// their product can exceed 63 bits of magnitude well within realistic
// book sizes, so a plain int64 accumulator could silently overflow.
func Sweep(b *book.SideBook, target book.VolumeUnits) (Result, error) {
	if target <= 0 {
		return Result{}, book.ErrInsufficientLiquidity
	}

	var filled book.VolumeUnits
	weightedSum := new(big.Int)
	perVenue := make(map[venue.ID]book.VolumeUnits)

	b.Walk(func(price book.PriceTick, entries []book.Entry) bool {
		for _, e := range entries {
			remaining := target - filled
			take := e.Volume
			if take > remaining {
				take = remaining
			}
			if take <= 0 {
				return false
			}

			filled += take
			perVenue[e.Venue] += take

			term := big.NewInt(int64(price))
			term.Mul(term, big.NewInt(int64(take)))
			weightedSum.Add(weightedSum, term)

			if filled >= target {
				return false
			}
		}
		return filled < target
	})

	if filled < target {
		return Result{}, book.ErrInsufficientLiquidity
	}

	vwap := new(big.Int).Div(weightedSum, big.NewInt(int64(filled)))

	return Result{
		Filled:    filled,
		VWAPTicks: book.PriceTick(vwap.Int64()),
		PerVenue:  perVenue,
	}, nil
}
