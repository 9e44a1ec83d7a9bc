package router

import (
	"container/heap"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/venue"
)

// Route allocates req.Target across levels using a priority queue,
// popping the best price each iteration and taking as much of that
// level's volume as is still needed.
//
// req.Side names the side of the request, not the book being consumed:
// a Sell request (the caller wants to sell) consumes the best resting
// bids, highest price first, so levels is ordered as a max-heap; a Buy
// request consumes the best resting asks, lowest price first, a
// min-heap. This mirrors the buy-book/sell-book traversal direction in
// internal/cobe/book, just driven by a heap instead of the sorted
// price slice since snapshot levels arrive unsorted and are not kept
// around between calls.
func Route(req RouteRequest, levels []SnapshotLevel) (RoutedOrder, error) {
	if req.Target <= 0 {
		return RoutedOrder{}, book.ErrInsufficientLiquidity
	}

	var less func(a, b SnapshotLevel) bool
	if req.Side == book.Sell {
		less = func(a, b SnapshotLevel) bool { return a.Price > b.Price }
	} else {
		less = func(a, b SnapshotLevel) bool { return a.Price < b.Price }
	}

	h := &levelHeap{less: less}
	for _, lvl := range levels {
		if lvl.Volume > 0 {
			h.levels = append(h.levels, lvl)
		}
	}
	heap.Init(h)

	var filled book.VolumeUnits
	perVenue := make(map[venue.ID]book.VolumeUnits)

	for h.Len() > 0 && filled < req.Target {
		lvl := heap.Pop(h).(SnapshotLevel)
		remaining := req.Target - filled
		take := lvl.Volume
		if take > remaining {
			take = remaining
		}
		filled += take
		perVenue[lvl.Venue] += take
	}

	if filled < req.Target {
		return RoutedOrder{}, book.ErrInsufficientLiquidity
	}

	return RoutedOrder{PerVenue: perVenue}, nil
}
