package book

import "sort"

// SideBook is an ordered mapping from PriceTick to a FIFO queue of
// (VenueId, VolumeUnits) entries, where each venue appears at most once
// per price level. It is owned exclusively by one worker task; nothing
// here is safe for concurrent mutation — that guarantee lives in the
// worker, not in this type.
//
// Ordering is natural ascending on PriceTick, kept as a sorted slice of
// keys alongside the level map — a flat structure rather than a tree,
// which is fine while the per-level venue count stays small.
type SideBook struct {
	side   Side
	prices []PriceTick
	levels map[PriceTick][]Entry
}

// NewSideBook creates an empty side book for the given side.
func NewSideBook(side Side) *SideBook {
	return &SideBook{
		side:   side,
		levels: make(map[PriceTick][]Entry),
	}
}

// Side reports which side this book holds.
func (b *SideBook) Side() Side { return b.side }

// LevelCount reports the number of distinct price levels currently resting.
func (b *SideBook) LevelCount() int { return len(b.prices) }

// Apply mutates the book:
//  1. volume > 0: replace the venue's entry at price, or append it.
//  2. volume == 0: remove the venue's entry at price, or no-op.
//  3. if the price's queue becomes empty, remove the price key.
func (b *SideBook) Apply(u Update) {
	queue, exists := b.levels[u.Price]

	if u.Volume > 0 {
		if exists {
			for i := range queue {
				if queue[i].Venue == u.Venue {
					queue[i].Volume = u.Volume
					b.levels[u.Price] = queue
					return
				}
			}
			b.levels[u.Price] = append(queue, Entry{Venue: u.Venue, Volume: u.Volume})
			return
		}
		b.levels[u.Price] = []Entry{{Venue: u.Venue, Volume: u.Volume}}
		b.insertPrice(u.Price)
		return
	}

	// u.Volume == 0: deletion.
	if !exists {
		return
	}
	for i := range queue {
		if queue[i].Venue == u.Venue {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(b.levels, u.Price)
		b.removePrice(u.Price)
		return
	}
	b.levels[u.Price] = queue
}

func (b *SideBook) insertPrice(p PriceTick) {
	i := sort.Search(len(b.prices), func(i int) bool { return b.prices[i] >= p })
	b.prices = append(b.prices, 0)
	copy(b.prices[i+1:], b.prices[i:])
	b.prices[i] = p
}

func (b *SideBook) removePrice(p PriceTick) {
	i := sort.Search(len(b.prices), func(i int) bool { return b.prices[i] >= p })
	if i < len(b.prices) && b.prices[i] == p {
		b.prices = append(b.prices[:i], b.prices[i+1:]...)
	}
}

// Walk visits price levels in the side-appropriate sweep order — best
// bids first (descending) for Buy, best asks first (ascending) for
// Sell — calling visit with each price and its FIFO queue in arrival
// order. Walk stops early when visit returns false. It never mutates
// the book (the sweep's read-only-book property).
func (b *SideBook) Walk(visit func(price PriceTick, entries []Entry) bool) {
	if b.side == Buy {
		for i := len(b.prices) - 1; i >= 0; i-- {
			if !visit(b.prices[i], b.levels[b.prices[i]]) {
				return
			}
		}
		return
	}
	for _, p := range b.prices {
		if !visit(p, b.levels[p]) {
			return
		}
	}
}

// BestPrice returns the best price in the book (highest for Buy, lowest
// for Sell) and whether the book is non-empty.
func (b *SideBook) BestPrice() (PriceTick, bool) {
	if len(b.prices) == 0 {
		return 0, false
	}
	if b.side == Buy {
		return b.prices[len(b.prices)-1], true
	}
	return b.prices[0], true
}
