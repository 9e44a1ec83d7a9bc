package router

import "container/heap"

// levelHeap is a container/heap.Interface over snapshot levels ordered
// by an injected comparator, so the same type serves both the max-heap
// (Sell requests, consuming bids) and min-heap (Buy requests, consuming
// asks) cases without duplicating heap plumbing.
type levelHeap struct {
	levels []SnapshotLevel
	less   func(a, b SnapshotLevel) bool
}

func (h levelHeap) Len() int { return len(h.levels) }

func (h levelHeap) Less(i, j int) bool { return h.less(h.levels[i], h.levels[j]) }

func (h levelHeap) Swap(i, j int) { h.levels[i], h.levels[j] = h.levels[j], h.levels[i] }

func (h *levelHeap) Push(x any) {
	h.levels = append(h.levels, x.(SnapshotLevel))
}

func (h *levelHeap) Pop() any {
	old := h.levels
	n := len(old)
	item := old[n-1]
	h.levels = old[:n-1]
	return item
}

var _ heap.Interface = (*levelHeap)(nil)
