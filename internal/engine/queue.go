package engine

import (
	"container/heap"

	"github.com/roach88/kwsearch/internal/block"
)

// entry is one queued block stamped with its push sequence.
type entry struct {
	block *block.Block
	seq   int64
}

// blockQueue is a max-priority queue of blocks.
//
// Order: score descending, then BSCORE before USCORE, then push order.
// Only the engine loop touches it.
type blockQueue struct {
	entries entryHeap
	seq     int64
}

func newBlockQueue() *blockQueue {
	return &blockQueue{}
}

// Push enqueues b at its current state.
func (q *blockQueue) Push(b *block.Block) {
	q.seq++
	heap.Push(&q.entries, entry{block: b, seq: q.seq})
}

// Pop removes the best block. Returns nil when empty.
func (q *blockQueue) Pop() *block.Block {
	if len(q.entries) == 0 {
		return nil
	}
	return heap.Pop(&q.entries).(entry).block
}

// Peek returns the best block without removing it.
func (q *blockQueue) Peek() *block.Block {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0].block
}

// Len returns the number of queued blocks.
func (q *blockQueue) Len() int {
	return len(q.entries)
}

// entryHeap implements heap.Interface.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.block.State.Value != b.block.State.Value {
		return a.block.State.Value > b.block.State.Value
	}
	if a.block.State.Kind != b.block.State.Kind {
		return a.block.State.Kind == block.BSCORE
	}
	return a.seq < b.seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}
