package hnsw

import (
	"container/heap"

	"github.com/hupe1980/vektor/metric"
)

// Compile time check to ensure priorityQueue satisfies the heap interface.
var _ heap.Interface = (*priorityQueue)(nil)

// queueItem is a graph slot together with its distance to the current query.
type queueItem struct {
	slot uint32
	dist metric.Unit
}

// priorityQueue is a min- or max-heap of queueItems.
//
// Ties on distance are broken by slot index so that heap order, and therefore
// search results, are deterministic across runs.
type priorityQueue struct {
	desc  bool // false: nearest on top (min-heap), true: farthest on top
	items []queueItem
}

func newMinQueue(capacity int) *priorityQueue {
	return &priorityQueue{items: make([]queueItem, 0, capacity)}
}

func newMaxQueue(capacity int) *priorityQueue {
	return &priorityQueue{desc: true, items: make([]queueItem, 0, capacity)}
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if pq.desc {
		if a.dist != b.dist {
			return a.dist > b.dist
		}
		return a.slot > b.slot
	}
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.slot < b.slot
}

func (pq *priorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *priorityQueue) Push(x any) {
	pq.items = append(pq.items, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	pq.items = old[:n-1]
	return item
}

// pushItem adds an item to the queue.
func (pq *priorityQueue) pushItem(item queueItem) {
	heap.Push(pq, item)
}

// popItem removes and returns the top item of the queue.
func (pq *priorityQueue) popItem() (queueItem, bool) {
	if len(pq.items) == 0 {
		return queueItem{}, false
	}
	return heap.Pop(pq).(queueItem), true
}

// topItem returns the top item of the queue without removing it.
func (pq *priorityQueue) topItem() (queueItem, bool) {
	if len(pq.items) == 0 {
		return queueItem{}, false
	}
	return pq.items[0], true
}
