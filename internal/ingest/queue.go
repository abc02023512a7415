// Package ingest receives venue adapter callbacks, normalizes symbols and
// enqueues updates into bounded drop-oldest queues for the processing stage.
package ingest

import "sync"

// QueueStats is a point-in-time snapshot of one queue's counters.
type QueueStats struct {
	Received uint64
	Dropped  uint64
	Depth    int
	Capacity int
}

// Queue is a bounded FIFO with drop-oldest overflow. Push never blocks and
// never fails: when the queue is full the oldest entry is evicted to make
// room for the new one. Safe for concurrent producers and consumers.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int
	count    int
	received uint64
	dropped  uint64
}

// NewQueue creates a queue with the given fixed capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Push appends item, evicting the oldest entry if the queue is full.
// It reports whether an eviction happened.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.received++

	evicted := false
	if q.count == len(q.buf) {
		// Drop the oldest entry. Newest data wins.
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
		evicted = true
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++

	return evicted
}

// TryPop removes and returns the oldest entry without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, false
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--

	return item, true
}

// Len returns the current queue depth.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns a snapshot of the queue's counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Received: q.received,
		Dropped:  q.dropped,
		Depth:    q.count,
		Capacity: len(q.buf),
	}
}
