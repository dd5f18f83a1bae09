package queue

import (
	"sync"

	"github.com/ghalamif/PowerProbe/internal/domain"
	"github.com/ghalamif/PowerProbe/internal/ports"
)

// MemQueue is a bounded FIFO of WAL-backed samples stored in a ring.
type MemQueue struct {
	mu   sync.Mutex
	ring []ports.QueuedSample
	head int
	size int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemQueue{ring: make([]ports.QueuedSample, capacity)}
}

func (q *MemQueue) Enqueue(id ports.WALEntryID, s *domain.Sample) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.ring) {
		return false
	}
	q.ring[(q.head+q.size)%len(q.ring)] = ports.QueuedSample{ID: id, Sample: s}
	q.size++
	return true
}

// DequeueBatch removes up to max samples in arrival order; max <= 0 drains
// the queue.
func (q *MemQueue) DequeueBatch(max int) []ports.QueuedSample {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil
	}
	if max <= 0 || max > q.size {
		max = q.size
	}
	out := make([]ports.QueuedSample, max)
	for i := range out {
		idx := (q.head + i) % len(q.ring)
		out[i] = q.ring[idx]
		q.ring[idx] = ports.QueuedSample{}
	}
	q.head = (q.head + max) % len(q.ring)
	q.size -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *MemQueue) Cap() int { return len(q.ring) }

var _ ports.SampleQueue = (*MemQueue)(nil)
