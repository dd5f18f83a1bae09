package queue

import (
	"testing"

	"github.com/ghalamif/PowerProbe/internal/domain"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	s1 := &domain.Sample{Seq: 1}
	s2 := &domain.Sample{Seq: 2}

	if !q.Enqueue(1, s1) || !q.Enqueue(2, s2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].ID != 1 || batch[0].Sample.Seq != 1 {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(1) != nil {
		t.Fatalf("empty queue should return nil batch")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	sample := &domain.Sample{Seq: 9}

	if !q.Enqueue(1, sample) || !q.Enqueue(2, sample) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(3, sample) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(4, sample) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
}

func TestMemQueueWrapsAround(t *testing.T) {
	q := NewMemQueue(3)
	var next uint64 = 1
	push := func(n int) {
		for i := 0; i < n; i++ {
			if !q.Enqueue(0, &domain.Sample{Seq: next}) {
				t.Fatalf("enqueue %d failed", next)
			}
			next++
		}
	}

	push(3)
	q.DequeueBatch(2)
	push(2)

	batch := q.DequeueBatch(0)
	if len(batch) != 3 {
		t.Fatalf("expected drain of 3, got %d", len(batch))
	}
	for i, item := range batch {
		if want := uint64(i + 3); item.Sample.Seq != want {
			t.Fatalf("position %d: expected seq %d, got %d", i, want, item.Sample.Seq)
		}
	}
	if q.Len() != 0 || q.Cap() != 3 {
		t.Fatalf("unexpected len/cap %d/%d", q.Len(), q.Cap())
	}
}
