package ingest

import (
	"errors"
	"sync"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

var (
	// ErrQueueClosed is returned when trying to enqueue to a closed queue.
	// Enqueueing after shutdown is a caller bug, not a transient condition.
	ErrQueueClosed = errors.New("ingestion queue is closed")
)

// Queue is an unbounded, multi-producer queue of operation records consumed
// by a single drainer. Producers only append; the consumer empties the queue
// by atomically swapping the live slice for an empty one, so no record can
// ever be observed by two draining paths.
type Queue struct {
	mu      sync.Mutex
	records []*core.Record
	closed  bool
	notify  chan struct{}
}

// NewQueue creates an empty ingestion queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends a record to the queue. It never blocks and preserves
// arrival order among records that have not yet been drained.
// Returns ErrQueueClosed after Close.
func (q *Queue) Enqueue(record *core.Record) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.records = append(q.records, record)
	q.mu.Unlock()

	// Wake the consumer. The channel is buffered with capacity 1, so a
	// pending wake-up already covers this record and the send can be dropped.
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// DrainAll atomically replaces the live queue with a new empty one and
// returns the full prior contents in arrival order. This is the only way
// the queue is ever emptied.
func (q *Queue) DrainAll() []*core.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	records := q.records
	q.records = nil
	return records
}

// Notify returns the channel that receives a wake-up after each enqueue.
// A receive on it means at least one record may be available; the consumer
// must still handle an empty drain.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Len returns the current number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Close marks the queue closed. Further enqueues fail with ErrQueueClosed;
// records already queued remain drainable.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
