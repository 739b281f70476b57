// Package txnbatcher is the write-batching and transaction-coalescing core
// of an embedded key-value cache backed by a transactional SQL store.
//
// Callers enqueue point operations (insert, invalidate, select, bulk scans,
// maintenance commands) from any number of goroutines; a single background
// worker drains them, coalesces redundant work and applies each batch inside
// one rate-limited store transaction. Per-call transactions are the dominant
// cost of embedded-store-backed caches, and batching amortizes them away.
//
// Typical usage:
//
//	queue, _ := txnbatcher.NewQueue(txnbatcher.DefaultConfig())
//	defer queue.Close()
//
//	lifecycle, _ := queue.Start(ctx)
//	defer lifecycle.Stop()
//
//	ack, _ := queue.Insert([]txnbatcher.Element{{Key: "a", Payload: data}})
//	_ = ack.Wait(ctx)
package txnbatcher

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
	"github.com/rzpsarthak13/txn-batcher/internal/executor"
	"github.com/rzpsarthak13/txn-batcher/internal/ingest"
	"github.com/rzpsarthak13/txn-batcher/internal/store"
)

var (
	// ErrQueueClosed is returned when operating on a closed queue.
	ErrQueueClosed = errors.New("batching queue is closed")
)

// Element is a single cache entry: key, type tag, payload and expiry.
type Element = core.Element

// Queue accepts concurrent cache operations and executes them against the
// SQL store in large, rate-limited transactions. Every operation returns a
// handle that resolves once the transaction carrying it commits.
//
// Exactly one worker goroutine consumes the queue; public operations only
// enqueue and never touch the store. The worker loop and Flush share one
// exclusive drain lock, so at most one store transaction is ever in flight.
type Queue struct {
	mu        sync.Mutex
	lifecycle *Lifecycle
	closed    bool

	ingest   *ingest.Queue
	executor *executor.Executor
	store    core.Store
	config   *Config

	// drainMu is the exclusive drain lock. Whoever holds it owns the full
	// drain-coalesce-execute cycle.
	drainMu sync.Mutex

	limiter *rate.Limiter
}

// NewQueue creates a batching queue over the store backend selected by
// config. A nil config uses DefaultConfig.
func NewQueue(config *Config) (*Queue, error) {
	if config == nil {
		config = DefaultConfig()
	}

	st, err := store.New(config.storeConfig())
	if err != nil {
		return nil, err
	}
	return newQueue(st, config), nil
}

// newQueue wires a queue over an already-constructed store.
func newQueue(st core.Store, config *Config) *Queue {
	if config.Batch.ChunkSize <= 0 {
		config.Batch.ChunkSize = DefaultConfig().Batch.ChunkSize
	}

	var limiter *rate.Limiter
	if config.Batch.DrainRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.Batch.DrainRate), 1)
	}

	return &Queue{
		ingest:   ingest.NewQueue(),
		executor: executor.New(st),
		store:    st,
		config:   config,
		limiter:  limiter,
	}
}

// enqueue hands a record to the ingestion queue, mapping the internal
// closed-queue error onto the public sentinel.
func (q *Queue) enqueue(r *core.Record) error {
	if err := q.ingest.Enqueue(r); err != nil {
		return ErrQueueClosed
	}
	return nil
}

// Select queues a read of the given keys. Missing keys are absent from the
// result, never an error.
func (q *Queue) Select(keys []string) (*Future[[]Element], error) {
	r := core.NewSelect(keys)
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newFuture[[]Element](r.Completion), nil
}

// SelectByType queues a read of every entry whose type tag is in types.
func (q *Queue) SelectByType(types []string) (*Future[[]Element], error) {
	r := core.NewSelectByType(types)
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newFuture[[]Element](r.Completion), nil
}

// Insert queues an upsert of the given elements.
func (q *Queue) Insert(elements []Element) (*Ack, error) {
	r := core.NewInsert(elements)
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newAck(r.Completion), nil
}

// Invalidate queues a deletion of the given keys.
func (q *Queue) Invalidate(keys []string) (*Ack, error) {
	r := core.NewInvalidateKeys(keys)
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newAck(r.Completion), nil
}

// InvalidateByType queues a deletion of every entry whose type tag is in
// types.
func (q *Queue) InvalidateByType(types []string) (*Ack, error) {
	r := core.NewInvalidateByType(types)
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newAck(r.Completion), nil
}

// InvalidateAll queues a deletion of every entry.
func (q *Queue) InvalidateAll() (*Ack, error) {
	r := core.NewInvalidateAll()
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newAck(r.Completion), nil
}

// Vacuum queues a reap of expired entries.
func (q *Queue) Vacuum() (*Ack, error) {
	r := core.NewVacuum()
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newAck(r.Completion), nil
}

// ListAllKeys queues a read of every stored key.
func (q *Queue) ListAllKeys() (*Future[[]string], error) {
	r := core.NewListKeys()
	if err := q.enqueue(r); err != nil {
		return nil, err
	}
	return newFuture[[]string](r.Completion), nil
}

// Len returns the number of records waiting in the ingestion queue.
func (q *Queue) Len() int {
	return q.ingest.Len()
}

// IsRunning reports whether the background worker is running.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lifecycle != nil
}

// Close stops the worker if it is running, drains the remaining work and
// releases the store. The queue cannot be used afterwards.
func (q *Queue) Close() error {
	q.mu.Lock()
	lc := q.lifecycle
	q.mu.Unlock()

	if lc != nil {
		lc.Stop()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.ingest.Close()
	return q.store.Close()
}
