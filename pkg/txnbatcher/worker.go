package txnbatcher

import (
	"context"
	"log"
	"sync"

	"github.com/rzpsarthak13/txn-batcher/internal/coalesce"
	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

// Lifecycle is the handle returned by Start. Stopping it shuts the worker
// down after one final forced drain, so no queued record is ever silently
// discarded.
type Lifecycle struct {
	queue  *Queue
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// Stop signals the worker and blocks until it has drained the remaining
// records and exited. An in-progress batch always runs to completion first.
// Safe to call more than once.
func (lc *Lifecycle) Stop() {
	lc.once.Do(func() {
		close(lc.stopCh)
	})
	<-lc.doneCh
}

// Start launches the background worker goroutine. It is idempotent: calling
// Start while the worker is running returns the existing lifecycle handle.
func (q *Queue) Start(ctx context.Context) (*Lifecycle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if q.lifecycle != nil {
		return q.lifecycle, nil
	}

	lc := &Lifecycle{
		queue:  q,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	q.lifecycle = lc

	go q.run(ctx, lc)
	log.Printf("[WORKER] Started (chunk size: %d, drain rate: %d tx/sec)",
		q.config.Batch.ChunkSize, q.config.Batch.DrainRate)
	return lc, nil
}

// run is the worker loop: block until a record is available or a stop
// signal arrives, then drain-coalesce-execute under the drain lock.
// The stop signal is honored only between cycles, never mid-batch.
func (q *Queue) run(ctx context.Context, lc *Lifecycle) {
	defer close(lc.doneCh)
	defer func() {
		q.mu.Lock()
		q.lifecycle = nil
		q.mu.Unlock()
	}()

	for {
		select {
		case <-lc.stopCh:
			// The final drain must outlive the caller's context.
			q.finalDrain(context.WithoutCancel(ctx))
			log.Printf("[WORKER] Stopped")
			return
		case <-ctx.Done():
			q.finalDrain(context.WithoutCancel(ctx))
			log.Printf("[WORKER] Context cancelled, stopped")
			return
		case <-q.ingest.Notify():
			q.drainMu.Lock()
			q.executeDrained(ctx, q.ingest.DrainAll())
			q.drainMu.Unlock()
		}
	}
}

// finalDrain keeps draining until nothing remains, so stopping resolves
// every record that was enqueued before the stop. Records re-queued by a
// failing transaction are retried here as well.
func (q *Queue) finalDrain(ctx context.Context) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	for {
		records := q.ingest.DrainAll()
		if len(records) == 0 {
			return
		}
		q.executeDrained(ctx, records)
	}
}

// executeDrained applies drained records in chunk-sized transactions, each
// coalesced independently and rate-limited. On a transaction-level failure
// the failed chunk and every record not yet attempted are re-queued with
// their completions still pending; they land behind records that arrived in
// the meantime, so retries carry no priority.
func (q *Queue) executeDrained(ctx context.Context, records []*core.Record) {
	chunk := q.config.Batch.ChunkSize
	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if q.limiter != nil {
			// During shutdown the context may already be cancelled; the
			// batch still runs so its records are not abandoned.
			_ = q.limiter.Wait(ctx)
		}

		if err := q.executor.Execute(ctx, coalesce.Batch(batch)); err != nil {
			log.Printf("[WORKER] Transaction failed, re-queueing %d records: %v",
				len(records)-start, err)
			q.requeue(records[start:])
			return
		}
	}
}

// requeue returns records to the ingestion queue for a later attempt.
func (q *Queue) requeue(records []*core.Record) {
	for _, r := range records {
		if err := q.enqueue(r); err != nil {
			// Closed mid-retry: the record can never execute.
			r.Completion.Fail(err)
		}
	}
}

// Flush forces an immediate out-of-band drain and blocks until everything
// enqueued before the call has been executed and committed. A NoOp record
// is injected first, so whichever of the worker and Flush wins the drain
// lock always has at least one record to act on and Flush never blocks
// behind a worker waiting for its first item.
func (q *Queue) Flush(ctx context.Context) error {
	noop := core.NewNoOp()
	if err := q.enqueue(noop); err != nil {
		return err
	}

	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	for !noop.Completion.Done() {
		if err := ctx.Err(); err != nil {
			// Abandon the wait; the injected record stays queued and the
			// worker picks it up.
			return err
		}
		q.executeDrained(ctx, q.ingest.DrainAll())
	}

	_, err := noop.Completion.Wait(ctx)
	return err
}
