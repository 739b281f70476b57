package ingest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

func TestEnqueuePreservesArrivalOrder(t *testing.T) {
	q := NewQueue()

	var want []string
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		want = append(want, key)
		require.NoError(t, q.Enqueue(core.NewSelect([]string{key})))
	}
	assert.Equal(t, 10, q.Len())

	records := q.DrainAll()
	require.Len(t, records, 10)
	for i, r := range records {
		assert.Equal(t, []string{want[i]}, r.Keys)
	}
	assert.Equal(t, 0, q.Len())
}

func TestDrainAllOnEmptyQueue(t *testing.T) {
	q := NewQueue()
	assert.Empty(t, q.DrainAll())
}

func TestDrainAllSwapsAtomically(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(core.NewNoOp()))

	first := q.DrainAll()
	second := q.DrainAll()
	assert.Len(t, first, 1)
	assert.Empty(t, second)
}

func TestConcurrentEnqueueAndDrainLosesNothing(t *testing.T) {
	q := NewQueue()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				key := fmt.Sprintf("p%d-%d", p, i)
				require.NoError(t, q.Enqueue(core.NewSelect([]string{key})))
			}
		}(p)
	}

	// Drain concurrently with the producers; every record must be seen
	// exactly once across all drains.
	seen := make(map[string]struct{})
	collect := func() {
		for _, r := range q.DrainAll() {
			key := r.Keys[0]
			_, dup := seen[key]
			require.False(t, dup, "record %s drained twice", key)
			seen[key] = struct{}{}
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		collect()
		select {
		case <-done:
			collect()
			assert.Len(t, seen, producers*perProducer)
			return
		default:
		}
	}
}

func TestEnqueueSignalsNotify(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(core.NewNoOp()))

	select {
	case <-q.Notify():
	default:
		t.Fatal("expected a wake-up after enqueue")
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(core.NewNoOp()))
	require.NoError(t, q.Close())

	err := q.Enqueue(core.NewNoOp())
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Records enqueued before Close remain drainable.
	assert.Len(t, q.DrainAll(), 1)
}
