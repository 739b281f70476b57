package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionStartsPending(t *testing.T) {
	c := NewCompletion()
	assert.False(t, c.Done())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveUnblocksAllWaiters(t *testing.T) {
	c := NewCompletion()

	const waiters = 8
	results := make(chan interface{}, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.Wait(context.Background())
			require.NoError(t, err)
			results <- value
		}()
	}

	c.Resolve("outcome")
	wg.Wait()
	close(results)

	for value := range results {
		assert.Equal(t, "outcome", value)
	}
}

func TestLateSubscriberObservesTerminalValue(t *testing.T) {
	c := NewCompletion()
	c.Resolve(42)

	// Subscribing after resolution must return immediately with the same
	// outcome, even with an already-cancelled context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestFailDeliversErrorToAllWaiters(t *testing.T) {
	c := NewCompletion()
	boom := errors.New("constraint violation")
	c.Fail(boom)

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, c.Done())
}

func TestDuplicateTransitionsAreNoOps(t *testing.T) {
	c := NewCompletion()
	c.Resolve("first")
	c.Fail(errors.New("late failure"))
	c.Resolve("second")

	value, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", value)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	c := NewCompletion()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Wait(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}

	// The completion itself is still pending and can resolve later.
	assert.False(t, c.Done())
	c.Resolve(1)
	value, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, value)
}
