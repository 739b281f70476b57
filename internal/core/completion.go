package core

import (
	"context"
	"sync"
)

// Completion is a one-shot future carrying the outcome of a single queued
// operation. It starts pending and transitions exactly once to either a
// value or an error. Subscribers that arrive after the transition observe
// the already-delivered outcome immediately instead of blocking.
type Completion struct {
	mu    sync.Mutex
	done  chan struct{}
	value interface{}
	err   error
}

// NewCompletion creates a pending completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve delivers a successful outcome. Calling Resolve or Fail on a
// completion that is already terminal is a no-op.
func (c *Completion) Resolve(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	c.value = value
	close(c.done)
}

// Fail delivers a failed outcome. Calling Resolve or Fail on a completion
// that is already terminal is a no-op.
func (c *Completion) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
	}

	c.err = err
	close(c.done)
}

// Done reports whether the completion has reached a terminal state.
func (c *Completion) Done() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the completion is terminal or ctx is cancelled.
// If the completion is already terminal it returns immediately.
// The returned value and error are the same for every waiter.
func (c *Completion) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-c.done:
	default:
		select {
		case <-c.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}
