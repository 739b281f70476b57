package txnbatcher

import (
	"context"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

// Future is the caller-facing handle for a queued operation that produces a
// value. The value becomes visible only after the transaction that executed
// the operation commits; waiting after that point returns the same outcome
// immediately. An operation's kind fixes its result type, so the assertion
// inside Wait cannot fail for handles produced by this package.
type Future[T any] struct {
	completion *core.Completion
}

func newFuture[T any](c *core.Completion) *Future[T] {
	return &Future[T]{completion: c}
}

// Wait blocks until the operation's outcome is available or ctx is
// cancelled. Cancelling the context abandons the wait, not the operation:
// once enqueued, an operation always eventually resolves.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	value, err := f.completion.Wait(ctx)
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	return value.(T), nil
}

// Done reports whether the outcome is already available.
func (f *Future[T]) Done() bool {
	return f.completion.Done()
}

// Ack is the caller-facing handle for a queued operation that produces no
// value. It resolves once the transaction that executed the operation
// commits, or fails with the operation's record-level error.
type Ack struct {
	completion *core.Completion
}

func newAck(c *core.Completion) *Ack {
	return &Ack{completion: c}
}

// Wait blocks until the operation's outcome is available or ctx is
// cancelled.
func (a *Ack) Wait(ctx context.Context) error {
	_, err := a.completion.Wait(ctx)
	return err
}

// Done reports whether the outcome is already available.
func (a *Ack) Done() bool {
	return a.completion.Done()
}
