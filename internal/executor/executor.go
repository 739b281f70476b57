// Package executor runs coalesced batches against the store, one
// transaction per batch, and gates result visibility on the commit.
package executor

import (
	"context"
	"fmt"
	"log"

	"github.com/rzpsarthak13/txn-batcher/internal/coalesce"
	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

// Executor applies coalesced batches inside single store transactions.
// A group's own failure is captured per-group and never aborts the
// transaction; only a Begin or Commit failure aborts the batch.
type Executor struct {
	store core.Store
}

// New creates an executor over the given store.
func New(store core.Store) *Executor {
	return &Executor{store: store}
}

// outcome captures a group's result until the commit decides whether it may
// become visible.
type outcome struct {
	value interface{}
	err   error
}

// Execute runs the groups in order inside one transaction.
//
// On commit success every group's completions are resolved with that group's
// captured outcome, value or record-level error alike. On Begin or Commit
// failure Execute returns a non-nil error and resolves nothing; the caller
// re-queues the original records for a later attempt.
func (e *Executor) Execute(ctx context.Context, groups []*coalesce.Group) error {
	if len(groups) == 0 {
		return nil
	}

	if err := e.store.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	outcomes := make([]outcome, len(groups))
	for i, g := range groups {
		outcomes[i] = e.apply(ctx, g)
		if outcomes[i].err != nil {
			log.Printf("[EXECUTOR] Record-level failure for %s: %v", g.Kind, outcomes[i].err)
		}
	}

	if err := e.store.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Only now, with the transaction durable, may callers observe results.
	for i, g := range groups {
		deliver(g, outcomes[i])
	}
	return nil
}

// apply invokes the store primitive matching the group's kind.
func (e *Executor) apply(ctx context.Context, g *coalesce.Group) outcome {
	switch g.Kind {
	case core.KindSelect:
		elements, err := e.store.Select(ctx, g.Keys)
		return outcome{value: elements, err: err}
	case core.KindSelectByType:
		elements, err := e.store.SelectByType(ctx, g.Types)
		return outcome{value: elements, err: err}
	case core.KindInsert:
		return outcome{err: e.store.Insert(ctx, g.Elements)}
	case core.KindInvalidateKeys:
		return outcome{err: e.store.InvalidateKeys(ctx, g.Keys)}
	case core.KindInvalidateByType:
		return outcome{err: e.store.InvalidateByType(ctx, g.Types)}
	case core.KindInvalidateAll:
		return outcome{err: e.store.InvalidateAll(ctx)}
	case core.KindVacuum:
		return outcome{err: e.store.Vacuum(ctx)}
	case core.KindListKeys:
		keys, err := e.store.ListKeys(ctx)
		return outcome{value: keys, err: err}
	case core.KindNoOp:
		return outcome{}
	default:
		return outcome{err: fmt.Errorf("unknown operation kind %q", g.Kind)}
	}
}

// deliver resolves every completion in the group with the shared outcome.
func deliver(g *coalesce.Group, out outcome) {
	for _, c := range g.Completions {
		if out.err != nil {
			c.Fail(out.err)
			continue
		}
		c.Resolve(out.value)
	}
}
