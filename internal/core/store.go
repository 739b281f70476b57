package core

import "context"

// Store is the fixed set of primitives the batch executor drives against the
// underlying transactional SQL store. Each primitive executes synchronously
// and returns a record-level error on failure. Begin and Commit are the only
// sources of transaction-level errors.
//
// The batching core guarantees single-threaded access: at most one
// transaction is ever open, and no primitive is invoked concurrently.
// While a transaction is open every primitive executes inside it, so reads
// observe writes made earlier in the same batch.
type Store interface {
	// Begin opens a transaction. A failure here is transaction-level and
	// causes the whole batch to be re-queued.
	Begin(ctx context.Context) error

	// Commit commits the open transaction. A failure here is
	// transaction-level and causes the whole batch to be re-queued.
	Commit() error

	// Select returns the entries stored under the given keys.
	// Missing keys are simply absent from the result, never an error.
	Select(ctx context.Context, keys []string) ([]Element, error)

	// SelectByType returns the entries whose type tag is in types.
	SelectByType(ctx context.Context, types []string) ([]Element, error)

	// Insert upserts the given elements.
	Insert(ctx context.Context, elements []Element) error

	// InvalidateKeys deletes the entries stored under the given keys.
	InvalidateKeys(ctx context.Context, keys []string) error

	// InvalidateByType deletes the entries whose type tag is in types.
	InvalidateByType(ctx context.Context, types []string) error

	// InvalidateAll deletes every entry.
	InvalidateAll(ctx context.Context) error

	// Vacuum deletes entries whose expiry time has passed.
	Vacuum(ctx context.Context) error

	// ListKeys returns every stored key.
	ListKeys(ctx context.Context) ([]string, error)

	// Close releases the store's resources. It must not be called while a
	// transaction is open.
	Close() error
}
