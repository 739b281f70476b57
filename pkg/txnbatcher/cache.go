package txnbatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is a typed convenience layer over Queue. Values are encoded with
// msgpack; entries carry a caller-supplied type tag and an optional TTL.
// Expired entries are treated as missing on read and reaped by Vacuum.
//
// Every method blocks until the batch carrying its operation commits, so a
// returned nil error means the effect is durable. Callers that do not need
// that guarantee can use the Queue's async surface directly.
type Cache struct {
	queue      *Queue
	defaultTTL time.Duration
}

// NewCache wraps a queue. defaultTTL applies to Set calls that pass a zero
// TTL; a zero defaultTTL means entries never expire unless a TTL is given.
func NewCache(queue *Queue, defaultTTL time.Duration) *Cache {
	return &Cache{queue: queue, defaultTTL: defaultTTL}
}

// Set encodes value and queues an upsert under key with the given type tag.
func (c *Cache) Set(ctx context.Context, key, typeTag string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %q: %w", key, err)
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	ack, err := c.queue.Insert([]Element{{Key: key, Type: typeTag, Payload: payload, ExpiresAt: expires}})
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// Get decodes the entry under key into dest. It returns false when the key
// is missing or expired.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	future, err := c.queue.Select([]string{key})
	if err != nil {
		return false, err
	}

	elements, err := future.Wait(ctx)
	if err != nil {
		return false, err
	}
	if len(elements) == 0 {
		return false, nil
	}

	el := elements[0]
	if el.Expired(time.Now()) {
		return false, nil
	}
	if err := msgpack.Unmarshal(el.Payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode value for key %q: %w", key, err)
	}
	return true, nil
}

// GetByType returns the raw, unexpired elements carrying any of the given
// type tags. Decoding is left to the caller since one tag may cover several
// concrete types.
func (c *Cache) GetByType(ctx context.Context, types ...string) ([]Element, error) {
	future, err := c.queue.SelectByType(types)
	if err != nil {
		return nil, err
	}

	elements, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	live := elements[:0]
	for _, el := range elements {
		if !el.Expired(now) {
			live = append(live, el)
		}
	}
	return live, nil
}

// Delete removes the entries under the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	ack, err := c.queue.Invalidate(keys)
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// DeleteType removes every entry carrying any of the given type tags.
func (c *Cache) DeleteType(ctx context.Context, types ...string) error {
	ack, err := c.queue.InvalidateByType(types)
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	ack, err := c.queue.InvalidateAll()
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// Keys returns every cached key, including keys of expired entries that
// have not been vacuumed yet.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	future, err := c.queue.ListAllKeys()
	if err != nil {
		return nil, err
	}
	return future.Wait(ctx)
}

// Vacuum reaps expired entries from the store.
func (c *Cache) Vacuum(ctx context.Context) error {
	ack, err := c.queue.Vacuum()
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}
