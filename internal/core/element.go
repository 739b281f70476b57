package core

import "time"

// Element is a single cache entry as it is stored in the SQL store.
// The payload is an opaque blob; encoding and decoding are the concern of
// the facade layer, not the batching core.
type Element struct {
	// Key is the unique cache key for this entry.
	Key string

	// Type is a caller-supplied tag used for type-scoped selects and
	// invalidations.
	Type string

	// Payload is the serialized entry value.
	Payload []byte

	// ExpiresAt is the absolute expiry time of the entry.
	// A zero value means the entry never expires.
	ExpiresAt time.Time
}

// Expired reports whether the element's expiry time has passed at now.
func (e *Element) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
