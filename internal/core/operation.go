package core

// Kind identifies the type of a queued cache operation.
type Kind string

const (
	// KindSelect reads entries by key.
	KindSelect Kind = "SELECT"

	// KindSelectByType reads entries by type tag.
	KindSelectByType Kind = "SELECT_BY_TYPE"

	// KindInsert upserts entries.
	KindInsert Kind = "INSERT"

	// KindInvalidateKeys deletes entries by key.
	KindInvalidateKeys Kind = "INVALIDATE_KEYS"

	// KindInvalidateByType deletes entries by type tag.
	KindInvalidateByType Kind = "INVALIDATE_BY_TYPE"

	// KindInvalidateAll deletes every entry.
	KindInvalidateAll Kind = "INVALIDATE_ALL"

	// KindVacuum reaps expired entries.
	KindVacuum Kind = "VACUUM"

	// KindListKeys reads every key.
	KindListKeys Kind = "LIST_KEYS"

	// KindNoOp carries no store effect. It exists to give a drain cycle at
	// least one record to act on, so a flush never blocks behind an idle
	// worker waiting for its first item.
	KindNoOp Kind = "NOOP"
)

// Record describes one requested cache operation awaiting execution,
// together with the completion that delivers its eventual outcome.
// A record's kind fixes its parameter and result shape at construction.
type Record struct {
	// Kind is the operation type.
	Kind Kind

	// Keys holds the target keys for Select and InvalidateKeys.
	Keys []string

	// Types holds the target type tags for SelectByType and InvalidateByType.
	Types []string

	// Elements holds the entries to upsert for Insert.
	Elements []Element

	// Completion delivers the record's outcome once the transaction that
	// executed it commits. Exactly one completion per record.
	Completion *Completion
}

// NewSelect creates a record that reads the given keys.
func NewSelect(keys []string) *Record {
	return &Record{Kind: KindSelect, Keys: keys, Completion: NewCompletion()}
}

// NewSelectByType creates a record that reads entries with the given type tags.
func NewSelectByType(types []string) *Record {
	return &Record{Kind: KindSelectByType, Types: types, Completion: NewCompletion()}
}

// NewInsert creates a record that upserts the given elements.
func NewInsert(elements []Element) *Record {
	return &Record{Kind: KindInsert, Elements: elements, Completion: NewCompletion()}
}

// NewInvalidateKeys creates a record that deletes the given keys.
func NewInvalidateKeys(keys []string) *Record {
	return &Record{Kind: KindInvalidateKeys, Keys: keys, Completion: NewCompletion()}
}

// NewInvalidateByType creates a record that deletes entries with the given type tags.
func NewInvalidateByType(types []string) *Record {
	return &Record{Kind: KindInvalidateByType, Types: types, Completion: NewCompletion()}
}

// NewInvalidateAll creates a record that deletes every entry.
func NewInvalidateAll() *Record {
	return &Record{Kind: KindInvalidateAll, Completion: NewCompletion()}
}

// NewVacuum creates a record that reaps expired entries.
func NewVacuum() *Record {
	return &Record{Kind: KindVacuum, Completion: NewCompletion()}
}

// NewListKeys creates a record that reads every key.
func NewListKeys() *Record {
	return &Record{Kind: KindListKeys, Completion: NewCompletion()}
}

// NewNoOp creates a record with no store effect.
func NewNoOp() *Record {
	return &Record{Kind: KindNoOp, Completion: NewCompletion()}
}

// IsRead reports whether the record only reads store state.
func (r *Record) IsRead() bool {
	switch r.Kind {
	case KindSelect, KindSelectByType, KindListKeys:
		return true
	}
	return false
}
