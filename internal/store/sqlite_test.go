package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/txn-batcher/internal/core"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertAll(t *testing.T, s *SQLStore, elements ...core.Element) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Insert(ctx, elements))
	require.NoError(t, s.Commit())
}

func TestInsertAndSelectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour)
	insertAll(t, s, core.Element{Key: "a", Type: "user", Payload: []byte("1"), ExpiresAt: expires})

	elements, err := s.Select(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "a", elements[0].Key)
	assert.Equal(t, "user", elements[0].Type)
	assert.Equal(t, []byte("1"), elements[0].Payload)
	assert.Equal(t, expires.UnixNano(), elements[0].ExpiresAt.UnixNano())
}

func TestSelectOnEmptyStore(t *testing.T) {
	s := newTestStore(t)

	elements, err := s.Select(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAll(t, s, core.Element{Key: "a", Type: "user", Payload: []byte("1")})
	insertAll(t, s, core.Element{Key: "a", Type: "session", Payload: []byte("2")})

	elements, err := s.Select(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "session", elements[0].Type)
	assert.Equal(t, []byte("2"), elements[0].Payload)
}

func TestSelectByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAll(t, s,
		core.Element{Key: "a", Type: "user", Payload: []byte("1")},
		core.Element{Key: "b", Type: "session", Payload: []byte("2")},
		core.Element{Key: "c", Type: "user", Payload: []byte("3")},
	)

	elements, err := s.SelectByType(ctx, []string{"user"})
	require.NoError(t, err)
	assert.Len(t, elements, 2)
}

func TestInvalidateKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAll(t, s,
		core.Element{Key: "a", Payload: []byte("1")},
		core.Element{Key: "b", Payload: []byte("2")},
	)

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.InvalidateKeys(ctx, []string{"a"}))
	require.NoError(t, s.Commit())

	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestInvalidateByTypeAndAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAll(t, s,
		core.Element{Key: "a", Type: "user", Payload: []byte("1")},
		core.Element{Key: "b", Type: "session", Payload: []byte("2")},
	)

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.InvalidateByType(ctx, []string{"user"}))
	require.NoError(t, s.Commit())

	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.InvalidateAll(ctx))
	require.NoError(t, s.Commit())

	keys, err = s.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestVacuumReapsOnlyExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAll(t, s,
		core.Element{Key: "expired", Payload: []byte("1"), ExpiresAt: time.Now().Add(-time.Minute)},
		core.Element{Key: "live", Payload: []byte("2"), ExpiresAt: time.Now().Add(time.Hour)},
		core.Element{Key: "eternal", Payload: []byte("3")},
	)

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Vacuum(ctx))
	require.NoError(t, s.Commit())

	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eternal", "live"}, keys)
}

func TestListKeysSorted(t *testing.T) {
	s := newTestStore(t)

	insertAll(t, s,
		core.Element{Key: "c", Payload: []byte("3")},
		core.Element{Key: "a", Payload: []byte("1")},
		core.Element{Key: "b", Payload: []byte("2")},
	)

	keys, err := s.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestReadYourWritesInsideTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx))
	require.NoError(t, s.Insert(ctx, []core.Element{{Key: "a", Payload: []byte("1")}}))

	elements, err := s.Select(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, []byte("1"), elements[0].Payload)

	require.NoError(t, s.Commit())
}

func TestTransactionMisuse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Commit(), ErrNoOpenTx)

	require.NoError(t, s.Begin(ctx))
	assert.ErrorIs(t, s.Begin(ctx), ErrTxAlreadyOpen)
	require.NoError(t, s.Commit())
}

func TestClosedStoreRejectsPrimitives(t *testing.T) {
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Begin(context.Background()), ErrStoreClosed)
	_, err = s.Select(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrStoreClosed)
}
