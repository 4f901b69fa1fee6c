package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage/badger"
)

func newBadgerBackend(t *testing.T) *BadgerBackend {
	t.Helper()
	store, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	backend, err := NewBadgerBackend(store)
	require.NoError(t, err)
	return backend
}

func TestNewBadgerBackend_NilStore(t *testing.T) {
	_, err := NewBadgerBackend(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}

func TestBadgerBackend_RoundTrip(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Hour))

	value, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), value)

	_, ok, err = backend.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadgerBackend_Delete(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Hour))
	require.NoError(t, backend.Delete(ctx, "k1"))

	_, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, backend.Delete(ctx, "k1"), "deleting a missing key is not an error")
}

func TestBadgerBackend_NonPositiveTTLDeletes(t *testing.T) {
	backend := newBadgerBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte("v1"), time.Hour))
	require.NoError(t, backend.Set(ctx, "k1", []byte("v2"), 0))

	_, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_OnBadgerBackend(t *testing.T) {
	store, err := NewStore(newBadgerBackend(t))
	require.NoError(t, err)
	ctx := context.Background()

	books := []core.Book{{Title: "The Snail and the Whale", Popularity: 4}}
	require.NoError(t, store.Set(ctx, "hash-b", books, time.Hour))

	entry, ok, err := store.Get(ctx, "hash-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash-b", entry.QueryHash)
	require.Len(t, entry.Items, 1)
	assert.Equal(t, "The Snail and the Whale", entry.Items[0].Title)
}
