package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend := NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })

	store, err := NewStore(backend)
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("nil backend", func(t *testing.T) {
		_, err := NewStore(nil)
		assert.Equal(t, ErrBackendRequired, err)
	})

	t.Run("valid backend", func(t *testing.T) {
		store, err := NewStore(NewMemoryBackend(time.Minute))
		require.NoError(t, err)
		assert.NotNil(t, store)
	})
}

func TestStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []core.Book{
		{Title: "Room on the Broom", Isbn: "9780333903384", Popularity: 7},
		{Title: "Stick Man"},
	}

	require.NoError(t, store.Set(ctx, "hash1", items, time.Hour))

	entry, ok, err := store.Get(ctx, "hash1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash1", entry.QueryHash)
	assert.Equal(t, items, entry.Items)
	assert.WithinDuration(t, time.Now().UTC(), entry.Timestamp, 5*time.Second)
}

func TestStore_Get_Miss(t *testing.T) {
	store := newTestStore(t)

	entry, ok, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, entry)
}

func TestStore_Set_OverwritesWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", []core.Book{{Title: "Old"}}, time.Hour))
	require.NoError(t, store.Set(ctx, "h", []core.Book{{Title: "New A"}, {Title: "New B"}}, time.Hour))

	entry, ok, err := store.Get(ctx, "h")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Items, 2)
	assert.Equal(t, "New A", entry.Items[0].Title)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", []core.Book{{Title: "X"}}, time.Hour))
	require.NoError(t, store.Delete(ctx, "h"))

	_, ok, err := store.Get(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_EmptyHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Get(ctx, "")
	assert.Equal(t, ErrEmptyHash, err)

	assert.Equal(t, ErrEmptyHash, store.Set(ctx, "", nil, time.Hour))
	assert.Equal(t, ErrEmptyHash, store.Delete(ctx, ""))
}

func TestStore_UndecodablePayloadIsAMiss(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	store, err := NewStore(backend)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, keyPrefix+"bad", []byte{0xff, 0x01, 0x02}, time.Hour))

	_, ok, err := store.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Expiry(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	_, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok, err = backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestMemoryBackend_NonPositiveTTLDeletes(t *testing.T) {
	backend := NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, backend.Set(ctx, "k", []byte("v"), 0))

	_, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
