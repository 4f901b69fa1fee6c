package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

func newTestStore(t *testing.T) storage.BookRepository {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedBooks(t *testing.T, store storage.BookRepository, books ...core.Book) {
	t.Helper()
	ctx := context.Background()
	for i := range books {
		inserted, err := store.InsertBook(ctx, &books[i])
		require.NoError(t, err)
		require.True(t, inserted)
	}
}

func TestStore_InsertBook(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("inserts a new book", func(t *testing.T) {
		inserted, err := store.InsertBook(ctx, &core.Book{Title: "Matilda", Isbn: "9780141301068"})
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("skips duplicate isbn", func(t *testing.T) {
		inserted, err := store.InsertBook(ctx, &core.Book{Title: "Matilda again", Isbn: "9780141301068"})
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("books without isbn do not collide", func(t *testing.T) {
		first, err := store.InsertBook(ctx, &core.Book{Title: "Anon One"})
		require.NoError(t, err)
		second, err := store.InsertBook(ctx, &core.Book{Title: "Anon Two"})
		require.NoError(t, err)
		assert.True(t, first)
		assert.True(t, second)
	})

	t.Run("rejects invalid book", func(t *testing.T) {
		_, err := store.InsertBook(ctx, &core.Book{Title: "  "})
		assert.ErrorIs(t, err, core.ErrInvalidBook)
	})
}

func TestStore_QueryBooks(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store,
		core.Book{Title: "Forest Friends", Isbn: "111", Genre: "nature", Language: "en", AgeGroup: "3-5", PublicationYear: "2012"},
		core.Book{Title: "Dragon Tales", Isbn: "222", Genre: "fantasy", Language: "en", AgeGroup: "6-8", PublicationYear: "2015"},
		core.Book{Title: "Cuentos", Isbn: "333", Genre: "fantasy", Language: "es", AgeGroup: "6-8", PublicationYear: "2015"},
	)

	ctx := context.Background()

	t.Run("filters by genre and language", func(t *testing.T) {
		books, err := store.QueryBooks(ctx, core.Query{Genre: "fantasy", Language: "en"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Dragon Tales", books[0].Title)
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		books, err := store.QueryBooks(ctx, core.Query{})
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		books, err := store.QueryBooks(ctx, core.Query{Genre: "mystery"})
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("rows without source get the catalog tag", func(t *testing.T) {
		books, err := store.QueryBooks(ctx, core.Query{Genre: "nature"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, core.SourceCatalog, books[0].Source)
	})
}

func TestStore_UpdateBook(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, core.Book{Title: "Matilda", Isbn: "444"})
	ctx := context.Background()

	t.Run("updates whitelisted fields", func(t *testing.T) {
		updated, err := store.UpdateBook(ctx, "444", map[string]string{"genre": "fiction"})
		require.NoError(t, err)
		assert.True(t, updated)

		books, err := store.QueryBooks(ctx, core.Query{Genre: "fiction"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Matilda", books[0].Title)
	})

	t.Run("unknown isbn updates nothing", func(t *testing.T) {
		updated, err := store.UpdateBook(ctx, "nope", map[string]string{"genre": "fiction"})
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("rejects fields outside the schema", func(t *testing.T) {
		_, err := store.UpdateBook(ctx, "444", map[string]string{"popularity; DROP TABLE books": "1"})
		assert.ErrorIs(t, err, storage.ErrInvalidField)
	})

	t.Run("empty field map is a no-op", func(t *testing.T) {
		updated, err := store.UpdateBook(ctx, "444", nil)
		require.NoError(t, err)
		assert.False(t, updated)
	})
}

func TestStore_IncrementPopularity(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, core.Book{Title: "Matilda", Isbn: "555", Popularity: 2})
	ctx := context.Background()

	require.NoError(t, store.IncrementPopularity(ctx, "555", 3))
	require.NoError(t, store.IncrementPopularity(ctx, "unknown", 9)) // no-op

	books, err := store.QueryBooks(ctx, core.Query{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 5, books[0].Popularity)
}

func TestStore_TouchLastAccessed(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store, core.Book{Title: "Matilda", Isbn: "666"})

	err := store.TouchLastAccessed(context.Background(), "666", time.Date(2025, 8, 31, 10, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestStore_AllBooks(t *testing.T) {
	store := newTestStore(t)
	seedBooks(t, store,
		core.Book{Title: "First", Isbn: "1"},
		core.Book{Title: "Second", Isbn: "2"},
		core.Book{Title: "Third", Isbn: "3"},
	)

	books, err := store.AllBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 3)

	// Insertion order is preserved, which the semantic index relies on.
	assert.Equal(t, "First", books[0].Title)
	assert.Equal(t, "Second", books[1].Title)
	assert.Equal(t, "Third", books[2].Title)
}
