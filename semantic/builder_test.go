package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/ai/mock"
	"github.com/kittylit/bookfinder/core"
)

func TestBuildText(t *testing.T) {
	book := core.Book{
		Title:           "The Gruffalo",
		Author:          "Julia Donaldson",
		Genre:           "fantasy",
		AgeGroup:        "3-5",
		Language:        "en",
		PublicationYear: "1999",
	}
	assert.Equal(t,
		"The Gruffalo by Julia Donaldson | fantasy | Age 3-5 | en | 1999",
		BuildText(book))
}

func TestNewBuilder(t *testing.T) {
	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewBuilder(nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestBuilder_Build(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	builder, err := NewBuilder(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer builder.Release()

	books := []core.Book{
		{Title: "A", Language: "en"},
		{Title: "B", Language: "en"},
		{Title: "C", Language: "de"},
	}

	idx, err := builder.Build(context.Background(), books)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 384, idx.Dimension())
}

func TestBuilder_Build_PreservesOrderAcrossBatches(t *testing.T) {
	// More records than one batch, embedded with a recognizable per-text
	// vector so order survives concurrent batches.
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text)), 0}
		}
		return out, nil
	}

	builder, err := NewBuilder(embedder, WithPoolSize(2))
	require.NoError(t, err)
	defer builder.Release()

	books := make([]core.Book, embedBatchSize*3+5)
	for i := range books {
		books[i] = core.Book{Title: string(rune('a' + i%26))}
	}

	idx, err := builder.Build(context.Background(), books)
	require.NoError(t, err)
	require.Equal(t, len(books), idx.Len())

	matches := idx.Search([]float32{0, 0}, len(books))
	require.Len(t, matches, len(books))
}

func TestBuilder_AppendTo(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	builder, err := NewBuilder(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer builder.Release()
	ctx := context.Background()

	idx, err := builder.Build(ctx, []core.Book{{Title: "A"}})
	require.NoError(t, err)

	require.NoError(t, builder.AppendTo(ctx, idx, []core.Book{{Title: "B"}, {Title: "C"}}))
	assert.Equal(t, 3, idx.Len())

	t.Run("nil index", func(t *testing.T) {
		assert.Equal(t, ErrIndexRequired, builder.AppendTo(ctx, nil, []core.Book{{Title: "D"}}))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, builder.AppendTo(ctx, idx, nil))
		assert.Equal(t, 3, idx.Len())
	})
}

func TestBuilder_Build_EmbedderFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model offline")
	}

	builder, err := NewBuilder(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer builder.Release()

	_, err = builder.Build(context.Background(), []core.Book{{Title: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}
