package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/ai/mock"
	"github.com/kittylit/bookfinder/core"
)

// originEmbedder returns the origin vector for every query, so each
// candidate's base distance is the squared norm of its index vector.
func originEmbedder() *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return []float32{0, 0}, nil
	}
	return embedder
}

func newTestIndex(t *testing.T, vectors [][]float32, books []core.Book) *Index {
	t.Helper()
	idx := NewIndex()
	require.NoError(t, idx.Append(vectors, books))
	return idx
}

func TestNewRetriever(t *testing.T) {
	idx := NewIndex()

	_, err := NewRetriever(nil, originEmbedder())
	assert.Equal(t, ErrIndexRequired, err)

	_, err = NewRetriever(idx, nil)
	assert.Equal(t, ErrEmbedderRequired, err)
}

func TestRetriever_Search_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t, [][]float32{{1, 0}}, []core.Book{{Title: "A"}})
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	books, err := r.Search(context.Background(), core.Query{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRetriever_Search_HardLanguageFilter(t *testing.T) {
	idx := newTestIndex(t,
		[][]float32{{1, 0}, {5, 0}},
		[]core.Book{
			{Title: "Le Petit Prince", Language: "fr"},
			{Title: "The Gruffalo", Language: "en"},
		},
	)
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	// The French book is much closer but is excluded outright.
	books, err := r.Search(context.Background(), core.Query{Language: "en"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Gruffalo", books[0].Title)
}

func TestRetriever_Search_HardGenreFilter(t *testing.T) {
	idx := newTestIndex(t,
		[][]float32{{1, 0}, {2, 0}},
		[]core.Book{
			{Title: "Dino Facts", Genre: "Non-Fiction"},
			{Title: "Dragon Tales", Genre: "Epic Fantasy"},
		},
	)
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	// Substring match, case-insensitive.
	books, err := r.Search(context.Background(), core.Query{Genre: "fantasy"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dragon Tales", books[0].Title)
}

func TestRetriever_Search_SoftAgePenalty(t *testing.T) {
	// Equal base distance; the out-of-range book sorts after the
	// in-range one because of the penalty.
	idx := newTestIndex(t,
		[][]float32{{1, 0}, {0, 1}},
		[]core.Book{
			{Title: "Too Old", AgeGroup: "9-12"},
			{Title: "Just Right", AgeGroup: "4-6"},
		},
	)
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	books, err := r.Search(context.Background(), core.Query{AgeGroup: "5"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Just Right", books[0].Title)
	assert.Equal(t, "Too Old", books[1].Title)
	assert.InDelta(t, books[0].Similarity+agePenalty, books[1].Similarity, 1e-9)
}

func TestRetriever_Search_SoftYearPenalty(t *testing.T) {
	idx := newTestIndex(t,
		[][]float32{{1, 0}, {0, 1}},
		[]core.Book{
			{Title: "Out of Range", PublicationYear: "1987"},
			{Title: "In Range", PublicationYear: "2015"},
		},
	)
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	books, err := r.Search(context.Background(), core.Query{PublicationYear: "2010-2020"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "In Range", books[0].Title)
	assert.Equal(t, "Out of Range", books[1].Title)
	assert.InDelta(t, books[0].Similarity+yearPenalty, books[1].Similarity, 1e-9)
}

func TestRetriever_Search_ParseFailuresAreNotPenalized(t *testing.T) {
	idx := newTestIndex(t,
		[][]float32{{1, 0}, {1, 0}},
		[]core.Book{
			{Title: "Garbled", AgeGroup: "toddler", PublicationYear: "n/a"},
			{Title: "Out of Range", AgeGroup: "9-12", PublicationYear: "1950"},
		},
	)
	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	books, err := r.Search(context.Background(), core.Query{AgeGroup: "5", PublicationYear: "2010-2020"})
	require.NoError(t, err)
	require.Len(t, books, 2)

	// The unparseable candidate keeps its base distance while the
	// parseable out-of-range one collects both penalties.
	assert.Equal(t, "Garbled", books[0].Title)
	assert.Equal(t, "Out of Range", books[1].Title)
	assert.InDelta(t, books[0].Similarity+agePenalty+yearPenalty, books[1].Similarity, 1e-9)
}

func TestRetriever_Search_LimitAndSourceTag(t *testing.T) {
	vectors := make([][]float32, 15)
	books := make([]core.Book, 15)
	for i := range books {
		vectors[i] = []float32{float32(i + 1), 0}
		books[i] = core.Book{Title: "Book", Language: "en"}
	}
	idx := newTestIndex(t, vectors, books)

	r, err := NewRetriever(idx, originEmbedder())
	require.NoError(t, err)

	out, err := r.Search(context.Background(), core.Query{Language: "en"})
	require.NoError(t, err)
	assert.Len(t, out, DefaultLimit)
	for _, b := range out {
		assert.Equal(t, core.SourceSemanticIndex, b.Source)
		assert.Greater(t, b.Similarity, 0.0)
	}
}

func TestRetriever_Search_CandidateCapBeforeFiltering(t *testing.T) {
	// The matching book is farther than the candidate cap allows, so it
	// never reaches the filter stage.
	vectors := make([][]float32, 0, 6)
	books := make([]core.Book, 0, 6)
	for i := 0; i < 5; i++ {
		vectors = append(vectors, []float32{float32(i + 1), 0})
		books = append(books, core.Book{Title: "Near Noise", Language: "fr"})
	}
	vectors = append(vectors, []float32{100, 0})
	books = append(books, core.Book{Title: "Far Match", Language: "en"})
	idx := newTestIndex(t, vectors, books)

	r, err := NewRetriever(idx, originEmbedder(), WithCandidates(5))
	require.NoError(t, err)

	out, err := r.Search(context.Background(), core.Query{Language: "en"})
	require.NoError(t, err)
	assert.Empty(t, out)
}
