package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
)

func TestSaveAndLoadIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	idx := NewIndex()
	require.NoError(t, idx.Append(
		[][]float32{{1, 0, 0.5}, {0, 2, 0.25}},
		[]core.Book{
			{Title: "A", Author: "X", Genre: "fantasy", Language: "en", AgeGroup: "3-5", PublicationYear: "2001", Popularity: 4},
			{Title: "B", Language: "de"},
		},
	))

	require.NoError(t, SaveIndex(path, idx))

	loaded, err := LoadIndex(path)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, 3, loaded.Dimension())

	matches := loaded.Search([]float32{0, 0, 0}, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "A", matches[0].Book.Title)
	assert.Equal(t, "fantasy", matches[0].Book.Genre)
	assert.Equal(t, 4, matches[0].Book.Popularity)
	assert.Equal(t, "B", matches[1].Book.Title)
}

func TestSaveIndex_NilIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	assert.Equal(t, ErrIndexRequired, SaveIndex(path, nil))
}

func TestLoadIndex_MissingFile(t *testing.T) {
	_, err := LoadIndex(filepath.Join(t.TempDir(), "absent.bin"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexLoadFailed)
}

func TestLoadIndex_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x04, 0xff, 0xff}, 0o644))

	_, err := LoadIndex(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexLoadFailed)
}

func TestSaveIndex_EmptyIndexRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, SaveIndex(path, NewIndex()))

	loaded, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}
