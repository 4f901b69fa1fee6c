package core

import (
	"fmt"
	"strings"
)

// Static option sets used by the calling layer for dropdowns and by the
// normalizer for light validation. Values are stored lower-cased.
var (
	ValidLanguages = []string{"en", "ta", "hi", "es"}
	ValidGenres    = []string{"fantasy", "fiction", "non-fiction", "educational", "adventure", "mystery", "nature", "fairy tale", "science fiction", "biography", "historical", "poetry", "picture book"}
	ValidAges      = []string{"0-2", "3-5", "6-8", "9-12", "13+"}
)

// genreAliases maps raw dataset genre terms to their canonical form.
// Keys and values are lower-cased.
var genreAliases = map[string]string{
	"mythology":   "fantasy",
	"myths":       "fantasy",
	"values":      "educational",
	"education":   "educational",
	"adventures":  "adventure",
	"fairy tales": "fairy tale",
}

// RawFilters are the filter values as supplied by the calling layer,
// before any normalization.
type RawFilters struct {
	Age      string
	Genre    string
	Language string
	Year     string
}

// NormalizeQuery converts raw UI filters into the canonical Query.
// Values are trimmed and lower-cased, and genre aliases are folded into
// their canonical form, so two equivalent filter sets always yield equal
// queries (and therefore equal query hashes).
func NormalizeQuery(raw RawFilters) Query {
	return Query{
		AgeGroup:        normalizeField(raw.Age),
		Genre:           CanonicalGenre(raw.Genre),
		Language:        normalizeField(raw.Language),
		PublicationYear: normalizeField(raw.Year),
	}
}

// CanonicalGenre normalizes a genre value and folds known aliases.
func CanonicalGenre(genre string) string {
	g := normalizeField(genre)
	if canonical, ok := genreAliases[g]; ok {
		return canonical
	}
	return g
}

func normalizeField(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// ValidateBook validates a Book according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - Popularity must not be negative
//
// NOT validated (populated by tiers):
//   - Isbn (empty is valid; live sources do not always supply one)
//   - Similarity (zero until the semantic tier scores the book)
func ValidateBook(book *Book) error {
	if book == nil {
		return fmt.Errorf("%w: book is nil", ErrInvalidBook)
	}

	if strings.TrimSpace(book.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrEmptyTitle)
	}

	if book.Popularity < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBook, ErrNegativePopularity)
	}

	return nil
}
