package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

// driverName is the modernc.org pure-Go SQLite driver.
const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    title TEXT NOT NULL,
    author TEXT,
    description TEXT,
    isbn TEXT UNIQUE,

    genre TEXT,
    language TEXT,
    age_group TEXT,
    publication_year TEXT,

    thumbnail_url TEXT,
    source TEXT,
    popularity INTEGER DEFAULT 0,

    last_accessed TEXT,
    created_at TEXT,
    updated_at TEXT
);
`

// updatableColumns whitelists the columns UpdateBook may touch. Field names
// arrive from callers as strings, so anything outside this set is rejected
// before it reaches SQL.
var updatableColumns = map[string]bool{
	"title":            true,
	"author":           true,
	"description":      true,
	"genre":            true,
	"language":         true,
	"age_group":        true,
	"publication_year": true,
	"thumbnail_url":    true,
	"source":           true,
	"last_accessed":    true,
}

// Store implements storage.BookRepository on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.BookRepository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// Open opens (or creates) the book catalog at the given path.
// Use ":memory:" for an in-memory catalog in tests.
//
// Returns storage.BookRepository interface to enforce abstraction.
func Open(path string, opts ...Option) (storage.BookRepository, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// WAL improves concurrent read behavior; SQLite still wants one writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "book-catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryBooks retrieves books matching the non-empty fields of the query.
// Matching is substring-based per column, mirroring how the catalog was
// always queried; an all-empty query returns the full catalog.
func (s *Store) QueryBooks(ctx context.Context, q core.Query) ([]core.Book, error) {
	query := "SELECT " + bookColumns + " FROM books"
	var clauses []string
	var params []any

	filters := []struct {
		column string
		value  string
	}{
		{"age_group", q.AgeGroup},
		{"genre", q.Genre},
		{"language", q.Language},
		{"publication_year", q.PublicationYear},
	}
	for _, f := range filters {
		if f.value != "" {
			clauses = append(clauses, f.column+" LIKE ?")
			params = append(params, "%"+f.value+"%")
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("catalog query failed: %w", err)
	}
	defer rows.Close()

	books, err := scanBooks(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("catalog queried", "filters", q, "found", len(books))
	return books, nil
}

// InsertBook adds a book to the catalog, skipping duplicate ISBNs.
func (s *Store) InsertBook(ctx context.Context, book *core.Book) (bool, error) {
	if err := core.ValidateBook(book); err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO books
		(title, author, description, isbn,
		 genre, language, age_group, publication_year,
		 thumbnail_url, source, popularity,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.Title, book.Author, book.Description, nullable(book.Isbn),
		book.Genre, book.Language, book.AgeGroup, book.PublicationYear,
		book.ThumbnailURL, book.Source, book.Popularity,
		now, now,
	)
	if err != nil {
		return false, fmt.Errorf("catalog insert failed for isbn %q: %w", book.Isbn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateBook sets the given fields on the book identified by ISBN.
func (s *Store) UpdateBook(ctx context.Context, isbn string, fields map[string]string) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}

	setClauses := make([]string, 0, len(fields)+1)
	params := make([]any, 0, len(fields)+2)
	for column, value := range fields {
		if !updatableColumns[column] {
			return false, fmt.Errorf("%w: %q", storage.ErrInvalidField, column)
		}
		setClauses = append(setClauses, column+" = ?")
		params = append(params, value)
	}
	setClauses = append(setClauses, "updated_at = ?")
	params = append(params, time.Now().UTC().Format(time.RFC3339), isbn)

	res, err := s.db.ExecContext(ctx,
		"UPDATE books SET "+strings.Join(setClauses, ", ")+" WHERE isbn = ?", params...)
	if err != nil {
		return false, fmt.Errorf("catalog update failed for isbn %q: %w", isbn, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IncrementPopularity adds amount to a book's popularity counter.
func (s *Store) IncrementPopularity(ctx context.Context, isbn string, amount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET popularity = COALESCE(popularity, 0) + ?
		WHERE isbn = ?`, amount, isbn)
	if err != nil {
		return fmt.Errorf("popularity update failed for isbn %q: %w", isbn, err)
	}
	return nil
}

// TouchLastAccessed records when a book was last returned to a caller.
func (s *Store) TouchLastAccessed(ctx context.Context, isbn string, when time.Time) error {
	_, err := s.UpdateBook(ctx, isbn, map[string]string{
		"last_accessed": when.UTC().Format(time.RFC3339),
	})
	return err
}

// AllBooks retrieves the entire catalog in insertion order.
func (s *Store) AllBooks(ctx context.Context) ([]core.Book, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("catalog scan failed: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

const bookColumns = "title, author, description, isbn, genre, language, age_group, publication_year, thumbnail_url, source, popularity"

func scanBooks(rows *sql.Rows) ([]core.Book, error) {
	var books []core.Book
	for rows.Next() {
		var b core.Book
		var author, description, isbn, genre, language, ageGroup, pubYear, thumbnail, source sql.NullString
		var popularity sql.NullInt64

		if err := rows.Scan(&b.Title, &author, &description, &isbn, &genre,
			&language, &ageGroup, &pubYear, &thumbnail, &source, &popularity); err != nil {
			return nil, fmt.Errorf("catalog row scan failed: %w", err)
		}

		b.Author = author.String
		b.Description = description.String
		b.Isbn = isbn.String
		b.Genre = genre.String
		b.Language = language.String
		b.AgeGroup = ageGroup.String
		b.PublicationYear = pubYear.String
		b.ThumbnailURL = thumbnail.String
		b.Source = source.String
		b.Popularity = int(popularity.Int64)
		if b.Source == "" {
			b.Source = core.SourceCatalog
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// nullable maps an empty string to SQL NULL so the UNIQUE constraint on isbn
// does not collapse all books without an identifier into one row.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
