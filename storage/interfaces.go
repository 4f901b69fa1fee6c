package storage

import (
	"context"
	"time"

	"github.com/kittylit/bookfinder/core"
)

// BookRepository provides operations on the durable book catalog.
// Implementations must be thread-safe and support concurrent access.
type BookRepository interface {
	// QueryBooks retrieves books matching the non-empty fields of the query.
	// An all-empty query returns the full catalog.
	QueryBooks(ctx context.Context, q core.Query) ([]core.Book, error)

	// InsertBook adds a book to the catalog. Books whose ISBN already exists
	// are skipped. Returns true when a row was actually inserted.
	InsertBook(ctx context.Context, book *core.Book) (bool, error)

	// UpdateBook sets the given fields on the book identified by ISBN.
	// Field names must belong to the catalog schema. Returns true when a
	// row was updated, false when no book has that ISBN.
	UpdateBook(ctx context.Context, isbn string, fields map[string]string) (bool, error)

	// IncrementPopularity adds amount to the popularity counter of the book
	// identified by ISBN. Unknown ISBNs are a no-op, not an error.
	IncrementPopularity(ctx context.Context, isbn string, amount int) error

	// TouchLastAccessed records when a book was last returned to a caller.
	TouchLastAccessed(ctx context.Context, isbn string, when time.Time) error

	// AllBooks retrieves the entire catalog in insertion order.
	// Used by the semantic index builder.
	AllBooks(ctx context.Context) ([]core.Book, error)

	// Close closes the repository and releases resources.
	Close() error
}

// UsageRepository persists the daily live source call counter.
// Implementations must be thread-safe; the quota tracker serializes its own
// read-modify-write cycles on top of this contract.
type UsageRepository interface {
	// GetUsage retrieves the counter for a calendar date ("2006-01-02").
	// A date with no recorded calls returns a zero counter, not an error.
	GetUsage(ctx context.Context, date string) (*core.UsageCounter, error)

	// PutUsage stores the counter under its date key, overwriting any
	// previous value.
	PutUsage(ctx context.Context, counter *core.UsageCounter) error

	// Close closes the repository and releases resources.
	Close() error
}
