package agent

import (
	"context"
	"time"

	"github.com/kittylit/bookfinder/core"
)

// CacheStore is the result cache consumed by the orchestrator.
// Implemented by cache.Store.
type CacheStore interface {
	// Get retrieves the entry for a query hash. A clean miss is
	// (nil, false, nil).
	Get(ctx context.Context, hash string) (*core.CacheEntry, bool, error)

	// Set stores a result set under the hash with the given TTL.
	Set(ctx context.Context, hash string, items []core.Book, ttl time.Duration) error

	// Delete removes the entry for a hash.
	Delete(ctx context.Context, hash string) error
}

// Catalog is the persisted-store tier plus the popularity and
// last-accessed side effects. Implemented by sqlite.Store.
type Catalog interface {
	// QueryBooks retrieves books matching the non-empty query fields.
	QueryBooks(ctx context.Context, q core.Query) ([]core.Book, error)

	// IncrementPopularity adds amount to a book's popularity counter.
	IncrementPopularity(ctx context.Context, isbn string, amount int) error

	// TouchLastAccessed records when a book was last returned.
	TouchLastAccessed(ctx context.Context, isbn string, when time.Time) error
}

// LiveSource fetches books from the external API.
// Implemented by livesource.Client.
type LiveSource interface {
	Fetch(ctx context.Context, q core.Query) ([]core.Book, error)
}

// SemanticSearcher answers filter queries from the vector index.
// Implemented by semantic.Retriever.
type SemanticSearcher interface {
	Search(ctx context.Context, q core.Query) ([]core.Book, error)
}

// QuotaGate reports whether the live source may be called.
// Implemented by quota.Tracker.
type QuotaGate interface {
	CanCall(ctx context.Context) bool
}

// TelemetrySink receives per-query trace events. Emit is fire-and-forget
// and must never block or fail the pipeline.
type TelemetrySink interface {
	Emit(event string, payload any)
}
