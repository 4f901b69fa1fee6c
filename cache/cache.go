package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

// keyPrefix namespaces cache keys so the backend can be shared.
const keyPrefix = "cache:"

// Backend is the raw byte store beneath the cache.
// Implemented by the in-process memory backend and the Redis backend.
type Backend interface {
	// Get retrieves the value for key. A missing or expired key is a clean
	// miss: (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL. A non-positive TTL
	// removes the key.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Store persists query results keyed by query hash.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

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

// NewStore creates a cache store on the given backend.
func NewStore(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	s := &Store{
		backend: backend,
		logger:  slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves the cached entry for a query hash.
// Returns (nil, false, nil) on a clean miss.
func (s *Store) Get(ctx context.Context, hash string) (*core.CacheEntry, bool, error) {
	if hash == "" {
		return nil, false, ErrEmptyHash
	}

	data, ok, err := s.backend.Get(ctx, keyPrefix+hash)
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}
	if !ok {
		s.logger.Debug("cache miss", "hash", shortHash(hash))
		return nil, false, nil
	}

	entry, err := storage.UnmarshalCacheEntry(data)
	if err != nil {
		// A payload we cannot decode is as good as absent; drop it so the
		// next write replaces it.
		s.logger.Warn("dropping undecodable cache entry", "hash", shortHash(hash), "err", err)
		_ = s.backend.Delete(ctx, keyPrefix+hash)
		return nil, false, nil
	}

	s.logger.Debug("cache hit", "hash", shortHash(hash), "items", len(entry.Items))
	return entry, true, nil
}

// Set stores a result set under the query hash with the current timestamp.
// Entries are overwritten wholesale; there is no partial update.
func (s *Store) Set(ctx context.Context, hash string, items []core.Book, ttl time.Duration) error {
	if hash == "" {
		return ErrEmptyHash
	}

	entry := &core.CacheEntry{
		QueryHash: hash,
		Items:     items,
		Timestamp: time.Now().UTC(),
	}

	if err := s.backend.Set(ctx, keyPrefix+hash, storage.MarshalCacheEntry(entry), ttl); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}

	s.logger.Debug("cache set", "hash", shortHash(hash), "items", len(items), "ttl", ttl)
	return nil
}

// Delete removes the entry for a query hash.
func (s *Store) Delete(ctx context.Context, hash string) error {
	if hash == "" {
		return ErrEmptyHash
	}
	return s.backend.Delete(ctx, keyPrefix+hash)
}

// shortHash truncates a hash for log lines.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
