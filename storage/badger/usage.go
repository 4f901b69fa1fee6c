package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

// UsageRepository implements storage.UsageRepository on BadgerDB.
// Counters are MUS-encoded under one key per calendar date.
type UsageRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a usage repository on the given backend.
//
// Returns storage.UsageRepository interface to enforce abstraction.
func NewUsageRepository(backend *Backend) (storage.UsageRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &UsageRepository{
		backend: backend,
		logger:  slog.Default().With("component", "usage-repository"),
	}, nil
}

// GetUsage retrieves the counter for a calendar date.
// A date with no recorded calls returns a zero counter.
func (r *UsageRepository) GetUsage(ctx context.Context, date string) (*core.UsageCounter, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	counter := &core.UsageCounter{Date: date, Count: 0}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeUsageKey(date))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := storage.UnmarshalUsageCounter(val)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			counter = decoded
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return counter, nil
}

// PutUsage stores the counter under its date key.
func (r *UsageRepository) PutUsage(ctx context.Context, counter *core.UsageCounter) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if counter == nil || counter.Date == "" {
		return storage.ErrInvalidField
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeUsageKey(counter.Date), storage.MarshalUsageCounter(counter))
	}, true)
}

// Close closes the repository. The shared backend is closed by its owner.
func (r *UsageRepository) Close() error {
	return nil
}
