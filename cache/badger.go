package cache

import (
	"context"
	"errors"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/kittylit/bookfinder/storage/badger"
)

// BadgerBackend stores cache entries in a BadgerDB instance so cached
// results survive process restarts. The underlying store may be shared
// with other repositories; keys are namespaced by the callers.
type BadgerBackend struct {
	backend *badger.Backend
}

// NewBadgerBackend creates a cache backend on an already-open store.
// The store stays owned by the caller: Close here is a no-op.
func NewBadgerBackend(backend *badger.Backend) (*BadgerBackend, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &BadgerBackend{backend: backend}, nil
}

// Get retrieves the value for key. Expired and missing keys are clean
// misses.
func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.backend.WithTx(func(tx *badgerdb.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key. Badger expires the entry after ttl; a
// non-positive ttl removes the key.
func (b *BadgerBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return b.Delete(ctx, key)
	}
	return b.backend.WithTx(func(tx *badgerdb.Txn) error {
		return tx.SetEntry(badgerdb.NewEntry([]byte(key), value).WithTTL(ttl))
	}, true)
}

// Delete removes key. Deleting a missing key is not an error.
func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	return b.backend.WithTx(func(tx *badgerdb.Txn) error {
		return tx.Delete([]byte(key))
	}, true)
}

// Close is a no-op; the shared store is closed by its owner.
func (b *BadgerBackend) Close() error {
	return nil
}
