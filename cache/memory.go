package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process cache backend with per-key expiry.
// Expired entries are removed lazily on read and swept periodically by a
// background janitor.
type MemoryBackend struct {
	mu              sync.RWMutex
	items           map[string]memoryEntry
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
	cleanupInterval time.Duration
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an in-process backend.
// A non-positive cleanupInterval falls back to 5 minutes.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	b := &MemoryBackend{
		items:           make(map[string]memoryEntry),
		stopCleanup:     make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	go b.cleanupExpired()

	return b
}

// Get retrieves a value, treating expired entries as misses.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	entry, ok := b.items[key]
	b.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		b.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if e, exists := b.items[key]; exists && now.After(e.expiresAt) {
			delete(b.items, key)
		}
		b.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value with a TTL. A non-positive TTL removes the key.
func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		b.mu.Lock()
		delete(b.items, key)
		b.mu.Unlock()
		return nil
	}

	// Copy to decouple from the caller's buffer.
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	b.mu.Lock()
	b.items[key] = memoryEntry{
		value:     valueCopy,
		expiresAt: time.Now().Add(ttl),
	}
	b.mu.Unlock()

	return nil
}

// Delete removes a key.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.items, key)
	b.mu.Unlock()
	return nil
}

// cleanupExpired runs periodically to remove expired entries.
func (b *MemoryBackend) cleanupExpired() {
	ticker := time.NewTicker(b.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			for k, v := range b.items {
				if now.After(v.expiresAt) {
					delete(b.items, k)
				}
			}
			b.mu.Unlock()
		case <-b.stopCleanup:
			return
		}
	}
}

// Close stops the janitor goroutine. Call on shutdown or in tests.
func (b *MemoryBackend) Close() error {
	b.cleanupOnce.Do(func() {
		close(b.stopCleanup)
	})
	return nil
}

// Len returns the number of items currently held, including not-yet-swept
// expired ones.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
