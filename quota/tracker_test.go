package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage/badger"
)

func newTestTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	repo, backend, err := badger.NewMemoryUsageRepository()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	tracker, err := NewTracker(repo, opts...)
	require.NoError(t, err)
	return tracker
}

func TestNewTracker(t *testing.T) {
	t.Run("nil repository", func(t *testing.T) {
		_, err := NewTracker(nil)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("default limit", func(t *testing.T) {
		tracker := newTestTracker(t)
		assert.Equal(t, DefaultDailyLimit, tracker.Limit())
	})

	t.Run("invalid limit", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryUsageRepository()
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })

		_, err = NewTracker(repo, WithLimit(0))
		assert.Equal(t, ErrInvalidLimit, err)
	})
}

func TestTracker_IncrementAndCount(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	assert.Equal(t, 0, tracker.CountToday(ctx))

	assert.Equal(t, 1, tracker.Increment(ctx))
	assert.Equal(t, 2, tracker.Increment(ctx))
	assert.Equal(t, 2, tracker.CountToday(ctx))
}

func TestTracker_CanCall_BlocksAtLimit(t *testing.T) {
	tracker := newTestTracker(t, WithLimit(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, tracker.CanCall(ctx), "call %d should be allowed", i+1)
		tracker.Increment(ctx)
	}

	assert.False(t, tracker.CanCall(ctx))
	assert.Equal(t, 3, tracker.CountToday(ctx))
}

func TestTracker_ResetsAcrossDays(t *testing.T) {
	current := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	tracker := newTestTracker(t, WithLimit(2), WithClock(func() time.Time { return current }))
	ctx := context.Background()

	tracker.Increment(ctx)
	tracker.Increment(ctx)
	assert.False(t, tracker.CanCall(ctx))

	// Cross midnight; the counter for the new date starts at zero.
	current = current.Add(time.Hour)
	assert.True(t, tracker.CanCall(ctx))
	assert.Equal(t, 0, tracker.CountToday(ctx))

	assert.Equal(t, 1, tracker.Increment(ctx))
}

type failingUsageRepo struct{}

func (failingUsageRepo) GetUsage(context.Context, string) (*core.UsageCounter, error) {
	return nil, errors.New("disk on fire")
}

func (failingUsageRepo) PutUsage(context.Context, *core.UsageCounter) error {
	return errors.New("disk on fire")
}

func (failingUsageRepo) Close() error { return nil }

func TestTracker_FailsOpenOnStorageErrors(t *testing.T) {
	tracker, err := NewTracker(failingUsageRepo{}, WithLimit(2))
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, tracker.CanCall(ctx))
	assert.Equal(t, 1, tracker.Increment(ctx))

	// The increment could not be persisted, so the next read sees zero
	// and calls remain allowed.
	assert.Equal(t, 0, tracker.CountToday(ctx))
	assert.True(t, tracker.CanCall(ctx))
}
