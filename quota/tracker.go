// Copyright 2025 KittyLit Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

// DefaultDailyLimit is the number of external calls allowed per UTC day.
const DefaultDailyLimit = 600

// dateFormat keys counters by calendar date.
const dateFormat = "2006-01-02"

// Tracker counts external calls per UTC day against a daily limit.
type Tracker struct {
	mu     sync.Mutex
	repo   storage.UsageRepository
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLimit overrides the daily limit.
// Default is DefaultDailyLimit.
func WithLimit(limit int) Option {
	return func(t *Tracker) {
		t.limit = limit
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger
	}
}

// WithClock overrides the time source. Used in tests to cross day
// boundaries without waiting for midnight.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a quota tracker over the given usage repository.
func NewTracker(repo storage.UsageRepository, opts ...Option) (*Tracker, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	t := &Tracker{
		repo:   repo,
		limit:  DefaultDailyLimit,
		logger: slog.Default().With("component", "quota"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return t, nil
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// CanCall reports whether another external call is allowed today.
// An unreadable counter counts as zero, so storage trouble never blocks
// the live tier.
func (t *Tracker) CanCall(ctx context.Context) bool {
	return t.CountToday(ctx) < t.limit
}

// CountToday returns the number of calls recorded for the current UTC day.
func (t *Tracker) CountToday(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countLocked(ctx, t.today())
}

// Increment records one external call attempt for the current UTC day and
// returns the updated count. Calls are counted whether or not the attempt
// succeeds, mirroring how the external API meters its own quota.
func (t *Tracker) Increment(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	date := t.today()
	count := t.countLocked(ctx, date) + 1

	counter := &core.UsageCounter{Date: date, Count: count}
	if err := t.repo.PutUsage(ctx, counter); err != nil {
		t.logger.Warn("failed to persist usage counter", "date", date, "err", err)
	}

	if count >= t.limit {
		t.logger.Info("daily quota reached", "date", date, "count", count, "limit", t.limit)
	}
	return count
}

func (t *Tracker) countLocked(ctx context.Context, date string) int {
	counter, err := t.repo.GetUsage(ctx, date)
	if err != nil {
		t.logger.Warn("failed to read usage counter, assuming zero", "date", date, "err", err)
		return 0
	}
	return counter.Count
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(dateFormat)
}
