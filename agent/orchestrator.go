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


package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/kittylit/bookfinder/core"
)

const (
	// DefaultTopK bounds the final result list.
	DefaultTopK = 5

	// DefaultFreshnessWindow is how long a cache entry stays fresh.
	DefaultFreshnessWindow = 5 * 24 * time.Hour

	// traceEvent names the per-query telemetry event.
	traceEvent = "orchestrator_event"
)

// Orchestrator runs the tiered search pipeline. One instance serves many
// concurrent queries; all per-query state lives on the stack.
type Orchestrator struct {
	cache    CacheStore
	catalog  Catalog
	live     LiveSource
	semantic SemanticSearcher
	quota    QuotaGate
	sink     TelemetrySink

	topK      int
	freshness time.Duration
	cacheTTL  time.Duration
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTopK sets the final result cap.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithFreshnessWindow sets how long a cache entry counts as fresh.
// Default is DefaultFreshnessWindow. The cache writeback TTL follows the
// window unless WithCacheTTL overrides it.
func WithFreshnessWindow(window time.Duration) Option {
	return func(o *Orchestrator) {
		if window > 0 {
			o.freshness = window
		}
	}
}

// WithCacheTTL sets the TTL used when live results are written back to
// the cache. Default is the freshness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithTelemetrySink sets the trace event sink.
// Default discards events.
func WithTelemetrySink(sink TelemetrySink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// noopSink discards trace events.
type noopSink struct{}

func (noopSink) Emit(string, any) {}

// NewOrchestrator creates the pipeline controller. All five collaborators
// are mandatory; the telemetry sink is optional.
func NewOrchestrator(
	cache CacheStore,
	catalog Catalog,
	live LiveSource,
	semantic SemanticSearcher,
	quota QuotaGate,
	opts ...Option,
) (*Orchestrator, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if live == nil {
		return nil, ErrLiveSourceRequired
	}
	if semantic == nil {
		return nil, ErrSemanticRequired
	}
	if quota == nil {
		return nil, ErrQuotaRequired
	}

	o := &Orchestrator{
		cache:     cache,
		catalog:   catalog,
		live:      live,
		semantic:  semantic,
		quota:     quota,
		sink:      noopSink{},
		topK:      DefaultTopK,
		freshness: DefaultFreshnessWindow,
		clock:     time.Now,
		logger:    slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cacheTTL == 0 {
		o.cacheTTL = o.freshness
	}
	return o, nil
}

// HandleQuery runs one filtered search end to end and always returns a
// well-formed response; an empty book list is a valid answer. No error
// from any tier escapes this method.
func (o *Orchestrator) HandleQuery(ctx context.Context, raw core.RawFilters, correlationID string) core.SearchResponse {
	start := o.now()

	query := core.NormalizeQuery(raw)
	hash := core.QueryHash(query)

	var (
		counts    core.TierCounts
		latencies core.TierLatencies
	)

	o.logger.Info("query started",
		"hash", shortHash(hash), "correlation_id", correlationID,
		"genre", query.Genre, "language", query.Language,
		"age", query.AgeGroup, "year", query.PublicationYear)

	var hint core.SourceHint
	latencies.Decision = o.timed(func() {
		hint = o.Decide(ctx, hash)
	})

	var cacheHits []core.Book
	latencies.Cache = o.timed(func() {
		if hint == core.HintCache {
			cacheHits = o.runTier(ctx, "cache", func(ctx context.Context) ([]core.Book, error) {
				return o.tryCache(ctx, hash)
			})
		}
	})
	counts.Cache = len(cacheHits)

	var storeHits []core.Book
	latencies.Store = o.timed(func() {
		if len(cacheHits) == 0 {
			storeHits = o.runTier(ctx, "store", func(ctx context.Context) ([]core.Book, error) {
				return o.catalog.QueryBooks(ctx, query)
			})
		}
	})
	counts.Store = len(storeHits)

	var liveHits []core.Book
	latencies.Live = o.timed(func() {
		if len(cacheHits) == 0 && len(storeHits) == 0 && o.quota.CanCall(ctx) {
			liveHits = o.runTier(ctx, "live", func(ctx context.Context) ([]core.Book, error) {
				return o.tryLive(ctx, hash, query)
			})
		}
	})
	counts.Live = len(liveHits)

	var semanticHits []core.Book
	latencies.Semantic = o.timed(func() {
		semanticHits = o.runTier(ctx, "semantic", func(ctx context.Context) ([]core.Book, error) {
			return o.semantic.Search(ctx, query)
		})
	})
	counts.Semantic = len(semanticHits)

	merged := MergeResults(cacheHits, storeHits, liveHits, semanticHits)
	ranked := o.rank(ctx, merged)
	if len(ranked) > o.topK {
		ranked = ranked[:o.topK]
	}
	counts.TopK = len(ranked)

	o.touchLastAccessed(ctx, ranked)

	latencies.Total = o.now().Sub(start).Milliseconds()

	metadata := core.Metadata{
		QueryHash:      hash,
		CorrelationID:  correlationID,
		SourceSelected: hint,
		Counts:         counts,
		LatenciesMS:    latencies,
	}
	o.emit(metadata)

	o.logger.Info("query finished",
		"hash", shortHash(hash), "correlation_id", correlationID,
		"hint", string(hint), "returned", counts.TopK, "total_ms", latencies.Total)

	return core.SearchResponse{Books: ranked, Metadata: metadata}
}

// runTier executes one tier behind a catch-all barrier: errors and
// panics are logged and the tier contributes zero items.
func (o *Orchestrator) runTier(ctx context.Context, name string, fn func(context.Context) ([]core.Book, error)) (items []core.Book) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tier panicked", "tier", name, "panic", r)
			items = nil
		}
	}()

	items, err := fn(ctx)
	if err != nil {
		o.logger.Warn("tier unavailable", "tier", name, "err", err)
		return nil
	}
	return items
}

// tryCache returns the items of a fresh entry. A stale entry is deleted
// lazily and counts as a miss.
func (o *Orchestrator) tryCache(ctx context.Context, hash string) ([]core.Book, error) {
	entry, ok, err := o.cache.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if !entry.IsFresh(o.now(), o.freshness) {
		o.logger.Debug("evicting stale cache entry", "hash", shortHash(hash))
		if delErr := o.cache.Delete(ctx, hash); delErr != nil {
			o.logger.Warn("failed to evict stale cache entry", "hash", shortHash(hash), "err", delErr)
		}
		return nil, nil
	}
	return entry.Items, nil
}

// tryLive fetches from the external source and writes successful results
// back to the cache under the current hash. A writeback failure does not
// discard the fetched items.
func (o *Orchestrator) tryLive(ctx context.Context, hash string, query core.Query) ([]core.Book, error) {
	items, err := o.live.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := o.cache.Set(ctx, hash, items, o.cacheTTL); err != nil {
			o.logger.Warn("cache writeback failed", "hash", shortHash(hash), "err", err)
		}
	}
	return items, nil
}

// touchLastAccessed is best-effort per returned item.
func (o *Orchestrator) touchLastAccessed(ctx context.Context, books []core.Book) {
	when := o.now().UTC()
	for _, book := range books {
		if book.Isbn == "" {
			continue
		}
		if err := o.catalog.TouchLastAccessed(ctx, book.Isbn, when); err != nil {
			o.logger.Debug("failed to touch last_accessed", "isbn", book.Isbn, "err", err)
		}
	}
}

// emit pushes the trace object to the telemetry sink. Sink failures are
// swallowed; observability never affects the pipeline.
func (o *Orchestrator) emit(metadata core.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Debug("telemetry sink panicked", "panic", r)
		}
	}()
	o.sink.Emit(traceEvent, metadata)
}

// timed runs fn and returns its wall-clock duration in milliseconds.
func (o *Orchestrator) timed(fn func()) int64 {
	start := o.now()
	fn()
	return o.now().Sub(start).Milliseconds()
}

// shortHash truncates a hash for log lines.
func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
