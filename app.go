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


package bookfinder

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kittylit/bookfinder/agent"
	"github.com/kittylit/bookfinder/ai"
	"github.com/kittylit/bookfinder/ai/openai"
	"github.com/kittylit/bookfinder/cache"
	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/livesource"
	"github.com/kittylit/bookfinder/quota"
	"github.com/kittylit/bookfinder/semantic"
	"github.com/kittylit/bookfinder/storage"
	"github.com/kittylit/bookfinder/storage/badger"
	"github.com/kittylit/bookfinder/storage/sqlite"
)

// Default file names inside the data directory.
const (
	CatalogFile = "catalog.db"
	UsageDir    = "usage"
	IndexFile   = "semantic_index.bin"
)

// App wires the full search stack: catalog, cache, quota, live source,
// semantic index and the orchestrator on top of them.
type App struct {
	catalog      storage.BookRepository
	usageBackend *badger.Backend
	usageRepo    storage.UsageRepository
	cacheBackend cache.Backend
	provider     ai.Provider
	index        *semantic.Index
	orchestrator *agent.Orchestrator
	logger       *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	redisAddr    string
	durableCache bool
	dailyLimit   int
	topK         int
	freshness    time.Duration
	sink         agent.TelemetrySink
	logger       *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) AppOption {
	return func(o *appOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithEmbedder overrides the embedder built from the AI config.
// Used in tests.
func WithEmbedder(embedder ai.Embedder) AppOption {
	return func(o *appOptions) {
		o.embedder = embedder
	}
}

// WithRedisCache stores cached results in Redis at addr instead of the
// in-process memory backend.
func WithRedisCache(addr string) AppOption {
	return func(o *appOptions) {
		o.redisAddr = addr
	}
}

// WithDurableCache stores cached results in the on-disk badger store so
// they survive restarts. Ignored when a Redis address is configured.
func WithDurableCache() AppOption {
	return func(o *appOptions) {
		o.durableCache = true
	}
}

// WithDailyLimit overrides the live source daily call budget.
// Default is quota.DefaultDailyLimit.
func WithDailyLimit(limit int) AppOption {
	return func(o *appOptions) {
		if limit > 0 {
			o.dailyLimit = limit
		}
	}
}

// WithTopK overrides the final result cap.
// Default is agent.DefaultTopK.
func WithTopK(k int) AppOption {
	return func(o *appOptions) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithFreshnessWindow overrides how long cached results stay fresh.
// Default is agent.DefaultFreshnessWindow.
func WithFreshnessWindow(window time.Duration) AppOption {
	return func(o *appOptions) {
		if window > 0 {
			o.freshness = window
		}
	}
}

// WithTelemetrySink sets the trace event sink.
// Default discards events.
func WithTelemetrySink(sink agent.TelemetrySink) AppOption {
	return func(o *appOptions) {
		o.sink = sink
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds the full stack rooted at dataDir. The semantic index file
// must exist and load cleanly; a load failure is returned unwrapped so
// the caller can treat it as fatal (the semantic tier is mandatory
// infrastructure, see semantic.ErrIndexLoadFailed).
func New(dataDir string, opts ...AppOption) (*App, error) {
	options := &appOptions{
		aiConfig:   ai.DefaultConfig(),
		dailyLimit: quota.DefaultDailyLimit,
		topK:       agent.DefaultTopK,
		freshness:  agent.DefaultFreshnessWindow,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	index, err := semantic.LoadIndex(filepath.Join(dataDir, IndexFile))
	if err != nil {
		return nil, err
	}

	catalog, err := sqlite.Open(filepath.Join(dataDir, CatalogFile), sqlite.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	usageBackend, err := badger.OpenBackend(filepath.Join(dataDir, UsageDir), false)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	usageRepo, err := badger.NewUsageRepository(usageBackend)
	if err != nil {
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	var backend cache.Backend
	switch {
	case options.redisAddr != "":
		backend, err = cache.NewRedisBackend(redis.NewClient(&redis.Options{Addr: options.redisAddr}))
	case options.durableCache:
		backend, err = cache.NewBadgerBackend(usageBackend)
	default:
		backend = cache.NewMemoryBackend(5 * time.Minute)
	}
	if err != nil {
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	cacheStore, err := cache.NewStore(backend, cache.WithLogger(logger))
	if err != nil {
		backend.Close()
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	tracker, err := quota.NewTracker(usageRepo,
		quota.WithLimit(options.dailyLimit),
		quota.WithLogger(logger))
	if err != nil {
		backend.Close()
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	var provider ai.Provider
	embedder := options.embedder
	if embedder == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			usageBackend.Close()
			catalog.Close()
			return nil, err
		}
		embedder = provider.Embedder()
	}

	retriever, err := semantic.NewRetriever(index, embedder,
		semantic.WithRetrieverLogger(logger))
	if err != nil {
		backend.Close()
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	client, err := livesource.NewClient(tracker, livesource.WithLogger(logger))
	if err != nil {
		backend.Close()
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	agentOpts := []agent.Option{
		agent.WithTopK(options.topK),
		agent.WithFreshnessWindow(options.freshness),
		agent.WithLogger(logger),
	}
	if options.sink != nil {
		agentOpts = append(agentOpts, agent.WithTelemetrySink(options.sink))
	}

	orchestrator, err := agent.NewOrchestrator(cacheStore, catalog, client, retriever, tracker, agentOpts...)
	if err != nil {
		backend.Close()
		usageBackend.Close()
		catalog.Close()
		return nil, err
	}

	logger.Info("app initialized",
		"data_dir", dataDir, "index_records", index.Len(), "daily_limit", options.dailyLimit)

	return &App{
		catalog:      catalog,
		usageBackend: usageBackend,
		usageRepo:    usageRepo,
		cacheBackend: backend,
		provider:     provider,
		index:        index,
		orchestrator: orchestrator,
		logger:       logger,
	}, nil
}

// Close releases all resources, last-opened first.
func (a *App) Close() error {
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := a.cacheBackend.Close(); err != nil {
		a.logger.Error("error closing cache backend", "err", err)
	}
	if err := a.usageBackend.Close(); err != nil {
		a.logger.Error("error closing usage backend", "err", err)
		return err
	}
	if err := a.catalog.Close(); err != nil {
		a.logger.Error("error closing catalog", "err", err)
		return err
	}
	return nil
}

// Orchestrator returns the query pipeline.
func (a *App) Orchestrator() *agent.Orchestrator {
	return a.orchestrator
}

// Catalog returns the persisted book store.
func (a *App) Catalog() storage.BookRepository {
	return a.catalog
}

// Index returns the loaded semantic index.
func (a *App) Index() *semantic.Index {
	return a.index
}

// RebuildIndex embeds the entire catalog at catalogPath and writes a
// fresh index to indexPath. Run as a maintenance step before serving.
func RebuildIndex(ctx context.Context, catalogPath, indexPath string, embedder ai.Embedder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := sqlite.Open(catalogPath, sqlite.WithLogger(logger))
	if err != nil {
		return err
	}
	defer catalog.Close()

	books, err := catalog.AllBooks(ctx)
	if err != nil {
		return err
	}

	builder, err := semantic.NewBuilder(embedder, semantic.WithBuilderLogger(logger))
	if err != nil {
		return err
	}
	defer builder.Release()

	index, err := builder.Build(ctx, books)
	if err != nil {
		return err
	}
	return semantic.SaveIndex(indexPath, index)
}

// UpdateIndex appends catalog records missing from the index at
// indexPath. Records are matched by ISBN when present, otherwise by
// normalized title. Returns the number of records appended.
func UpdateIndex(ctx context.Context, catalogPath, indexPath string, embedder ai.Embedder, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := semantic.LoadIndex(indexPath)
	if err != nil {
		return 0, err
	}

	catalog, err := sqlite.Open(catalogPath, sqlite.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	defer catalog.Close()

	books, err := catalog.AllBooks(ctx)
	if err != nil {
		return 0, err
	}

	indexed := make(map[string]struct{}, index.Len())
	for _, b := range index.Books() {
		indexed[indexKey(&b)] = struct{}{}
	}

	var missing []core.Book
	for _, b := range books {
		if _, ok := indexed[indexKey(&b)]; !ok {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		logger.Info("index already covers the catalog", "records", index.Len())
		return 0, nil
	}

	builder, err := semantic.NewBuilder(embedder, semantic.WithBuilderLogger(logger))
	if err != nil {
		return 0, err
	}
	defer builder.Release()

	if err := builder.AppendTo(ctx, index, missing); err != nil {
		return 0, err
	}
	if err := semantic.SaveIndex(indexPath, index); err != nil {
		return 0, err
	}
	return len(missing), nil
}

func indexKey(b *core.Book) string {
	if b.Isbn != "" {
		return "isbn:" + b.Isbn
	}
	return "title:" + b.NormalizedTitle()
}

// AppendToIndex embeds only the given records and appends them to the
// index at indexPath, preserving existing entries and their order.
func AppendToIndex(ctx context.Context, indexPath string, books []core.Book, embedder ai.Embedder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := semantic.LoadIndex(indexPath)
	if err != nil {
		return err
	}

	builder, err := semantic.NewBuilder(embedder, semantic.WithBuilderLogger(logger))
	if err != nil {
		return err
	}
	defer builder.Release()

	if err := builder.AppendTo(ctx, index, books); err != nil {
		return err
	}
	return semantic.SaveIndex(indexPath, index)
}
