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


package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kittylit/bookfinder/ai"
	"github.com/kittylit/bookfinder/core"
)

// embedBatchSize is the number of records embedded per worker task.
const embedBatchSize = 32

// BuildText composes the deterministic text rendering of a record that is
// embedded into the index. Build and query must agree on this convention.
func BuildText(b core.Book) string {
	return fmt.Sprintf("%s by %s | %s | Age %s | %s | %s",
		b.Title, b.Author, b.Genre, b.AgeGroup, b.Language, b.PublicationYear)
}

// Builder embeds catalog records and assembles them into an Index,
// fanning batches out over a worker pool.
type Builder struct {
	embedder ai.Embedder
	pool     *ants.Pool
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) BuilderOption {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithBuilderLogger sets a custom logger.
// Default is slog.Default().
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates an index builder.
func NewBuilder(embedder ai.Embedder, opts ...BuilderOption) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default().With("component", "semantic"),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	return b, nil
}

// Build embeds the full catalog and returns a fresh index. Record order
// in the index matches the input order.
func (b *Builder) Build(ctx context.Context, books []core.Book) (*Index, error) {
	idx := NewIndex()
	if err := b.AppendTo(ctx, idx, books); err != nil {
		return nil, err
	}
	b.logger.Info("semantic index built", "records", idx.Len(), "dim", idx.Dimension())
	return idx, nil
}

// AppendTo embeds new records and appends them to an existing index,
// leaving prior entries untouched. Input order is preserved even though
// batches embed concurrently.
func (b *Builder) AppendTo(ctx context.Context, idx *Index, books []core.Book) error {
	if idx == nil {
		return ErrIndexRequired
	}
	if len(books) == 0 {
		return nil
	}

	vectors := make([][]float32, len(books))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		batchErr error
	)

	for start := 0; start < len(books); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(books) {
			end = len(books)
		}
		offset := start
		batch := books[start:end]

		wg.Add(1)
		task := func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, book := range batch {
				texts[i] = BuildText(book)
			}

			embedded, err := b.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				errOnce.Do(func() { batchErr = err })
				return
			}
			if len(embedded) != len(batch) {
				errOnce.Do(func() { batchErr = ErrAlignment })
				return
			}
			// Write into the preallocated slice at the batch offset so
			// concurrent batches cannot reorder records.
			copy(vectors[offset:], embedded)
		}

		if err := b.pool.Submit(task); err != nil {
			wg.Done()
			errOnce.Do(func() { batchErr = err })
			break
		}
	}

	wg.Wait()
	if batchErr != nil {
		return fmt.Errorf("embedding batch failed: %w", batchErr)
	}

	return idx.Append(vectors, books)
}

// Release releases the worker pool. The builder should not be used after
// calling Release.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
