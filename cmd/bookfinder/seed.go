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


package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kittylit/bookfinder"
	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage/sqlite"
)

// datasetRecord mirrors one entry of the JSON book dataset. Field names
// vary slightly between dataset revisions, hence the alternates.
type datasetRecord struct {
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Isbn         string   `json:"isbn"`
	Language     string   `json:"language"`
	Genre        string   `json:"genre"`
	PubYear      string   `json:"pub_year"`
	Year         string   `json:"year"`
	Age          string   `json:"age"`
	AgeGroup     string   `json:"age_group"`
	Description  string   `json:"description"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Popularity   int      `json:"popularity"`
}

func (r datasetRecord) toBook() core.Book {
	year := r.PubYear
	if year == "" {
		year = r.Year
	}
	age := r.Age
	if age == "" {
		age = r.AgeGroup
	}
	return core.Book{
		Title:           strings.TrimSpace(r.Title),
		Author:          strings.Join(r.Authors, ", "),
		Description:     r.Description,
		Isbn:            strings.TrimSpace(r.Isbn),
		Genre:           core.CanonicalGenre(r.Genre),
		Language:        strings.ToLower(strings.TrimSpace(r.Language)),
		AgeGroup:        strings.TrimSpace(age),
		PublicationYear: strings.TrimSpace(year),
		ThumbnailURL:    r.ThumbnailURL,
		Source:          core.SourceSeed,
		Popularity:      r.Popularity,
	}
}

func seedCommand(c *cli.Context) error {
	logger := slog.Default()
	dataDir := c.String("data-dir")
	src := c.String("src")

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read dataset %s: %w", src, err)
	}

	var records []datasetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse dataset %s: %w", src, err)
	}
	logger.Info("dataset loaded", "src", src, "records", len(records))

	catalogPath := filepath.Join(dataDir, bookfinder.CatalogFile)
	catalog, err := sqlite.Open(catalogPath, sqlite.WithLogger(logger))
	if err != nil {
		return err
	}
	defer catalog.Close()

	inserted := make([]core.Book, 0, len(records))
	skipped := 0
	for _, rec := range records {
		book := rec.toBook()
		if err := core.ValidateBook(&book); err != nil {
			logger.Warn("skipping invalid record", "title", rec.Title, "err", err)
			skipped++
			continue
		}

		added, err := catalog.InsertBook(c.Context, &book)
		if err != nil {
			return fmt.Errorf("failed to insert %q: %w", book.Title, err)
		}
		if !added {
			skipped++
			continue
		}
		inserted = append(inserted, book)
	}
	logger.Info("catalog seeded", "inserted", len(inserted), "skipped", skipped)

	if len(inserted) == 0 {
		return nil
	}

	provider, err := newEmbeddingProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	indexPath := filepath.Join(dataDir, bookfinder.IndexFile)
	if _, err := os.Stat(indexPath); err == nil {
		logger.Info("appending new records to semantic index", "index", indexPath, "records", len(inserted))
		return bookfinder.AppendToIndex(c.Context, indexPath, inserted, provider.Embedder(), logger)
	}

	logger.Info("no existing index, building from full catalog", "index", indexPath)
	return bookfinder.RebuildIndex(c.Context, catalogPath, indexPath, provider.Embedder(), logger)
}
