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
	"log/slog"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/kittylit/bookfinder"
	"github.com/kittylit/bookfinder/ai"
	"github.com/kittylit/bookfinder/ai/openai"
)

func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory holding the catalog and semantic index",
			Value:   "./data",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
		},
	}
}

func newEmbeddingProvider(c *cli.Context) (ai.Provider, error) {
	return openai.NewProvider(ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	))
}

func indexBuildCommand(c *cli.Context) error {
	logger := slog.Default()
	dataDir := c.String("data-dir")

	provider, err := newEmbeddingProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	catalogPath := filepath.Join(dataDir, bookfinder.CatalogFile)
	indexPath := filepath.Join(dataDir, bookfinder.IndexFile)

	logger.Info("rebuilding semantic index", "catalog", catalogPath, "index", indexPath)
	if err := bookfinder.RebuildIndex(c.Context, catalogPath, indexPath, provider.Embedder(), logger); err != nil {
		return err
	}
	logger.Info("semantic index written", "index", indexPath)
	return nil
}

func indexUpdateCommand(c *cli.Context) error {
	logger := slog.Default()
	dataDir := c.String("data-dir")

	provider, err := newEmbeddingProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	appended, err := bookfinder.UpdateIndex(c.Context,
		filepath.Join(dataDir, bookfinder.CatalogFile),
		filepath.Join(dataDir, bookfinder.IndexFile),
		provider.Embedder(), logger)
	if err != nil {
		return err
	}
	logger.Info("semantic index updated", "appended", appended)
	return nil
}
