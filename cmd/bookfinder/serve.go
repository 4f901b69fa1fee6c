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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/kittylit/bookfinder"
	"github.com/kittylit/bookfinder/agent"
	"github.com/kittylit/bookfinder/ai"
	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/telemetry"
)

const (
	correlationHeader = "X-Correlation-ID"
	shutdownTimeout   = 10 * time.Second
)

func serveCommand(c *cli.Context) error {
	logger := slog.Default()

	telemetry.Register()
	sink := telemetry.NewFanoutSink(
		telemetry.NewSlogSink(logger),
		telemetry.NewPrometheusSink(),
	)

	opts := []bookfinder.AppOption{
		bookfinder.WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)),
		bookfinder.WithDailyLimit(c.Int("daily-limit")),
		bookfinder.WithTelemetrySink(sink),
		bookfinder.WithLogger(logger),
	}
	if addr := c.String("redis-addr"); addr != "" {
		opts = append(opts, bookfinder.WithRedisCache(addr))
	} else if c.Bool("durable-cache") {
		opts = append(opts, bookfinder.WithDurableCache())
	}

	app, err := bookfinder.New(c.String("data-dir"), opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	router := newRouter(app.Orchestrator(), logger)
	server := &http.Server{
		Addr:    c.String("addr"),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func newRouter(orchestrator *agent.Orchestrator, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationID)

	r.Post("/search", searchHandler(orchestrator, logger))
	r.Get("/metrics", telemetry.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type correlationKey struct{}

// correlationID propagates the caller's X-Correlation-ID, minting a ULID
// when the header is absent.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(correlationHeader, id)
		ctx := context.WithValue(r.Context(), correlationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type searchRequest struct {
	Age      string `json:"age"`
	Genre    string `json:"genre"`
	Language string `json:"language"`
	Year     string `json:"year"`
}

func searchHandler(orchestrator *agent.Orchestrator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		cid, _ := r.Context().Value(correlationKey{}).(string)
		resp := orchestrator.HandleQuery(r.Context(), core.RawFilters{
			Age:      req.Age,
			Genre:    req.Genre,
			Language: req.Language,
			Year:     req.Year,
		}, cid)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode search response", "err", err, "correlation_id", cid)
		}
	}
}
