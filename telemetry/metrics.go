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


package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kittylit/bookfinder/core"
)

var (
	// Counter: queries served, labeled by the advisory source hint.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_queries_total",
			Help: "Total number of search queries by decision hint.",
		},
		[]string{"hint"},
	)

	// Counter: items contributed per tier.
	TierItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_tier_items_total",
			Help: "Total number of items contributed by each tier.",
		},
		[]string{"tier"},
	)

	// Histogram: per-tier latency in seconds.
	TierLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookfinder_tier_latency_seconds",
			Help:    "Per-tier wall-clock latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tier"},
	)

	// Histogram: end-to-end query latency in seconds.
	QueryLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookfinder_query_latency_seconds",
			Help:    "End-to-end query latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		QueriesTotal,
		TierItemsTotal,
		TierLatencySeconds,
		QueryLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// PrometheusSink folds query metadata into the package metrics.
type PrometheusSink struct{}

// NewPrometheusSink creates a metrics-recording sink. Register must have
// been called for its observations to be scraped.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// Emit records counters and latency observations from query metadata.
// Non-metadata payloads are ignored.
func (*PrometheusSink) Emit(_ string, payload any) {
	md, ok := payload.(core.Metadata)
	if !ok {
		return
	}

	QueriesTotal.WithLabelValues(string(md.SourceSelected)).Inc()

	TierItemsTotal.WithLabelValues("cache").Add(float64(md.Counts.Cache))
	TierItemsTotal.WithLabelValues("store").Add(float64(md.Counts.Store))
	TierItemsTotal.WithLabelValues("live").Add(float64(md.Counts.Live))
	TierItemsTotal.WithLabelValues("semantic").Add(float64(md.Counts.Semantic))

	TierLatencySeconds.WithLabelValues("cache").Observe(float64(md.LatenciesMS.Cache) / 1000)
	TierLatencySeconds.WithLabelValues("store").Observe(float64(md.LatenciesMS.Store) / 1000)
	TierLatencySeconds.WithLabelValues("live").Observe(float64(md.LatenciesMS.Live) / 1000)
	TierLatencySeconds.WithLabelValues("semantic").Observe(float64(md.LatenciesMS.Semantic) / 1000)
	QueryLatencySeconds.Observe(float64(md.LatenciesMS.Total) / 1000)
}
