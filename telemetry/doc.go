// Package telemetry carries per-query trace events out of the search
// pipeline and exposes Prometheus metrics.
//
// Sinks are fire-and-forget: a sink must never block or fail the caller.
// The slog sink writes trace events as structured log lines; the
// Prometheus sink folds them into per-tier counters and latency
// histograms for scraping.
package telemetry
