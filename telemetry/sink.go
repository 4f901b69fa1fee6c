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
	"log/slog"

	"github.com/kittylit/bookfinder/core"
)

// Sink receives trace events from the pipeline. Emit must never block
// or panic its caller.
type Sink interface {
	Emit(event string, payload any)
}

// NoopSink discards all events.
type NoopSink struct{}

// Emit does nothing.
func (NoopSink) Emit(string, any) {}

// SlogSink writes trace events as structured log lines.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink writing to the given logger.
// A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "telemetry")}
}

// Emit logs the event. Query metadata gets its fields broken out;
// anything else is logged as an opaque payload.
func (s *SlogSink) Emit(event string, payload any) {
	md, ok := payload.(core.Metadata)
	if !ok {
		s.logger.Info(event, "payload", payload)
		return
	}
	s.logger.Info(event,
		"query_hash", md.QueryHash,
		"correlation_id", md.CorrelationID,
		"source_selected", string(md.SourceSelected),
		"cache_count", md.Counts.Cache,
		"store_count", md.Counts.Store,
		"live_count", md.Counts.Live,
		"semantic_count", md.Counts.Semantic,
		"top_k", md.Counts.TopK,
		"total_ms", md.LatenciesMS.Total,
	)
}

// FanoutSink forwards every event to each of its sinks in order.
type FanoutSink struct {
	sinks []Sink
}

// NewFanoutSink creates a sink broadcasting to the given sinks.
func NewFanoutSink(sinks ...Sink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

// Emit forwards the event to every sink.
func (f *FanoutSink) Emit(event string, payload any) {
	for _, s := range f.sinks {
		s.Emit(event, payload)
	}
}
