package core

import (
	"strings"
	"time"
)

// SourceHint is the advisory tier preference computed before tier execution.
// The orchestrator treats it as a hint, not a hard switch: tiers still fall
// through on empty results regardless of the hint.
type SourceHint string

const (
	// HintCache indicates a fresh cache entry is available.
	HintCache SourceHint = "cache"
	// HintLive indicates the live source quota still has budget.
	HintLive SourceHint = "live"
	// HintSemantic indicates both cache and quota are exhausted.
	HintSemantic SourceHint = "semantic"
)

// Source tags recorded on every Book at its tier boundary.
const (
	SourceGoogleBooks   = "google_books"
	SourceCatalog       = "catalog"
	SourceSemanticIndex = "semantic_index"
	SourceSeed          = "seed"
)

// Book is the single schema shared by every tier, the merger and the ranker.
// All tiers normalize into it at their boundary.
type Book struct {
	Title           string
	Author          string
	Description     string
	Isbn            string // identity key for the catalog and popularity; empty when the source supplied none
	Genre           string
	Language        string
	AgeGroup        string // declared age range, e.g. "3-5"
	PublicationYear string // single year, e.g. "2014"
	ThumbnailURL    string
	Source          string
	Popularity      int
	Similarity      float64 // L2 distance, set only by the semantic tier; lower is more similar
}

// NormalizedTitle returns the dedup key used by the result merger.
func (b *Book) NormalizedTitle() string {
	return strings.ToLower(strings.TrimSpace(b.Title))
}

// Query is the normalized filter set for a catalog search.
// All fields are optional; empty means "no constraint".
type Query struct {
	AgeGroup        string
	Genre           string
	Language        string
	PublicationYear string // single year or a "start-end" range
}

// IsZero reports whether no filter is set.
func (q Query) IsZero() bool {
	return q.AgeGroup == "" && q.Genre == "" && q.Language == "" && q.PublicationYear == ""
}

// CacheEntry is a cached result set for a query hash.
// Entries are overwritten wholesale on re-fetch, never mutated in place.
type CacheEntry struct {
	QueryHash string
	Items     []Book
	Timestamp time.Time
}

// IsFresh reports whether the entry is younger than the expiry window at now.
func (e *CacheEntry) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(e.Timestamp) < window
}

// UsageCounter tracks live source calls for one calendar date.
// The count is the sole gate for live source access and resets implicitly
// when the date rolls over.
type UsageCounter struct {
	Date  string // "2006-01-02"
	Count int
}

// TierCounts records how many items each tier contributed to a query.
type TierCounts struct {
	Cache    int `json:"cache"`
	Store    int `json:"store"`
	Live     int `json:"live"`
	Semantic int `json:"semantic"`
	TopK     int `json:"top_k"`
}

// TierLatencies records per-tier wall-clock latency in milliseconds.
type TierLatencies struct {
	Decision int64 `json:"decision"`
	Cache    int64 `json:"cache"`
	Store    int64 `json:"store"`
	Live     int64 `json:"live"`
	Semantic int64 `json:"semantic"`
	Total    int64 `json:"total"`
}

// Metadata is the per-query decision trace attached to a response.
// It is immutable once produced.
type Metadata struct {
	QueryHash      string        `json:"query_hash"`
	CorrelationID  string        `json:"correlation_id"`
	SourceSelected SourceHint    `json:"source_selected"`
	Counts         TierCounts    `json:"counts"`
	LatenciesMS    TierLatencies `json:"latencies_ms"`
}

// SearchResponse is the full answer to a filtered search: a bounded top-K
// book list plus observability metadata.
type SearchResponse struct {
	Books    []Book   `json:"books"`
	Metadata Metadata `json:"metadata"`
}
