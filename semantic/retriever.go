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
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/kittylit/bookfinder/ai"
	"github.com/kittylit/bookfinder/core"
)

const (
	// DefaultCandidates is how many nearest neighbors are pulled from the
	// index before filtering.
	DefaultCandidates = 50

	// DefaultLimit is the size of the returned top slice.
	DefaultLimit = 10

	// agePenalty is added to a candidate's distance when its declared age
	// range does not contain the requested age.
	agePenalty = 0.3

	// yearPenalty is added when the candidate's publication year falls
	// outside the requested range. Larger than the age penalty: a wrong
	// era matters more than a near-miss age band.
	yearPenalty = 0.5
)

// Retriever answers filter queries from the shared index. Stateless per
// query beyond reading the index.
type Retriever struct {
	index      *Index
	embedder   ai.Embedder
	candidates int
	limit      int
	logger     *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithCandidates sets how many neighbors to pull before filtering.
// Default is DefaultCandidates.
func WithCandidates(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.candidates = n
		}
	}
}

// WithLimit sets the size of the returned top slice.
// Default is DefaultLimit.
func WithLimit(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithRetrieverLogger sets a custom logger.
// Default is slog.Default().
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index *Index, embedder ai.Embedder, opts ...RetrieverOption) (*Retriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		index:      index,
		embedder:   embedder,
		candidates: DefaultCandidates,
		limit:      DefaultLimit,
		logger:     slog.Default().With("component", "semantic"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Search embeds a synthetic query text built from the active filters and
// returns the best-matching records, closest first. Hard filters exclude
// candidates outright; soft filters penalize their distance but keep
// them. Each returned book carries its (possibly penalized) distance in
// Similarity and is tagged with the semantic source.
func (r *Retriever) Search(ctx context.Context, query core.Query) ([]core.Book, error) {
	text := queryText(query)
	if text == "" {
		return nil, nil
	}

	vec, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	matches := r.index.Search(vec, r.candidates)
	r.logger.Debug("semantic neighbors retrieved", "query", text, "candidates", len(matches))

	yearRange, yearRangeOK := parseYearRange(query.PublicationYear)
	if query.PublicationYear != "" && !yearRangeOK {
		r.logger.Warn("unparseable year filter, skipping year penalty", "value", query.PublicationYear)
	}

	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		if query.Language != "" && !strings.EqualFold(m.Book.Language, query.Language) {
			continue
		}
		if query.Genre != "" && !strings.Contains(strings.ToLower(m.Book.Genre), strings.ToLower(query.Genre)) {
			continue
		}

		if query.AgeGroup != "" {
			contained, err := ageRangeContains(m.Book.AgeGroup, query.AgeGroup)
			if err != nil {
				r.logger.Debug("age parse failure, candidate not penalized",
					"title", m.Book.Title, "age_group", m.Book.AgeGroup, "err", err)
			} else if !contained {
				m.Distance += agePenalty
			}
		}

		if yearRangeOK {
			year, err := strconv.Atoi(strings.TrimSpace(m.Book.PublicationYear))
			if err != nil {
				r.logger.Debug("year parse failure, candidate not penalized",
					"title", m.Book.Title, "publication_year", m.Book.PublicationYear, "err", err)
			} else if year < yearRange[0] || year > yearRange[1] {
				m.Distance += yearPenalty
			}
		}

		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Distance < kept[j].Distance
	})
	if len(kept) > r.limit {
		kept = kept[:r.limit]
	}

	books := make([]core.Book, 0, len(kept))
	for _, m := range kept {
		book := m.Book
		book.Similarity = m.Distance
		book.Source = core.SourceSemanticIndex
		books = append(books, book)
	}
	return books, nil
}

// queryText joins the active filters into the synthetic query string,
// using the same convention the index was built with.
func queryText(q core.Query) string {
	parts := make([]string, 0, 4)
	if q.Language != "" {
		parts = append(parts, q.Language)
	}
	if q.Genre != "" {
		parts = append(parts, q.Genre)
	}
	if q.AgeGroup != "" {
		parts = append(parts, "age "+q.AgeGroup)
	}
	if q.PublicationYear != "" {
		parts = append(parts, q.PublicationYear)
	}
	return strings.Join(parts, " ")
}

// ageRangeContains reports whether the declared "start-end" age range
// contains the requested age.
func ageRangeContains(declared, requested string) (bool, error) {
	lo, hi, err := splitIntRange(declared)
	if err != nil {
		return false, err
	}
	age, err := strconv.Atoi(strings.TrimSpace(requested))
	if err != nil {
		return false, err
	}
	return lo <= age && age <= hi, nil
}

// parseYearRange accepts "start-end" or a single year (treated as a
// one-year range).
func parseYearRange(value string) ([2]int, bool) {
	value = strings.ReplaceAll(value, " ", "")
	if value == "" {
		return [2]int{}, false
	}
	if strings.Contains(value, "-") {
		lo, hi, err := splitIntRange(value)
		if err != nil {
			return [2]int{}, false
		}
		return [2]int{lo, hi}, true
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return [2]int{}, false
	}
	return [2]int{year, year}, true
}

func splitIntRange(value string) (int, int, error) {
	lo, hiStr, found := strings.Cut(strings.TrimSpace(value), "-")
	if !found {
		return 0, 0, strconv.ErrSyntax
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(strings.TrimSpace(hiStr))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
