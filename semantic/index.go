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
	"sort"
	"sync"

	"github.com/kittylit/bookfinder/core"
)

// Match pairs a catalog record with its distance to a query vector.
// Lower distance is a better match.
type Match struct {
	Book     core.Book
	Distance float64
}

// Index is a flat in-memory vector index with positionally aligned
// catalog records: vectors[i] describes books[i]. Safe for concurrent
// queries and appends.
type Index struct {
	mu      sync.RWMutex
	vectors [][]float32
	books   []core.Book
	dim     int
}

// NewIndex creates an empty index. The embedding dimension is fixed by
// the first appended vector.
func NewIndex() *Index {
	return &Index{}
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.books)
}

// Dimension returns the embedding dimension, or 0 for an empty index.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Append adds vectors and their records to the end of the index.
// Existing entries are never reordered. Vectors and books must pair 1:1
// and every vector must match the index's established dimension.
func (idx *Index) Append(vectors [][]float32, books []core.Book) error {
	if len(vectors) != len(books) {
		return ErrAlignment
	}
	if len(vectors) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return ErrEmptyVector
		}
		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}

	idx.dim = dim
	idx.vectors = append(idx.vectors, vectors...)
	idx.books = append(idx.books, books...)
	return nil
}

// Search returns up to n records nearest to the query vector by squared
// L2 distance, closest first. An empty index yields no matches.
func (idx *Index) Search(query []float32, n int) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if n <= 0 || len(idx.vectors) == 0 || len(query) != idx.dim {
		return nil
	}

	matches := make([]Match, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		matches = append(matches, Match{
			Book:     idx.books[i],
			Distance: squaredL2(query, vec),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

// Books returns a copy of the indexed records in index order.
func (idx *Index) Books() []core.Book {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	books := make([]core.Book, len(idx.books))
	copy(books, idx.books)
	return books
}

// snapshot copies the aligned slices for persistence.
func (idx *Index) snapshot() ([][]float32, []core.Book) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	vectors := make([][]float32, len(idx.vectors))
	copy(vectors, idx.vectors)
	books := make([]core.Book, len(idx.books))
	copy(books, idx.books)
	return vectors, books
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
