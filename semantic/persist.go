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
	"fmt"
	"os"

	"github.com/mus-format/mus-go/varint"

	"github.com/kittylit/bookfinder/core"
	"github.com/kittylit/bookfinder/storage"
)

// SaveIndex serializes the index to a single file. The write goes through
// a temporary file and a rename so a crash cannot leave a half-written
// index behind.
func SaveIndex(path string, idx *Index) error {
	if idx == nil {
		return ErrIndexRequired
	}

	vectors, books := idx.snapshot()

	size := varint.Int.Size(len(books))
	for i := range books {
		size += storage.VectorMUS.Size(vectors[i])
		size += storage.BookMUS.Size(books[i])
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(books), buf)
	for i := range books {
		n += storage.VectorMUS.Marshal(vectors[i], buf[n:])
		n += storage.BookMUS.Marshal(books[i], buf[n:])
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// LoadIndex reads a persisted index from disk. Any failure is wrapped in
// ErrIndexLoadFailed; callers treat it as fatal at startup.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, err)
	}

	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, storage.ErrTruncatedData)
	}

	vectors := make([][]float32, 0, count)
	books := make([]core.Book, 0, count)
	for i := 0; i < count; i++ {
		vec, n1, err := storage.VectorMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, err)
		}
		n += n1

		book, n1, err := storage.BookMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, err)
		}
		n += n1

		vectors = append(vectors, vec)
		books = append(books, book)
	}

	idx := NewIndex()
	if err := idx.Append(vectors, books); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoadFailed, err)
	}
	return idx, nil
}
