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

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when an index is not provided.
	ErrIndexRequired = errors.New("index required")

	// ErrAlignment is returned when vectors and records are not paired 1:1.
	ErrAlignment = errors.New("vector and record counts do not match")

	// ErrDimensionMismatch is returned when a vector's dimension differs
	// from the dimension already established in the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyVector is returned when a zero-length vector is appended.
	ErrEmptyVector = errors.New("embedding vector cannot be empty")

	// ErrIndexLoadFailed wraps any failure to load a persisted index.
	ErrIndexLoadFailed = errors.New("failed to load semantic index")
)
