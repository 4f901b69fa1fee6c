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


package agent

import "errors"

var (
	// ErrCacheRequired is returned when a cache store is not provided.
	ErrCacheRequired = errors.New("cache store required")

	// ErrCatalogRequired is returned when a book catalog is not provided.
	ErrCatalogRequired = errors.New("book catalog required")

	// ErrLiveSourceRequired is returned when a live source is not provided.
	ErrLiveSourceRequired = errors.New("live source required")

	// ErrSemanticRequired is returned when a semantic searcher is not provided.
	ErrSemanticRequired = errors.New("semantic searcher required")

	// ErrQuotaRequired is returned when a quota gate is not provided.
	ErrQuotaRequired = errors.New("quota gate required")
)
