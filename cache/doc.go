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


// Package cache provides the query-result cache tier.
//
// A Store persists MUS-encoded result sets keyed by query hash on top of a
// pluggable byte-level Backend. Two backends ship with the package: an
// in-process map with per-key expiry for development and single-node
// deployments, and a Redis backend for shared deployments. The public
// contract is identical regardless of backend.
//
// Freshness policy deliberately does not live here: the store returns the
// entry's write timestamp and the orchestrator applies the expiry window,
// so the window stays a single tunable constant.
package cache
