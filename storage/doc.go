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


// Package storage defines the persistence contracts consumed by the search
// pipeline and the binary serialization for everything the system persists.
//
// Two repository interfaces live here:
//
//   - BookRepository: the durable book catalog with filterable lookup,
//     field updates and popularity counters (implemented by storage/sqlite)
//   - UsageRepository: the durable daily call counter gating the live
//     source (implemented by storage/badger)
//
// Constructors in the implementation packages return these interfaces to
// keep the pipeline decoupled from the concrete engines.
package storage
