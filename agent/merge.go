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

import "github.com/kittylit/bookfinder/core"

// MergeResults concatenates the tier hit lists in their given order and
// de-duplicates by normalized title. On a collision the incoming item
// wins only when its popularity is strictly greater; equal popularity
// keeps the first-seen item. Output preserves first-seen order among
// survivors.
func MergeResults(tiers ...[]core.Book) []core.Book {
	byTitle := make(map[string]int)
	merged := make([]core.Book, 0)

	for _, tier := range tiers {
		for _, book := range tier {
			key := book.NormalizedTitle()
			if idx, seen := byTitle[key]; seen {
				if book.Popularity > merged[idx].Popularity {
					merged[idx] = book
				}
				continue
			}
			byTitle[key] = len(merged)
			merged = append(merged, book)
		}
	}
	return merged
}
