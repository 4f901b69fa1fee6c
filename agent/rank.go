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

import (
	"context"
	"sort"

	"github.com/kittylit/bookfinder/core"
)

// rank stable-sorts items descending by popularity; ties keep the
// merger's output order. As a side effect every ranked item carrying
// both an ISBN and a positive popularity bumps the catalog's popularity
// counter by that amount; a per-item failure is logged and the item
// stays in the list.
func (o *Orchestrator) rank(ctx context.Context, items []core.Book) []core.Book {
	ranked := make([]core.Book, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity > ranked[j].Popularity
	})

	for _, book := range ranked {
		if book.Isbn == "" || book.Popularity <= 0 {
			continue
		}
		if err := o.catalog.IncrementPopularity(ctx, book.Isbn, book.Popularity); err != nil {
			o.logger.Warn("failed to update popularity",
				"isbn", book.Isbn, "amount", book.Popularity, "err", err)
		}
	}
	return ranked
}
