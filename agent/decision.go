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
	"time"

	"github.com/kittylit/bookfinder/core"
)

// Decide computes the advisory source hint for a query: a fresh cache
// entry hints cache, remaining quota hints live, otherwise semantic.
// The hint steers only the cache tier; the later tiers fall through on
// empty results regardless (see HandleQuery).
//
// Decide never fails. A cache read error degrades the hint to live to
// keep the pipeline moving.
func (o *Orchestrator) Decide(ctx context.Context, hash string) core.SourceHint {
	entry, ok, err := o.cache.Get(ctx, hash)
	if err != nil {
		o.logger.Warn("decision cache probe failed, degrading hint to live", "err", err)
		return core.HintLive
	}
	if ok && entry.IsFresh(o.now(), o.freshness) {
		return core.HintCache
	}
	if o.quota.CanCall(ctx) {
		return core.HintLive
	}
	return core.HintSemantic
}

// now is split out so tests can pin the clock.
func (o *Orchestrator) now() time.Time {
	return o.clock()
}
