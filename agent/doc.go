// Package agent orchestrates a filtered book search across four tiers:
// a result cache, the persisted catalog, the live Google Books source
// and the semantic index.
//
// Each query runs sequentially through a fixed state machine: decide an
// advisory source hint, try the tiers, then merge, rank and truncate the
// union of their output. The hint steers only the cache tier; the store
// and live tiers fall through on empty results regardless of the hint,
// and the semantic tier always contributes. This fallthrough is the
// contract, not an accident — see Decide.
//
// Every tier call is isolated at its boundary: an error or panic inside
// a tier means that tier contributed zero items, never a failed query.
// The caller always receives a well-formed response; an empty book list
// is a valid answer, not an error.
package agent
