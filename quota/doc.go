// Package quota tracks daily usage of the external book source and gates
// calls against a fixed daily limit.
//
// Counters are keyed by calendar date (UTC), so the count resets implicitly
// at midnight without a scheduled job. Reads and writes go through a
// storage.UsageRepository; the tracker serializes its read-modify-write
// cycles with a mutex so concurrent searches cannot lose increments.
//
// Storage failures fail open: an unreadable counter is treated as zero and
// logged, so a broken quota store degrades to unlimited calls rather than
// blocking every live lookup.
package quota
