// Package livesource fetches book data from the Google Books volumes API.
//
// Every fetch is metered against the daily quota through a QuotaGate; an
// attempt is counted whether or not it succeeds, matching how the
// upstream API meters its own limits. Responses are normalized into the
// internal book shape, preferring ISBN-13 identifiers, and tagged with
// the live source.
//
// Transient failures retry with exponential backoff. A fetch that fails
// after all attempts surfaces an error; the caller treats the tier as
// having produced nothing.
package livesource
