// Package semantic implements the vector-similarity tier of the search
// pipeline.
//
// The index holds embedding vectors paired positionally with catalog
// records: vector[i] describes book[i]. The pairing is a strict alignment
// invariant; builds and incremental appends preserve order and never
// reorder prior entries.
//
// The builder embeds a deterministic text rendering of each record. The
// retriever embeds a synthetic query text built from the active filters,
// walks the nearest neighbors by L2 distance, applies hard filters
// (exclude) and soft filters (penalize) and returns a fixed-size top
// slice, best matches first. Queries never mutate the index.
//
// The index is persisted to a single file and loaded once at process
// start; a load failure is fatal to the caller, not papered over.
package semantic
