// Package tupleset holds the per-query model of matched rows.
//
// A Query is the explicit per-query context: the ordered keyword list and
// the AND/OR semantics. Every Signature, TupleSet and Stratum is built
// against one Query, so several queries can run side by side without any
// shared global state.
//
// Rows of one table that match at least one keyword form a non-free
// TupleSet. Stratify partitions a tuple set by identical keyword-frequency
// Signature into Strata ranked by watf, the idf-weighted normalized
// frequency. Stratum ranks are what blocks index into.
//
// INVARIANTS:
//   - Signature length == number of query keywords
//   - TupleSet tuples are sorted by score descending (row id ascending on ties)
//   - Stratum watf is non-increasing with rank
//
// Breaches of these invariants raise *InvariantError; callers treat them
// as fatal because the engine's score bounds no longer hold.
package tupleset
