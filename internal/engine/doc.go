// Package engine runs top-K keyword search over candidate networks.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// One Engine answers one query at a time. Every block of every candidate
// network sits in one max-priority queue keyed by its current score,
// whatever state that score is in:
//
//	USCORE  bound for the block and every block reachable from it
//	BSCORE  bound for the block's own joined tuples
//	SCORE   best real score after execution (never queued)
//
// Loop:
//  1. Pop the best block.
//  2. USCORE: tighten to BSCORE, re-push, push its adjacent blocks.
//  3. BSCORE: execute one SQL join, score every row, keep the best K.
//
// The loop stops when the queue is empty or when K results exist and the
// queue head cannot beat the K-th. Since uscore ≥ bscore ≥ real score and
// every ungenerated block is dominated by a queued ancestor, stopping is
// sound: no unexecuted block can contribute to the top K.
//
// Determinism:
// Queue ties break BSCORE before USCORE, then by push order. Result ties
// break by network key, then row ids.
//
// Failures:
// Executor errors (missing FK, SQL failure, timeout) are logged and the
// block contributes nothing. Invariant violations abort the query.
package engine
