// Package block splits a candidate network into blocks: one choice of
// stratum per distinct non-free tuple set. Blocks form a lattice over their
// index vectors and are produced lazily, each with an upper bound on the
// score of every joined tuple it or its lattice descendants can produce.
//
// Scoring:
//
//	score(J)  = sizeNorm · A(tf) · B(tf) · L(J)
//	A(tf)     = Σ_k w(tf_k)·idf_k / Σ idf_k,  w(t) = 1 + ln(1 + ln t), w(0) = 0
//	B(tf)     = 1 − (Σ_k (1 − min(1, tf_k/maxTf_k))^P / m)^(1/P)
//	L(J)      = mean mapper score of J's non-free tuples
//
// A and B are non-decreasing in every tf_k and L ≤ 1, which is what makes
// BSCORE and USCORE bounds sound.
package block
