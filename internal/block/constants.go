package block

import (
	"math"

	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/tupleset"
)

const (
	// SizeSlope penalizes each additional network node.
	SizeSlope = 0.15

	// MinSizeNorm is the floor of each size normalization factor.
	MinSizeNorm = 1e-3

	// DefaultCoverageExponent is the P of the coverage term. Higher values
	// punish missing keywords harder.
	DefaultCoverageExponent = 2.0
)

// Constants are the per-network scoring parameters.
type Constants struct {
	tupleset.Weights

	// MaxTF is, per keyword, the largest term frequency any joined tuple of
	// the network can reach.
	MaxTF []int

	SizeNorm float64

	// P is the coverage exponent.
	P float64

	Semantics tupleset.Semantics
}

// NewConstants computes the scoring parameters of n for q.
// A coverage exponent below 1 selects DefaultCoverageExponent.
func NewConstants(q *tupleset.Query, n *network.Network, p float64) Constants {
	if p < 1 || math.IsNaN(p) || math.IsInf(p, 0) {
		p = DefaultCoverageExponent
	}
	m := q.Len()
	c := Constants{
		Weights:   tupleset.Weights{IDF: make([]float64, m)},
		MaxTF:     make([]int, m),
		P:         p,
		Semantics: q.Semantics,
	}

	df := make([]int, m)
	sizes := make(map[string]int)
	for _, ts := range n.DistinctNonFree() {
		sizes[ts.Table] = max(sizes[ts.Table], ts.TableSize, ts.Len())
		for _, t := range ts.Tuples {
			for k, tf := range t.Signature {
				if tf > 0 {
					df[k]++
				}
			}
		}
	}
	total := 0
	for _, size := range sizes {
		total += size
	}
	for k := range c.IDF {
		c.IDF[k] = math.Log(1 + float64(total)/float64(1+df[k]))
		c.SumIDF += c.IDF[k]
	}

	for _, i := range n.NonFree() {
		for k, tf := range maxSignature(m, n.Nodes[i].TupleSet) {
			c.MaxTF[k] += tf
		}
	}

	s2 := 1 / float64(m+1)
	sizeFactor := 1 + SizeSlope - SizeSlope*float64(n.Size())
	nonFreeFactor := 1 + s2 - s2*float64(len(n.NonFree()))
	c.SizeNorm = math.Max(MinSizeNorm, sizeFactor) * math.Max(MinSizeNorm, nonFreeFactor)
	return c
}

// maxSignature returns the element-wise maximum signature of ts.
func maxSignature(m int, ts *tupleset.TupleSet) []int {
	out := make([]int, m)
	for _, t := range ts.Tuples {
		for k, tf := range t.Signature {
			if tf > out[k] {
				out[k] = tf
			}
		}
	}
	return out
}

// Relevance is A(tf): IDF-weighted, log-dampened term frequency in [0, 1+).
func (c Constants) Relevance(tf []int) float64 {
	if c.SumIDF == 0 {
		return 0
	}
	sum := 0.0
	for k, t := range tf {
		if t > 0 {
			sum += (1 + math.Log(1+math.Log(float64(t)))) * c.IDF[k]
		}
	}
	return sum / c.SumIDF
}

// Coverage is B(tf) in [0, 1]. Under AND semantics it is 0 unless every
// keyword occurs.
func (c Constants) Coverage(tf []int) float64 {
	m := len(tf)
	if m == 0 {
		return 0
	}
	sum := 0.0
	for k, t := range tf {
		if t == 0 && c.Semantics == tupleset.And {
			return 0
		}
		ratio := 0.0
		if c.MaxTF[k] > 0 {
			ratio = math.Min(1, float64(t)/float64(c.MaxTF[k]))
		}
		sum += math.Pow(1-ratio, c.P)
	}
	return 1 - math.Pow(sum/float64(m), 1/c.P)
}

// Score combines a keyword vector and the mean tuple factor.
func (c Constants) Score(tf []int, tupleFactor float64) float64 {
	if tupleFactor <= 0 {
		return 0
	}
	return c.SizeNorm * c.Relevance(tf) * c.Coverage(tf) * tupleFactor
}
