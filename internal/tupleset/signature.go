package tupleset

import (
	"slices"
	"strconv"
	"strings"
)

// Signature is a keyword-occurrence vector over the query's keyword order.
type Signature []int

// NewSignature returns the zero signature for q.
func NewSignature(q *Query) Signature {
	return make(Signature, q.Len())
}

// SignatureOf builds a signature from per-keyword counts keyed by keyword.
// Keywords absent from q are ignored.
func SignatureOf(q *Query, counts map[string]int) Signature {
	sig := NewSignature(q)
	for kw, n := range counts {
		if i := q.Index(kw); i >= 0 {
			sig[i] = n
		}
	}
	return sig
}

// Add returns the element-wise sum of s and other.
// Panics with *InvariantError on a length mismatch.
func (s Signature) Add(other Signature) Signature {
	if len(s) != len(other) {
		panic(Invariantf("Signature.Add", "length mismatch %d != %d", len(s), len(other)))
	}
	out := make(Signature, len(s))
	for i := range s {
		out[i] = s[i] + other[i]
	}
	return out
}

// Covers returns the positions with a non-zero count.
func (s Signature) Covers() KeywordSet {
	var ks KeywordSet
	for i, n := range s {
		if n > 0 {
			ks = ks.With(i)
		}
	}
	return ks
}

// Equal reports element-wise equality.
func (s Signature) Equal(other Signature) bool {
	return slices.Equal(s, other)
}

// Total returns the sum of all counts.
func (s Signature) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Compare orders signatures lexicographically.
func (s Signature) Compare(other Signature) int {
	return slices.Compare(s, other)
}

// Key is a stable string form used for grouping.
func (s Signature) Key() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = strconv.Itoa(n)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
