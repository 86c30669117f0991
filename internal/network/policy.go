package network

import "github.com/roach88/kwsearch/internal/tupleset"

// Policy decides which networks the generator discards and which it emits.
type Policy interface {
	// Prune reports whether n and every extension of it are useless.
	Prune(q *tupleset.Query, n *Network) bool

	// Accept reports whether n is a valid candidate network.
	Accept(q *tupleset.Query, n *Network) bool
}

// DefaultPolicy prunes structurally degenerate networks and accepts
// minimal networks whose leaves are all non-free.
type DefaultPolicy struct{}

// Prune rejects networks in which a node holds the FK column of two edges
// over the same foreign key.
func (DefaultPolicy) Prune(_ *tupleset.Query, n *Network) bool {
	return n.Degenerate()
}

// Accept requires that every leaf is non-free, the keywords covered by
// the network satisfy the query semantics, and no leaf is redundant:
// dropping any leaf of a multi-node network must lose a keyword.
func (DefaultPolicy) Accept(q *tupleset.Query, n *Network) bool {
	if q.Len() == 0 {
		return false
	}
	leaves := n.Leaves()
	for _, i := range leaves {
		if n.Nodes[i].TupleSet.Free {
			return false
		}
	}
	if !Satisfies(q, n.Keywords()) {
		return false
	}
	if n.Size() == 1 {
		return true
	}
	covered := n.Keywords()
	for _, i := range leaves {
		if n.keywordsWithout(i).Contains(covered) {
			return false
		}
	}
	return true
}

// Satisfies reports whether ks meets the query semantics: every keyword
// under AND, at least one under OR.
func Satisfies(q *tupleset.Query, ks tupleset.KeywordSet) bool {
	if q.Semantics == tupleset.And {
		return ks.Contains(q.All())
	}
	return !ks.Empty()
}

// Total reports whether n covers every query keyword.
func Total(q *tupleset.Query, n *Network) bool {
	return n.Keywords().Contains(q.All())
}
