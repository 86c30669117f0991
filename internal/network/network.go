// Package network enumerates candidate networks: trees of tuple sets
// connected along foreign keys, each one a possible join answering a
// keyword query.
//
// Networks are stored as an arena of nodes addressed by index. Node 0 is
// the root; every other node records its parent index and the FK edge to
// it. A Network is never mutated after construction: Attach clones the
// arena and appends, so networks can be shared freely between the
// generator, the engine and the executor.
package network

import (
	"sort"
	"strings"

	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// Node is one tuple set occurrence in a network.
type Node struct {
	// Parent is the index of the parent node, -1 for the root.
	Parent int

	TupleSet *tupleset.TupleSet

	// FK is the edge to the parent. Zero for the root.
	FK schema.ForeignKey

	// ChildIsFrom reports whether this node holds the FK column of the
	// edge to its parent.
	ChildIsFrom bool
}

// Network is a candidate network.
type Network struct {
	Nodes []Node

	key string
}

// New returns the single-node network rooted at ts.
func New(ts *tupleset.TupleSet) *Network {
	return &Network{Nodes: []Node{{Parent: -1, TupleSet: ts}}}
}

// Attach returns a copy of n with ts added as a child of node parent.
func (n *Network) Attach(parent int, ts *tupleset.TupleSet, fk schema.ForeignKey, childIsFrom bool) *Network {
	nodes := make([]Node, len(n.Nodes), len(n.Nodes)+1)
	copy(nodes, n.Nodes)
	nodes = append(nodes, Node{
		Parent:      parent,
		TupleSet:    ts,
		FK:          fk,
		ChildIsFrom: childIsFrom,
	})
	return &Network{Nodes: nodes}
}

// Size returns the number of nodes.
func (n *Network) Size() int {
	return len(n.Nodes)
}

// Children returns the child indexes of node i in insertion order.
func (n *Network) Children(i int) []int {
	var out []int
	for j := range n.Nodes {
		if n.Nodes[j].Parent == i {
			out = append(out, j)
		}
	}
	return out
}

// link is one undirected edge as seen from a node.
type link struct {
	other int
	fk    schema.ForeignKey

	// selfIsFrom reports whether the observing node holds the FK column.
	selfIsFrom bool
}

// links returns every edge incident to node i: the parent edge first,
// then child edges in insertion order.
func (n *Network) links(i int) []link {
	var out []link
	if p := n.Nodes[i].Parent; p >= 0 {
		out = append(out, link{other: p, fk: n.Nodes[i].FK, selfIsFrom: n.Nodes[i].ChildIsFrom})
	}
	for _, c := range n.Children(i) {
		out = append(out, link{other: c, fk: n.Nodes[c].FK, selfIsFrom: !n.Nodes[c].ChildIsFrom})
	}
	return out
}

// Degree returns the number of edges incident to node i.
func (n *Network) Degree(i int) int {
	return len(n.links(i))
}

// Leaves returns the indexes of nodes with at most one neighbor.
// A single-node network's root is a leaf.
func (n *Network) Leaves() []int {
	var out []int
	for i := range n.Nodes {
		if n.Degree(i) <= 1 {
			out = append(out, i)
		}
	}
	return out
}

// NonFree returns the indexes of nodes holding non-free tuple sets.
func (n *Network) NonFree() []int {
	var out []int
	for i, node := range n.Nodes {
		if !node.TupleSet.Free {
			out = append(out, i)
		}
	}
	return out
}

// DistinctNonFree returns the distinct non-free tuple sets, sorted by ID.
// This order is the canonical position order of a block's index vector.
func (n *Network) DistinctNonFree() []*tupleset.TupleSet {
	seen := make(map[*tupleset.TupleSet]bool)
	var out []*tupleset.TupleSet
	for _, node := range n.Nodes {
		ts := node.TupleSet
		if ts.Free || seen[ts] {
			continue
		}
		seen[ts] = true
		out = append(out, ts)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Keywords returns the union of keywords covered by the non-free nodes.
func (n *Network) Keywords() tupleset.KeywordSet {
	var ks tupleset.KeywordSet
	for _, node := range n.Nodes {
		ks = ks.Union(node.TupleSet.Keywords)
	}
	return ks
}

// keywordsWithout returns the keyword union of every node except skip.
func (n *Network) keywordsWithout(skip int) tupleset.KeywordSet {
	var ks tupleset.KeywordSet
	for i, node := range n.Nodes {
		if i != skip {
			ks = ks.Union(node.TupleSet.Keywords)
		}
	}
	return ks
}

// Degenerate reports whether some node is the FK-holding side of two edges
// over the same foreign key. Both neighbors would have to be the single
// row the FK column points to, so the network can only repeat a row.
func (n *Network) Degenerate() bool {
	for i := range n.Nodes {
		if n.degenerateAt(i) {
			return true
		}
	}
	return false
}

func (n *Network) degenerateAt(i int) bool {
	seen := make(map[string]bool)
	for _, l := range n.links(i) {
		if !l.selfIsFrom {
			continue
		}
		if seen[l.fk.Name] {
			return true
		}
		seen[l.fk.Name] = true
	}
	return false
}

// Key returns the content-addressed identity of the network.
// Networks equal up to child order and choice of root share a key.
func (n *Network) Key() string {
	if n.key == "" {
		n.key = Key(n)
	}
	return n.key
}

// String renders the network rooted at node 0, e.g.
//
//	author^{alpha}(<writes_author writes(>writes_paper paper^{beta}))
func (n *Network) String() string {
	var b strings.Builder
	n.render(&b, 0)
	return b.String()
}

func (n *Network) render(b *strings.Builder, i int) {
	node := n.Nodes[i]
	if node.Parent >= 0 {
		b.WriteString(edgeLabel(node))
		b.WriteByte(' ')
	}
	b.WriteString(node.TupleSet.ID())
	children := n.Children(i)
	if len(children) == 0 {
		return
	}
	b.WriteByte('(')
	for k, c := range children {
		if k > 0 {
			b.WriteString(", ")
		}
		n.render(b, c)
	}
	b.WriteByte(')')
}

// edgeLabel describes the edge from a node's parent to the node: "<fk"
// when the child holds the FK column, ">fk" when the parent does.
func edgeLabel(node Node) string {
	if node.ChildIsFrom {
		return "<" + node.FK.Name
	}
	return ">" + node.FK.Name
}
