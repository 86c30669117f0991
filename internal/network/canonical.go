package network

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/roach88/kwsearch/internal/ir"
)

// Canonical returns the canonical encoding of n as an unrooted tree.
//
// The tree is re-rooted at each of its centers (one or two nodes) and
// encoded as {ts, edge, children} with children sorted by their canonical
// bytes. The smallest encoding wins, so the result is independent of
// child insertion order and of which node was chosen as root.
func Canonical(n *Network) (ir.IRObject, error) {
	var (
		best      ir.IRObject
		bestBytes []byte
	)
	for _, c := range n.centers() {
		obj, data, err := n.encode(c, -1, "")
		if err != nil {
			return nil, err
		}
		if bestBytes == nil || bytes.Compare(data, bestBytes) < 0 {
			best, bestBytes = obj, data
		}
	}
	return best, nil
}

// Key returns SHA256("kwsearch/network/v1" 0x00 canonical) in hex.
func Key(n *Network) string {
	obj, err := Canonical(n)
	if err != nil {
		// Canonical only fails on nil values, which encode never builds.
		panic(fmt.Errorf("network.Key: %w", err))
	}
	return ir.MustNetworkHash(obj)
}

// encode renders the subtree at v, entered from node from over an edge
// labelled edge. Labels describe the edge relative to v so the same edge
// reads identically from either direction of travel.
func (n *Network) encode(v, from int, edge string) (ir.IRObject, []byte, error) {
	type child struct {
		obj  ir.IRObject
		data []byte
	}
	var children []child
	for _, l := range n.links(v) {
		if l.other == from {
			continue
		}
		label := ">" + l.fk.Name
		if !l.selfIsFrom {
			label = "<" + l.fk.Name
		}
		obj, data, err := n.encode(l.other, v, label)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child{obj, data})
	}
	sort.Slice(children, func(i, j int) bool {
		return bytes.Compare(children[i].data, children[j].data) < 0
	})

	arr := make(ir.IRArray, len(children))
	for i, c := range children {
		arr[i] = c.obj
	}
	obj := ir.IRObject{
		"ts":       ir.IRString(n.Nodes[v].TupleSet.ID()),
		"edge":     ir.IRString(edge),
		"children": arr,
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, nil, err
	}
	return obj, data, nil
}

// centers returns the one or two nodes minimizing eccentricity, found by
// repeatedly stripping leaves.
func (n *Network) centers() []int {
	size := len(n.Nodes)
	if size <= 2 {
		out := make([]int, size)
		for i := range out {
			out[i] = i
		}
		return out
	}

	degree := make([]int, size)
	var layer []int
	for i := range n.Nodes {
		degree[i] = n.Degree(i)
		if degree[i] <= 1 {
			layer = append(layer, i)
		}
	}
	remaining := size
	for remaining > 2 {
		remaining -= len(layer)
		var next []int
		for _, leaf := range layer {
			degree[leaf] = 0
			for _, l := range n.links(leaf) {
				if degree[l.other] == 0 {
					continue
				}
				degree[l.other]--
				if degree[l.other] == 1 {
					next = append(next, l.other)
				}
			}
		}
		layer = next
	}
	sort.Ints(layer)
	return layer
}
