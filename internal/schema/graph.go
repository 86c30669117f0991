package schema

import (
	"sort"
)

// Edge is one FK adjacency seen from a table.
type Edge struct {
	FK       ForeignKey
	Neighbor string

	// NeighborIsFrom reports whether the neighbor holds the FK column.
	// For self-referencing FKs both directions are listed.
	NeighborIsFrom bool
}

// Graph answers FK adjacency questions over a schema, direction-agnostic.
//
// Adjacency lists are sorted by FK name then direction so that every
// traversal of the graph is deterministic.
type Graph struct {
	schema    *Schema
	adjacency map[string][]Edge
}

// NewGraph builds the adjacency lists of s. The schema must be valid.
func NewGraph(s *Schema) *Graph {
	g := &Graph{
		schema:    s,
		adjacency: make(map[string][]Edge, len(s.Tables)),
	}
	for _, fk := range s.ForeignKeys {
		g.adjacency[fk.FromTable] = append(g.adjacency[fk.FromTable], Edge{
			FK:             fk,
			Neighbor:       fk.ToTable,
			NeighborIsFrom: false,
		})
		g.adjacency[fk.ToTable] = append(g.adjacency[fk.ToTable], Edge{
			FK:             fk,
			Neighbor:       fk.FromTable,
			NeighborIsFrom: true,
		})
	}
	for table := range g.adjacency {
		edges := g.adjacency[table]
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].FK.Name != edges[j].FK.Name {
				return edges[i].FK.Name < edges[j].FK.Name
			}
			return !edges[i].NeighborIsFrom && edges[j].NeighborIsFrom
		})
	}
	return g
}

// Schema returns the underlying schema.
func (g *Graph) Schema() *Schema {
	return g.schema
}

// Adjacent returns the FK edges touching table.
func (g *Graph) Adjacent(table string) []Edge {
	return g.adjacency[table]
}

// JoinEdge returns the FK named fkName when it connects a and b in either
// direction. ok is false when the pair is not joinable through that FK.
func (g *Graph) JoinEdge(a, b, fkName string) (ForeignKey, bool) {
	for _, e := range g.adjacency[a] {
		if e.FK.Name == fkName && e.Neighbor == b {
			return e.FK, true
		}
	}
	return ForeignKey{}, false
}

// Joinable reports whether any FK connects a and b.
func (g *Graph) Joinable(a, b string) bool {
	for _, e := range g.adjacency[a] {
		if e.Neighbor == b {
			return true
		}
	}
	return false
}
