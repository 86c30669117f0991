package tupleset

import (
	"sort"

	"github.com/roach88/kwsearch/internal/schema"
)

// Neighbor is a tuple set reachable over one FK edge.
type Neighbor struct {
	TupleSet *TupleSet
	Edge     schema.Edge
}

// Graph is the FK adjacency between the tuple sets of one query.
//
// Every schema table contributes its free tuple set; tables with matches
// additionally contribute one non-free tuple set per covered keyword
// subset. A free tuple set excludes the rows of its table's non-free
// sets, so every row belongs to exactly one tuple set.
type Graph struct {
	schema  *schema.Graph
	free    map[string]*TupleSet
	nonFree map[string][]*TupleSet
	ordered []*TupleSet
}

// NewGraph indexes the non-free tuple sets of a query against the schema.
// Free tuple sets are created for every table; tableSizes supplies their
// row counts (missing entries count as zero).
func NewGraph(g *schema.Graph, nonFree []*TupleSet, tableSizes map[string]int) *Graph {
	tg := &Graph{
		schema:  g,
		free:    make(map[string]*TupleSet),
		nonFree: make(map[string][]*TupleSet),
	}
	for _, t := range g.Schema().Tables {
		tg.free[t.Name] = FreeTupleSet(t.Name, tableSizes[t.Name])
	}
	for _, ts := range nonFree {
		if ts.Free || ts.Len() == 0 {
			continue
		}
		tg.nonFree[ts.Table] = append(tg.nonFree[ts.Table], ts)
		tg.ordered = append(tg.ordered, ts)
		if free, ok := tg.free[ts.Table]; ok {
			free.Excluded = append(free.Excluded, ts.RowIDs()...)
		}
	}
	for _, free := range tg.free {
		sort.Slice(free.Excluded, func(i, j int) bool { return free.Excluded[i] < free.Excluded[j] })
	}
	for _, sets := range tg.nonFree {
		sort.SliceStable(sets, func(i, j int) bool { return sets[i].ID() < sets[j].ID() })
	}
	sort.SliceStable(tg.ordered, func(i, j int) bool {
		return tg.ordered[i].ID() < tg.ordered[j].ID()
	})
	return tg
}

// Schema returns the underlying schema graph.
func (g *Graph) Schema() *schema.Graph {
	return g.schema
}

// NonFree returns the non-empty non-free tuple sets sorted by ID.
func (g *Graph) NonFree() []*TupleSet {
	return g.ordered
}

// Free returns the free tuple set of table.
func (g *Graph) Free(table string) *TupleSet {
	return g.free[table]
}

// Neighbors returns every tuple set FK-adjacent to ts: for each schema
// edge, the neighbor table's free tuple set followed by its non-free ones.
func (g *Graph) Neighbors(ts *TupleSet) []Neighbor {
	var out []Neighbor
	for _, e := range g.schema.Adjacent(ts.Table) {
		if free, ok := g.free[e.Neighbor]; ok {
			out = append(out, Neighbor{TupleSet: free, Edge: e})
		}
		for _, nf := range g.nonFree[e.Neighbor] {
			out = append(out, Neighbor{TupleSet: nf, Edge: e})
		}
	}
	return out
}
