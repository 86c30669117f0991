package network

import (
	"log/slog"

	"github.com/roach88/kwsearch/internal/tupleset"
)

// DefaultMaxSize bounds the number of nodes in a generated network.
const DefaultMaxSize = 4

// Generator enumerates candidate networks breadth-first.
type Generator struct {
	graph   *tupleset.Graph
	policy  Policy
	maxSize int
	stats   GeneratorStats
}

// GeneratorStats counts generator work for the last Generate call.
type GeneratorStats struct {
	Visited    int
	Pruned     int
	Duplicates int
	Accepted   int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithMaxSize sets the maximum network size. Values below 1 are ignored.
func WithMaxSize(n int) GeneratorOption {
	return func(g *Generator) {
		if n >= 1 {
			g.maxSize = n
		}
	}
}

// WithPolicy replaces the prune and accept predicates.
func WithPolicy(p Policy) GeneratorOption {
	return func(g *Generator) {
		if p != nil {
			g.policy = p
		}
	}
}

// NewGenerator creates a generator over the tuple-set graph of one query.
func NewGenerator(graph *tupleset.Graph, opts ...GeneratorOption) *Generator {
	g := &Generator{
		graph:   graph,
		policy:  DefaultPolicy{},
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Stats returns counters from the last Generate call.
func (g *Generator) Stats() GeneratorStats {
	return g.stats
}

// Generate returns the deduplicated candidate networks for q in
// generation order: by size, then by seed tuple set ID, then by expansion
// order over the tuple-set graph.
//
// A network that is accepted and covers every keyword is not extended;
// any extension would have a redundant leaf.
func (g *Generator) Generate(q *tupleset.Query) []*Network {
	g.stats = GeneratorStats{}
	if q.Len() == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var queue []*Network
	for _, ts := range g.graph.NonFree() {
		n := New(ts)
		if _, dup := seen[n.Key()]; dup {
			continue
		}
		seen[n.Key()] = struct{}{}
		queue = append(queue, n)
	}

	var out []*Network
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		g.stats.Visited++

		if g.policy.Prune(q, n) {
			g.stats.Pruned++
			continue
		}
		accepted := g.policy.Accept(q, n)
		if accepted {
			g.stats.Accepted++
			out = append(out, n)
			slog.Debug("candidate network accepted",
				"query_id", q.ID,
				"network", n.String(),
				"size", n.Size())
			if Total(q, n) {
				continue
			}
		}
		if n.Size() >= g.maxSize {
			continue
		}

		for i := range n.Nodes {
			for _, nb := range g.graph.Neighbors(n.Nodes[i].TupleSet) {
				ext := n.Attach(i, nb.TupleSet, nb.Edge.FK, nb.Edge.NeighborIsFrom)
				if ext.degenerateAt(i) {
					g.stats.Pruned++
					continue
				}
				key := ext.Key()
				if _, dup := seen[key]; dup {
					g.stats.Duplicates++
					continue
				}
				seen[key] = struct{}{}
				queue = append(queue, ext)
			}
		}
	}

	slog.Debug("candidate networks generated",
		"query_id", q.ID,
		"networks", len(out),
		"visited", g.stats.Visited,
		"pruned", g.stats.Pruned,
		"duplicates", g.stats.Duplicates)
	return out
}
