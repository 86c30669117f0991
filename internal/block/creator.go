package block

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// Creator produces the blocks of one network lazily.
type Creator struct {
	query   *tupleset.Query
	network *network.Network
	consts  Constants

	// strata[p] are the strata of the p-th distinct non-free tuple set.
	strata [][]*tupleset.Stratum

	// position maps a node index to its position in strata, -1 for free.
	position []int

	// suffixSig[p][i][k] = max_{j≥i} strata[p][j].Signature[k]
	suffixSig [][][]int

	// suffixMax[p][i] = max_{j≥i} strata[p][j].MaxScore
	suffixMax [][]float64

	memo     map[string]struct{}
	produced int
}

// NewCreator stratifies the tuple sets of n and prepares its lattice.
// p is the coverage exponent; see NewConstants.
func NewCreator(q *tupleset.Query, n *network.Network, p float64) (*Creator, error) {
	for _, ts := range n.DistinctNonFree() {
		for _, t := range ts.Tuples {
			if len(t.Signature) != q.Len() {
				return nil, tupleset.Invariantf("NewCreator", "%s row %d: signature length %d != %d keywords",
					ts.ID(), t.RowID, len(t.Signature), q.Len())
			}
		}
	}

	c := &Creator{
		query:    q,
		network:  n,
		consts:   NewConstants(q, n, p),
		position: make([]int, n.Size()),
		memo:     make(map[string]struct{}),
	}

	distinct := n.DistinctNonFree()
	for _, ts := range distinct {
		strata, err := tupleset.Stratify(ts, c.consts.Weights)
		if err != nil {
			return nil, err
		}
		if len(strata) == 0 {
			return nil, tupleset.Invariantf("NewCreator", "non-free tuple set %s has no strata", ts.ID())
		}
		c.strata = append(c.strata, strata)
		c.suffixSig = append(c.suffixSig, suffixSignatures(q.Len(), strata))
		c.suffixMax = append(c.suffixMax, suffixMaxScores(strata))
	}
	for i, node := range n.Nodes {
		c.position[i] = -1
		for p, ts := range distinct {
			if node.TupleSet == ts {
				c.position[i] = p
				break
			}
		}
	}
	return c, nil
}

func suffixSignatures(m int, strata []*tupleset.Stratum) [][]int {
	out := make([][]int, len(strata))
	running := make([]int, m)
	for i := len(strata) - 1; i >= 0; i-- {
		for k, tf := range strata[i].Signature {
			if tf > running[k] {
				running[k] = tf
			}
		}
		out[i] = append([]int(nil), running...)
	}
	return out
}

func suffixMaxScores(strata []*tupleset.Stratum) []float64 {
	out := make([]float64, len(strata))
	running := 0.0
	for i := len(strata) - 1; i >= 0; i-- {
		if strata[i].MaxScore > running {
			running = strata[i].MaxScore
		}
		out[i] = running
	}
	return out
}

// Query returns the query the creator scores for.
func (c *Creator) Query() *tupleset.Query {
	return c.query
}

// Network returns the network the creator splits.
func (c *Creator) Network() *network.Network {
	return c.network
}

// Constants returns the network's scoring parameters.
func (c *Creator) Constants() Constants {
	return c.consts
}

// Strata returns the strata of the p-th distinct non-free tuple set.
func (c *Creator) Strata(p int) []*tupleset.Stratum {
	return c.strata[p]
}

// Produced returns the number of blocks created so far.
func (c *Creator) Produced() int {
	return c.produced
}

// First returns the block choosing the top stratum everywhere.
func (c *Creator) First() (*Block, error) {
	return c.create(make([]int, len(c.strata)))
}

// Adjacent returns the blocks one stratum further along each position,
// skipping index vectors already produced.
func (c *Creator) Adjacent(b *Block) ([]*Block, error) {
	var out []*Block
	for p := range b.Index {
		if b.Index[p]+1 >= len(c.strata[p]) {
			continue
		}
		index := append([]int(nil), b.Index...)
		index[p]++
		if _, seen := c.memo[indexKey(index)]; seen {
			continue
		}
		next, err := c.create(index)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	return out, nil
}

func (c *Creator) create(index []int) (*Block, error) {
	if len(index) != len(c.strata) {
		return nil, tupleset.Invariantf("Creator.create", "index length %d != %d positions", len(index), len(c.strata))
	}
	for p, i := range index {
		if i < 0 || i >= len(c.strata[p]) {
			return nil, tupleset.Invariantf("Creator.create", "index %d out of range at position %d (%d strata)",
				i, p, len(c.strata[p]))
		}
	}
	c.memo[indexKey(index)] = struct{}{}
	c.produced++

	b := &Block{
		Network: c.network,
		Creator: c,
		Index:   index,
	}
	b.Signature = b.ComputeSignature()
	b.State = Pending(c.uscore(index))

	slog.Debug("block created",
		"query_id", c.query.ID,
		"block", b.String(),
		"uscore", b.State.Value)
	return b, nil
}

// uscore evaluates the score formula on the suffix maxima at index.
func (c *Creator) uscore(index []int) float64 {
	tf := make([]int, c.query.Len())
	factor := 0.0
	nodes := 0
	for _, p := range c.position {
		if p < 0 {
			continue
		}
		for k, v := range c.suffixSig[p][index[p]] {
			tf[k] += v
		}
		factor += c.suffixMax[p][index[p]]
		nodes++
	}
	if nodes == 0 {
		return 0
	}
	return c.consts.Score(tf, factor/float64(nodes))
}

// bscore evaluates the score formula on the block signature and the best
// tuple score of each chosen stratum.
func (c *Creator) bscore(b *Block) float64 {
	factor := 0.0
	nodes := 0
	for i := range c.network.Nodes {
		if s := b.Stratum(i); s != nil {
			factor += s.MaxScore
			nodes++
		}
	}
	if nodes == 0 {
		return 0
	}
	return c.consts.Score(b.Signature, factor/float64(nodes))
}

// Score is the real score of a joined tuple of b whose non-free component
// tuples have the given mapper scores.
func (c *Creator) Score(b *Block, tupleScores []float64) float64 {
	if len(tupleScores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range tupleScores {
		sum += s
	}
	return c.consts.Score(b.Signature, sum/float64(len(tupleScores)))
}

func indexKey(index []int) string {
	parts := make([]string, len(index))
	for i, v := range index {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
