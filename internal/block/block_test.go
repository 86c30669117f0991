package block

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/tupleset"
)

type lattice struct {
	q       *tupleset.Query
	network *network.Network
	creator *Creator
}

// bibliography builds author^{..} <- writes -> paper^{..} with several
// strata on both sides.
func bibliography(t *testing.T, sem tupleset.Semantics) lattice {
	t.Helper()
	s := &schema.Schema{
		Tables: []schema.Table{
			{Name: "author", Columns: []string{"id", "name"}, TextColumns: []string{"name"}},
			{Name: "paper", Columns: []string{"id", "title"}, TextColumns: []string{"title"}},
			{Name: "writes", Columns: []string{"id", "author_id", "paper_id"}},
		},
		ForeignKeys: []schema.ForeignKey{
			{Name: "writes_author", FromTable: "writes", FromColumn: "author_id", ToTable: "author", ToColumn: "id"},
			{Name: "writes_paper", FromTable: "writes", FromColumn: "paper_id", ToTable: "paper", ToColumn: "id"},
		},
	}
	require.NoError(t, s.Validate())
	q, err := tupleset.NewQuery("alpha beta", sem)
	require.NoError(t, err)

	author, err := tupleset.NewTupleSet(q, "author", []tupleset.Tuple{
		{RowID: 1, Score: 0.9, Signature: tupleset.Signature{2, 0}},
		{RowID: 2, Score: 0.4, Signature: tupleset.Signature{1, 0}},
		{RowID: 3, Score: 1.0, Signature: tupleset.Signature{1, 1}},
		{RowID: 4, Score: 0.7, Signature: tupleset.Signature{1, 0}},
	}, 10)
	require.NoError(t, err)
	paper, err := tupleset.NewTupleSet(q, "paper", []tupleset.Tuple{
		{RowID: 1, Score: 0.3, Signature: tupleset.Signature{0, 1}},
		{RowID: 2, Score: 0.8, Signature: tupleset.Signature{0, 3}},
		{RowID: 3, Score: 0.6, Signature: tupleset.Signature{1, 1}},
	}, 20)
	require.NoError(t, err)

	wa, _ := s.ForeignKey("writes_author")
	wp, _ := s.ForeignKey("writes_paper")
	n := network.New(author).
		Attach(0, tupleset.FreeTupleSet("writes", 30), wa, true).
		Attach(1, paper, wp, false)

	c, err := NewCreator(q, n, 0)
	require.NoError(t, err)
	return lattice{q: q, network: n, creator: c}
}

// all walks the lattice from the first block.
func (l lattice) all(t *testing.T) []*Block {
	t.Helper()
	first, err := l.creator.First()
	require.NoError(t, err)
	out := []*Block{first}
	for i := 0; i < len(out); i++ {
		next, err := l.creator.Adjacent(out[i])
		require.NoError(t, err)
		out = append(out, next...)
	}
	return out
}

func dominates(a, b []int) bool {
	for i := range a {
		if b[i] < a[i] {
			return false
		}
	}
	return true
}

func TestCreator_LatticeIsProducedOnce(t *testing.T) {
	l := bibliography(t, tupleset.Or)

	blocks := l.all(t)

	want := len(l.creator.Strata(0)) * len(l.creator.Strata(1))
	require.Len(t, blocks, want)
	assert.Equal(t, want, l.creator.Produced())

	seen := make(map[string]bool)
	for _, b := range blocks {
		assert.False(t, seen[b.Key()], "duplicate block %s", b)
		seen[b.Key()] = true
	}

	next, err := l.creator.Adjacent(blocks[0])
	require.NoError(t, err)
	assert.Empty(t, next, "adjacent blocks are produced once")
}

func TestCreator_FirstBlock(t *testing.T) {
	l := bibliography(t, tupleset.Or)

	b, err := l.creator.First()
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, b.Index)
	assert.Equal(t, USCORE, b.State.Kind)
	assert.Equal(t, b.UScore(), b.State.Value)
	assert.Nil(t, b.Stratum(1), "free node")
	require.NotNil(t, b.Stratum(0))
	assert.Equal(t, 0, b.Stratum(0).Rank)
	assert.Equal(t, b.Stratum(0).Signature.Add(b.Stratum(2).Signature), b.Signature)
}

func TestBounds_Sound(t *testing.T) {
	for _, sem := range []tupleset.Semantics{tupleset.And, tupleset.Or} {
		t.Run(sem.String(), func(t *testing.T) {
			l := bibliography(t, sem)
			blocks := l.all(t)

			for _, b := range blocks {
				u := b.UScore()
				for _, other := range blocks {
					if dominates(b.Index, other.Index) {
						assert.GreaterOrEqual(t, u+1e-12, other.BScore(),
							"uscore %s must bound bscore %s", b, other)
					}
				}

				bs := b.BScore()
				left, right := b.Stratum(0), b.Stratum(2)
				for _, x := range left.Tuples {
					for _, y := range right.Tuples {
						score := l.creator.Score(b, []float64{x.Score, y.Score})
						assert.GreaterOrEqual(t, bs+1e-12, score)
					}
				}
			}
		})
	}
}

func TestBounds_UScoreNonIncreasing(t *testing.T) {
	l := bibliography(t, tupleset.Or)
	first, err := l.creator.First()
	require.NoError(t, err)

	frontier := []*Block{first}
	for len(frontier) > 0 {
		b := frontier[0]
		frontier = frontier[1:]
		next, err := l.creator.Adjacent(b)
		require.NoError(t, err)
		for _, n := range next {
			assert.LessOrEqual(t, n.UScore(), b.UScore()+1e-12)
		}
		frontier = append(frontier, next...)
	}
}

func TestCreator_RejectsOutOfRangeIndex(t *testing.T) {
	l := bibliography(t, tupleset.Or)

	_, err := l.creator.create([]int{0, 99})
	require.Error(t, err)
	assert.True(t, tupleset.IsInvariantError(err))

	_, err = l.creator.create([]int{0})
	assert.True(t, tupleset.IsInvariantError(err))
}

func TestConstants(t *testing.T) {
	l := bibliography(t, tupleset.Or)
	c := l.creator.Constants()

	assert.Equal(t, []int{3, 4}, c.MaxTF, "per-node maxima summed over nodes")
	assert.Equal(t, DefaultCoverageExponent, c.P)

	// size 3, two non-free nodes, two keywords
	assert.InDelta(t, 0.7*(1+1.0/3-2.0/3), c.SizeNorm, 1e-12)

	total := 30.0
	assert.InDelta(t, math.Log(1+total/(1+5)), c.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(1+total/(1+4)), c.IDF[1], 1e-12)
	assert.InDelta(t, c.IDF[0]+c.IDF[1], c.SumIDF, 1e-12)
}

func TestConstants_CountsEachTableOnce(t *testing.T) {
	s := &schema.Schema{
		Tables: []schema.Table{
			{Name: "author", Columns: []string{"id", "name"}, TextColumns: []string{"name"}},
			{Name: "paper", Columns: []string{"id"}},
			{Name: "writes", Columns: []string{"id", "author_id", "paper_id"}},
		},
		ForeignKeys: []schema.ForeignKey{
			{Name: "writes_author", FromTable: "writes", FromColumn: "author_id", ToTable: "author", ToColumn: "id"},
			{Name: "writes_paper", FromTable: "writes", FromColumn: "paper_id", ToTable: "paper", ToColumn: "id"},
		},
	}
	require.NoError(t, s.Validate())
	q, err := tupleset.NewQuery("alpha beta", tupleset.And)
	require.NoError(t, err)

	alpha, err := tupleset.NewTupleSet(q, "author", []tupleset.Tuple{
		{RowID: 1, Score: 1, Signature: tupleset.Signature{1, 0}},
		{RowID: 2, Score: 1, Signature: tupleset.Signature{2, 0}},
	}, 10)
	require.NoError(t, err)
	beta, err := tupleset.NewTupleSet(q, "author", []tupleset.Tuple{
		{RowID: 3, Score: 1, Signature: tupleset.Signature{0, 1}},
	}, 10)
	require.NoError(t, err)

	wa, _ := s.ForeignKey("writes_author")
	wp, _ := s.ForeignKey("writes_paper")
	n := network.New(alpha).
		Attach(0, tupleset.FreeTupleSet("writes", 5), wa, true).
		Attach(1, tupleset.FreeTupleSet("paper", 4), wp, false).
		Attach(2, tupleset.FreeTupleSet("writes", 5), wp, true).
		Attach(3, beta, wa, false)

	c := NewConstants(q, n, 0)

	// Both author tuple sets partition one table of 10 rows.
	assert.InDelta(t, math.Log(1+10.0/(1+2)), c.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(1+10.0/(1+1)), c.IDF[1], 1e-12)
	assert.Equal(t, []int{2, 1}, c.MaxTF)
}

func TestConstants_Coverage(t *testing.T) {
	l := bibliography(t, tupleset.Or)
	c := l.creator.Constants()

	assert.InDelta(t, 1.0, c.Coverage([]int{3, 4}), 1e-12)
	assert.InDelta(t, 0.0, c.Coverage([]int{0, 0}), 1e-12)
	assert.Greater(t, c.Coverage([]int{1, 1}), c.Coverage([]int{1, 0}))

	and := bibliography(t, tupleset.And).creator.Constants()
	assert.Zero(t, and.Coverage([]int{3, 0}))
	assert.Positive(t, and.Coverage([]int{1, 1}))
}

func TestConstants_Relevance(t *testing.T) {
	l := bibliography(t, tupleset.Or)
	c := l.creator.Constants()

	assert.Zero(t, c.Relevance([]int{0, 0}))
	assert.InDelta(t, c.IDF[0]/c.SumIDF, c.Relevance([]int{1, 0}), 1e-12)
	assert.Greater(t, c.Relevance([]int{2, 0}), c.Relevance([]int{1, 0}))
	assert.Zero(t, c.Score([]int{1, 1}, 0))
}

func TestState_Transitions(t *testing.T) {
	s := Pending(0.8)
	assert.Equal(t, USCORE, s.Kind)

	tight, err := s.Tighten(0.5)
	require.NoError(t, err)
	assert.Equal(t, State{Kind: BSCORE, Value: 0.5}, tight)

	done, err := tight.Executed(0.4)
	require.NoError(t, err)
	assert.Equal(t, State{Kind: SCORE, Value: 0.4}, done)

	_, err = tight.Tighten(0.1)
	assert.True(t, tupleset.IsInvariantError(err))
	_, err = s.Executed(0.1)
	assert.True(t, tupleset.IsInvariantError(err))
	_, err = s.Tighten(0.9)
	assert.True(t, tupleset.IsInvariantError(err), "bscore above uscore")

	assert.Equal(t, "BSCORE(0.500000)", tight.String())
}

func TestNewCreator_RejectsForeignSignatures(t *testing.T) {
	l := bibliography(t, tupleset.Or)
	other, err := tupleset.NewQuery("alpha beta gamma", tupleset.Or)
	require.NoError(t, err)

	_, err = NewCreator(other, l.network, 0)
	require.Error(t, err)
	assert.True(t, tupleset.IsInvariantError(err))
}
