package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/block"
	"github.com/roach88/kwsearch/internal/queryir"
	"github.com/roach88/kwsearch/internal/store"
	"github.com/roach88/kwsearch/internal/testutil"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// pairPlan returns the first block of x^{alpha} <- y^{beta}. Both x rows
// share one signature, so they land in the same stratum.
func pairPlan(t *testing.T, r Restriction) (*Engine, *block.Block) {
	t.Helper()
	s := pair()
	db := testutil.NewStore(t, s, testutil.Rows{
		"x": {{"id": 1, "name": "alpha"}, {"id": 2, "name": "alpha gamma"}},
		"y": {{"id": 7, "x_id": 1, "title": "beta"}, {"id": 8, "x_id": 2, "title": "gamma"}},
	})
	e := newEngine(t, s, db, WithRestriction(r))
	q := query(t, "alpha beta", tupleset.And)
	plan, err := e.Prepare(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, plan.Networks, 1)

	c, err := block.NewCreator(q, plan.Networks[0], block.DefaultCoverageExponent)
	require.NoError(t, err)
	first, err := c.First()
	require.NoError(t, err)
	return e, first
}

func TestExecutor_BuildBlock(t *testing.T) {
	e, b := pairPlan(t, RestrictRowIDs)

	j, err := e.Executor().BuildBlock(b)
	require.NoError(t, err)
	require.NoError(t, queryir.Validate(j))

	assert.Len(t, j.Tables, 2)
	assert.Len(t, j.On, 1)
	assert.Len(t, j.OrderBy, 2)
	var lists int
	for _, p := range j.Where {
		if _, ok := p.(queryir.InList); ok {
			lists++
		}
	}
	assert.Equal(t, 2, lists)
}

func TestExecutor_CompileBlock(t *testing.T) {
	for _, tc := range []struct {
		restriction Restriction
		contains    string
	}{
		{RestrictRowIDs, " IN ("},
		{RestrictMatch, "instr(lower("},
	} {
		t.Run(tc.restriction.String(), func(t *testing.T) {
			e, b := pairPlan(t, tc.restriction)

			sql, params, err := e.Executor().CompileBlock(b)
			require.NoError(t, err)
			assert.Contains(t, sql, "INNER JOIN")
			assert.Contains(t, sql, tc.contains)
			assert.Contains(t, sql, "COLLATE BINARY")
			assert.NotEmpty(t, params)
		})
	}
}

func TestExecutor_ExecuteBlock(t *testing.T) {
	e, b := pairPlan(t, RestrictRowIDs)

	for i := range b.Network.Nodes {
		if st := b.Stratum(i); st != nil && st.Table == "x" {
			assert.True(t, st.Contains(1))
			assert.True(t, st.Contains(2))
		}
	}

	rows, err := e.Executor().ExecuteBlock(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.ElementsMatch(t, []int64{1, 7}, rows[0].RowIDs())
	assert.LessOrEqual(t, rows[0].Score, b.BScore()+1e-12)
	assert.Equal(t, b.Network.Key(), rows[0].NetworkKey)
}

func TestExecutor_SQLFailure(t *testing.T) {
	e, b := pairPlan(t, RestrictRowIDs)
	db, ok := e.Executor().db.(*store.Store)
	require.True(t, ok)
	require.NoError(t, db.Exec(context.Background(), "DROP TABLE y"))

	_, err := e.Executor().ExecuteBlock(context.Background(), b)
	require.Error(t, err)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeSQLExecution, re.Code)
	assert.NotEmpty(t, re.Network)
}

func TestParseRestriction(t *testing.T) {
	r, err := ParseRestriction("MATCH")
	require.NoError(t, err)
	assert.Equal(t, RestrictMatch, r)

	r, err = ParseRestriction("")
	require.NoError(t, err)
	assert.Equal(t, RestrictRowIDs, r)

	_, err = ParseRestriction("bogus")
	assert.Error(t, err)
}

func TestSortResults(t *testing.T) {
	rs := []Result{
		{NetworkKey: "b", Score: 0.5, Rows: []RowRef{{RowID: 1}}},
		{NetworkKey: "a", Score: 0.5, Rows: []RowRef{{RowID: 2}}},
		{NetworkKey: "a", Score: 0.5, Rows: []RowRef{{RowID: 1}}},
		{NetworkKey: "z", Score: 0.9, Rows: []RowRef{{RowID: 3}}},
	}
	sortResults(rs)

	var got []string
	for _, r := range rs {
		got = append(got, r.NetworkKey)
	}
	assert.Equal(t, []string{"z", "a", "a", "b"}, got)
	assert.Equal(t, int64(1), rs[1].Rows[0].RowID)
}

func TestWithExecTimeout(t *testing.T) {
	s := pair()
	db := testutil.NewStore(t, s, nil)
	e := newEngine(t, s, db, WithExecTimeout(time.Millisecond))
	assert.Equal(t, time.Millisecond, e.Executor().timeout)
}
