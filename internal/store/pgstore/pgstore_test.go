package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/queryir"
	"github.com/roach88/kwsearch/internal/querysql"
	"github.com/roach88/kwsearch/internal/store"
)

var _ store.Querier = (*Store)(nil)

// openTestStore connects to KWSEARCH_TEST_POSTGRES or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("KWSEARCH_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("KWSEARCH_TEST_POSTGRES not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_QueryRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, `CREATE TEMP TABLE paper (id BIGINT PRIMARY KEY, title TEXT)`))
	require.NoError(t, s.Exec(ctx, `INSERT INTO paper VALUES (1, 'Alpha Beta'), (2, 'gamma')`))

	sql, params, err := querysql.NewSQLCompiler(s.Dialect()).Compile(matchQuery())
	require.NoError(t, err)

	rows, err := s.QueryRows(ctx, sql, params...)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id, err := store.Int64(rows[0][0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Alpha Beta", store.Text(rows[0][1]))
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://invalid host:1/x")
	assert.Error(t, err)
}

func matchQuery() *queryir.Select {
	return &queryir.Select{
		From:    "paper",
		Columns: []queryir.Column{{Name: "id"}, {Name: "title"}},
		Filter:  queryir.Match{Columns: []queryir.Column{{Name: "title"}}, Keywords: []string{"alpha"}},
	}
}
