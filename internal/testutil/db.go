// Package testutil builds SQLite fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/store"
)

// Rows maps a table name to its rows.
type Rows map[string][]map[string]any

// NewStore creates a SQLite database in a temp dir, seeded with rows.
// The store is closed when the test ends.
func NewStore(t testing.TB, s *schema.Schema, rows Rows) *store.Store {
	t.Helper()
	require.NoError(t, s.Validate())

	db, err := store.Open(filepath.Join(t.TempDir(), "fixture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, store.Seed(context.Background(), db, s, rows))
	return db
}

// Bibliography is author <- writes -> paper.
func Bibliography() *schema.Schema {
	return &schema.Schema{
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
}

// Chain is a -> b -> c, every table searchable.
func Chain() *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{Name: "a", Columns: []string{"id", "b_id", "text"}, TextColumns: []string{"text"}},
			{Name: "b", Columns: []string{"id", "c_id", "text"}, TextColumns: []string{"text"}},
			{Name: "c", Columns: []string{"id", "text"}, TextColumns: []string{"text"}},
		},
		ForeignKeys: []schema.ForeignKey{
			{Name: "a_b", FromTable: "a", FromColumn: "b_id", ToTable: "b", ToColumn: "id"},
			{Name: "b_c", FromTable: "b", FromColumn: "c_id", ToTable: "c", ToColumn: "id"},
		},
	}
}
