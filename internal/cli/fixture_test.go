package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/compiler"
	"github.com/roach88/kwsearch/internal/store"
)

const pairSchema = `table: x: { text: ["name"], columns: ["id", "name"] }
table: y: { text: ["title"], columns: ["id", "x_id", "title"] }
fk: y_x: { from: "y.x_id", to: "x.id" }
`

// fixture writes the pair schema and a seeded SQLite database to a temp
// dir and returns their paths. Only x:1 and y:7 match "alpha beta", and
// they join.
func fixture(t *testing.T) (schemaPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	schemaPath = filepath.Join(dir, "schema.cue")
	dbPath = filepath.Join(dir, "data.db")
	require.NoError(t, os.WriteFile(schemaPath, []byte(pairSchema), 0o644))

	s, err := compiler.CompileSchemaString(pairSchema, schemaPath)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, store.Seed(context.Background(), st, s, map[string][]map[string]any{
		"x": {{"id": 1, "name": "alpha"}, {"id": 2, "name": "gamma"}},
		"y": {{"id": 7, "x_id": 1, "title": "beta"}, {"id": 8, "x_id": 2, "title": "delta"}},
	}))
	return schemaPath, dbPath
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
