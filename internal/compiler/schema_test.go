package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/schema"
)

const bibliography = `
table: author: { key: "id", text: ["name"], columns: ["id", "name"] }
table: paper: { text: ["title", "abstract"] }
table: writes: { columns: ["id", "author_id", "paper_id"] }
fk: writes_author: { from: "writes.author_id", to: "author.id" }
fk: writes_paper: { from: "writes.paper_id", to: "paper.id" }
`

func TestCompileSchemaBasic(t *testing.T) {
	s, err := CompileSchemaString(bibliography, "bib.cue")
	require.NoError(t, err)

	require.Len(t, s.Tables, 3)
	assert.Equal(t, "author", s.Tables[0].Name)
	assert.Equal(t, "paper", s.Tables[1].Name)
	assert.Equal(t, "writes", s.Tables[2].Name)

	assert.Equal(t, schema.Table{
		Name:        "paper",
		Key:         "id",
		Columns:     []string{"id", "title", "abstract"},
		TextColumns: []string{"title", "abstract"},
	}, s.Tables[1])
	assert.Empty(t, s.Tables[2].TextColumns)

	require.Len(t, s.ForeignKeys, 2)
	assert.Equal(t, schema.ForeignKey{
		Name: "writes_author", FromTable: "writes", FromColumn: "author_id", ToTable: "author", ToColumn: "id",
	}, s.ForeignKeys[0])

	require.NoError(t, s.Validate())
	assert.Empty(t, Validate(s))
}

func TestCompileSchemaFromValue(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		schema: library: {
			table: book: { text: ["title"] }
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.library")))
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, []string{"id", "title"}, s.Tables[0].Columns)
	assert.Empty(t, s.ForeignKeys)
}

func TestCompileSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"no tables", `fk: x: { from: "a.b", to: "c.d" }`, "table"},
		{"empty tables", `table: {}`, "table"},
		{"bad fk ref", `table: a: {}
fk: x: { from: "a", to: "a.id" }`, "fk.from"},
		{"missing fk end", `table: a: {}
fk: x: { from: "a.id" }`, "fk.to"},
		{"text not list", `table: a: { text: "name" }`, "text"},
		{"columns not strings", `table: a: { columns: [1, 2] }`, "columns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchemaString(tt.src, "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSchemaSyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSchemaString("table: a: {\n  key: \n", "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "broken.cue:")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "table", Message: "at least one table is required"}
	assert.Equal(t, "table: at least one table is required", err.Error())
}
