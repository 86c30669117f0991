package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/schema"
)

func fkSchema(tables []string, edges ...[2]string) *schema.Schema {
	s := &schema.Schema{}
	for _, name := range tables {
		s.Tables = append(s.Tables, schema.Table{Name: name, Columns: []string{"id", "ref"}})
	}
	for _, e := range edges {
		s.ForeignKeys = append(s.ForeignKeys, schema.ForeignKey{
			Name:      e[0] + "_" + e[1],
			FromTable: e[0], FromColumn: "ref",
			ToTable: e[1], ToColumn: "id",
		})
	}
	return s
}

func TestAnalyzeCycles_NoForeignKeys(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(fkSchema([]string{"a", "b"})))
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	s := fkSchema([]string{"writes", "author", "paper"},
		[2]string{"writes", "author"},
		[2]string{"writes", "paper"},
	)
	assert.Empty(t, AnalyzeCycles(s))
}

func TestAnalyzeCycles_SelfReference(t *testing.T) {
	s := fkSchema([]string{"employee"}, [2]string{"employee", "employee"})

	warnings := AnalyzeCycles(s)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"employee", "employee"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "self-referencing")
}

func TestAnalyzeCycles_ThreeTableCycle(t *testing.T) {
	s := fkSchema([]string{"a", "b", "c", "d"},
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "a"},
		[2]string{"d", "a"},
	)

	warnings := AnalyzeCycles(s)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, warnings[0].Path)
	assert.Equal(t, "foreign key cycle: a → b → c → a", warnings[0].Message)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	s := fkSchema([]string{"x", "y", "p", "q"},
		[2]string{"x", "y"}, [2]string{"y", "x"},
		[2]string{"p", "q"}, [2]string{"q", "p"},
	)

	first := AnalyzeCycles(s)
	require.Len(t, first, 2)
	assert.Equal(t, "p", first[0].Path[0])
	assert.Equal(t, "x", first[1].Path[0])
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, AnalyzeCycles(s))
	}
}
