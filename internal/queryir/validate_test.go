package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kwsearch/internal/ir"
)

func chainJoin() *Join {
	return &Join{
		Tables: []TableRef{{Table: "author", Alias: "t0"}, {Table: "writes", Alias: "t1"}},
		On:     []ColumnEquals{{Left: Col("t1", "author_id"), Right: Col("t0", "id")}},
		Where: []Predicate{
			InList{Column: Col("t0", "id"), Values: []ir.IRValue{ir.IRInt(1), ir.IRInt(2)}},
		},
		Columns: []Column{Col("t0", "id"), Col("t1", "id")},
		OrderBy: []Column{Col("t0", "id"), Col("t1", "id")},
	}
}

func TestValidate_Join(t *testing.T) {
	require.NoError(t, Validate(chainJoin()))
}

func TestValidate_DisconnectedJoin(t *testing.T) {
	j := chainJoin()
	j.On = nil

	err := Validate(j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alias t1 is not connected")
}

func TestValidate_UndeclaredAlias(t *testing.T) {
	j := chainJoin()
	j.Where = append(j.Where, NotEqualColumns{Left: Col("t0", "id"), Right: Col("t9", "id")})

	err := Validate(j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t9.id: undeclared alias")
}

func TestValidate_DuplicateAlias(t *testing.T) {
	j := chainJoin()
	j.Tables[1].Alias = "t0"

	err := Validate(j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate alias t0")
}

func TestValidate_Select(t *testing.T) {
	sel := &Select{
		From:    "paper",
		Columns: []Column{{Name: "id"}, {Name: "title"}},
		Filter:  Match{Columns: []Column{{Name: "title"}}, Keywords: []string{"alpha"}},
	}
	require.NoError(t, Validate(sel))

	sel.Columns = nil
	assert.Error(t, Validate(sel))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := Validate(&Join{
		Tables:  []TableRef{{Table: "a", Alias: "t0"}, {Table: "b", Alias: "t1"}},
		Where:   []Predicate{Equals{Column: Col("t0", "x")}, Or{}, nil},
		Columns: []Column{Col("t0", "id")},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "not connected")
	assert.Contains(t, msg, "nil value")
	assert.Contains(t, msg, "nil predicate")
}

func TestValidate_NilQuery(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.NoError(t, Validate(&Count{From: "paper"}))
}
