// Package compiler turns CUE schema descriptions into schema.Schema values.
//
// A schema file declares tables and foreign keys:
//
//	table: author: { key: "id", text: ["name"], columns: ["id", "name"] }
//	table: writes: { columns: ["id", "author_id", "paper_id"] }
//	fk: writes_author: { from: "writes.author_id", to: "author.id" }
//
// key defaults to "id" and columns defaults to the key plus the text
// columns. Tables keep their declaration order.
package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/kwsearch/internal/schema"
)

// CompileSchema parses a CUE value holding table and fk structs.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &schema.Schema{}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := parseTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.Tables = append(s.Tables, t)
	}
	if len(s.Tables) == 0 {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     tablesVal.Pos(),
		}
	}

	fkVal := v.LookupPath(cue.ParsePath("fk"))
	if fkVal.Exists() {
		iter, err := fkVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			fk, err := parseForeignKey(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			s.ForeignKeys = append(s.ForeignKeys, fk)
		}
	}

	return s, nil
}

// CompileSchemaString compiles CUE source text. filename is used in
// error positions only.
func CompileSchemaString(src, filename string) (*schema.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileSchema(v)
}

func parseTable(name string, v cue.Value) (schema.Table, error) {
	t := schema.Table{Name: name, Key: schema.DefaultKey}

	if keyVal := v.LookupPath(cue.ParsePath("key")); keyVal.Exists() {
		key, err := keyVal.String()
		if err != nil {
			return t, formatCUEError(err)
		}
		t.Key = key
	}

	text, err := stringList(v, "text")
	if err != nil {
		return t, err
	}
	t.TextColumns = text

	columns, err := stringList(v, "columns")
	if err != nil {
		return t, err
	}
	if columns == nil {
		columns = append([]string{t.Key}, text...)
	}
	t.Columns = columns

	return t, nil
}

func parseForeignKey(name string, v cue.Value) (schema.ForeignKey, error) {
	fk := schema.ForeignKey{Name: name}

	fromTable, fromColumn, err := columnRef(v, "from")
	if err != nil {
		return fk, err
	}
	toTable, toColumn, err := columnRef(v, "to")
	if err != nil {
		return fk, err
	}
	fk.FromTable, fk.FromColumn = fromTable, fromColumn
	fk.ToTable, fk.ToColumn = toTable, toColumn
	return fk, nil
}

// columnRef reads a required "table.column" string.
func columnRef(v cue.Value, field string) (string, string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", "", &CompileError{
			Field:   "fk." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	ref, err := val.String()
	if err != nil {
		return "", "", formatCUEError(err)
	}
	table, column, ok := strings.Cut(ref, ".")
	if !ok || table == "" || column == "" {
		return "", "", &CompileError{
			Field:   "fk." + field,
			Message: fmt.Sprintf("%q must have the form table.column", ref),
			Pos:     val.Pos(),
		}
	}
	return table, column, nil
}

// stringList reads an optional list of strings. Absent yields nil.
func stringList(v cue.Value, field string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of strings",
			Pos:     val.Pos(),
		}
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "must be a list of strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}
