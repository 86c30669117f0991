package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/kwsearch/internal/schema"
)

// Seed creates the tables of s and inserts rows, keyed by table name.
// Each row maps column names to values; missing columns are NULL.
// Key columns are INTEGER PRIMARY KEY, text columns TEXT, and other
// columns INTEGER. No FK constraints are declared, so rows may be given
// in any order.
func Seed(ctx context.Context, db *Store, s *schema.Schema, rows map[string][]map[string]any) error {
	for _, t := range s.Tables {
		if err := db.Exec(ctx, createTable(t)); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	for name := range rows {
		if _, ok := s.Table(name); !ok {
			return fmt.Errorf("rows for unknown table %q", name)
		}
	}
	for _, t := range s.Tables {
		for i, row := range rows[t.Name] {
			stmt, args, err := insertRow(t, row)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", t.Name, i, err)
			}
			if err := db.Exec(ctx, stmt, args...); err != nil {
				return fmt.Errorf("insert %s row %d: %w", t.Name, i, err)
			}
		}
	}
	return nil
}

func createTable(t schema.Table) string {
	text := make(map[string]bool, len(t.TextColumns))
	for _, c := range t.TextColumns {
		text[c] = true
	}
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		switch {
		case c == t.Key:
			defs = append(defs, quote(c)+" INTEGER PRIMARY KEY")
		case text[c]:
			defs = append(defs, quote(c)+" TEXT")
		default:
			defs = append(defs, quote(c)+" INTEGER")
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.Name), strings.Join(defs, ", "))
}

func insertRow(t schema.Table, row map[string]any) (string, []any, error) {
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}
	for c := range row {
		if !known[c] {
			return "", nil, fmt.Errorf("unknown column %q", c)
		}
	}

	var cols, marks []string
	var args []any
	for _, c := range t.Columns {
		v, ok := row[c]
		if !ok {
			continue
		}
		cols = append(cols, quote(c))
		marks = append(marks, "?")
		args = append(args, v)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("empty row")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return stmt, args, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
