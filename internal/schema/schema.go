// Package schema describes the relational schema that keyword queries run
// against: tables, their row key and text columns, and the foreign keys that
// connect them.
package schema

import (
	"fmt"
	"slices"
)

// DefaultKey is the row identifier column used when a table does not name one.
const DefaultKey = "id"

// Table describes one relation.
type Table struct {
	Name string

	// Key is the integer row identifier column.
	Key string

	// Columns lists every column the engine may reference.
	Columns []string

	// TextColumns are searched for keywords. A table without text columns
	// never produces a non-free tuple set.
	TextColumns []string
}

// ForeignKey is a directed FK edge FromTable.FromColumn -> ToTable.ToColumn.
type ForeignKey struct {
	Name       string
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// String renders the FK as "from.col->to.col".
func (fk ForeignKey) String() string {
	return fmt.Sprintf("%s.%s->%s.%s", fk.FromTable, fk.FromColumn, fk.ToTable, fk.ToColumn)
}

// Schema is the set of tables and foreign keys known to the engine.
type Schema struct {
	Tables      []Table
	ForeignKeys []ForeignKey
}

// Table returns the named table.
func (s *Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// ForeignKey returns the named foreign key.
func (s *Schema) ForeignKey(name string) (ForeignKey, bool) {
	for _, fk := range s.ForeignKeys {
		if fk.Name == name {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// Validate checks that names are unique and every reference resolves.
// Tables without an explicit key get DefaultKey.
func (s *Schema) Validate() error {
	tables := make(map[string]Table, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("table[%d]: name is required", i)
		}
		if _, dup := tables[t.Name]; dup {
			return fmt.Errorf("duplicate table: %s", t.Name)
		}
		if t.Key == "" {
			t.Key = DefaultKey
		}
		if !slices.Contains(t.Columns, t.Key) {
			t.Columns = append([]string{t.Key}, t.Columns...)
		}
		for _, c := range t.TextColumns {
			if !slices.Contains(t.Columns, c) {
				return fmt.Errorf("table %s: text column %q is not a declared column", t.Name, c)
			}
		}
		tables[t.Name] = *t
	}

	fks := make(map[string]bool, len(s.ForeignKeys))
	for i, fk := range s.ForeignKeys {
		if fk.Name == "" {
			return fmt.Errorf("fk[%d]: name is required", i)
		}
		if fks[fk.Name] {
			return fmt.Errorf("duplicate foreign key: %s", fk.Name)
		}
		fks[fk.Name] = true

		from, ok := tables[fk.FromTable]
		if !ok {
			return fmt.Errorf("fk %s: unknown table %q", fk.Name, fk.FromTable)
		}
		to, ok := tables[fk.ToTable]
		if !ok {
			return fmt.Errorf("fk %s: unknown table %q", fk.Name, fk.ToTable)
		}
		if !slices.Contains(from.Columns, fk.FromColumn) {
			return fmt.Errorf("fk %s: unknown column %s.%s", fk.Name, fk.FromTable, fk.FromColumn)
		}
		if !slices.Contains(to.Columns, fk.ToColumn) {
			return fmt.Errorf("fk %s: unknown column %s.%s", fk.Name, fk.ToTable, fk.ToColumn)
		}
	}
	return nil
}
