package queryir

import "github.com/roach88/kwsearch/internal/ir"

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Column references a column, optionally qualified by a table alias.
type Column struct {
	Alias string
	Name  string
}

// Col builds an alias-qualified column reference.
func Col(alias, name string) Column {
	return Column{Alias: alias, Name: name}
}

// TableRef binds a table to an alias.
type TableRef struct {
	Table string
	Alias string
}

// Select reads one table.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order by>
//
// Columns must be explicit; an empty OrderBy orders by the first column.
type Select struct {
	From    string
	Columns []Column
	Filter  Predicate
	OrderBy []Column
}

func (*Select) queryNode() {}

// Count returns the number of rows of a table.
type Count struct {
	From string
}

func (*Count) queryNode() {}

// Join is an inner join of aliased tables along equality conditions.
//
//	SELECT <columns> FROM t0, t1, ... WHERE <on> AND <where> ORDER BY <order by>
//
// Every alias after the first must be connected by at least one On
// condition; joins never degrade into cross products.
type Join struct {
	Tables  []TableRef
	On      []ColumnEquals
	Where   []Predicate
	Columns []Column
	OrderBy []Column
}

func (*Join) queryNode() {}

// ColumnEquals is the equi-join condition left = right.
type ColumnEquals struct {
	Left  Column
	Right Column
}

func (ColumnEquals) predicateNode() {}

// Equals compares a column with a literal.
type Equals struct {
	Column Column
	Value  ir.IRValue
}

func (Equals) predicateNode() {}

// InList restricts a column to a set of literals. An empty list matches
// nothing.
type InList struct {
	Column Column
	Values []ir.IRValue

	// Negate excludes the literals instead. An empty negated list matches
	// everything.
	Negate bool
}

func (InList) predicateNode() {}

// Match holds when any of the columns contains any of the keywords,
// compared case-insensitively.
type Match struct {
	Columns  []Column
	Keywords []string
}

func (Match) predicateNode() {}

// NotEqualColumns is left <> right. It keeps two occurrences of the same
// table from binding to one row.
type NotEqualColumns struct {
	Left  Column
	Right Column
}

func (NotEqualColumns) predicateNode() {}

// And holds when all predicates hold. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or holds when any predicate holds. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
