// Package querysql compiles queryir queries to parameterized SQL.
package querysql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/kwsearch/internal/ir"
	"github.com/roach88/kwsearch/internal/queryir"
)

// Dialect selects placeholder and text-matching syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect accepts "sqlite", "sqlite3", "postgres" and "pgx".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unknown SQL dialect %q", s)
	}
}

// SQLCompiler compiles queryir to SQL for one dialect.
//
// Every value is parameterized, never interpolated. Every row-returning
// query carries an ORDER BY so results are deterministic.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for d.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// builder accumulates SQL text and parameters for one query.
type builder struct {
	dialect Dialect
	sb      strings.Builder
	params  []any
}

func (b *builder) write(s string) {
	b.sb.WriteString(s)
}

func (b *builder) param(v any) string {
	b.params = append(b.params, v)
	if b.dialect == Postgres {
		return "$" + strconv.Itoa(len(b.params))
	}
	return "?"
}

// Compile converts q to (sql, params).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	b := &builder{dialect: c.Dialect}
	var err error
	switch query := q.(type) {
	case *queryir.Select:
		err = c.compileSelect(b, query)
	case *queryir.Count:
		err = c.compileCount(b, query)
	case *queryir.Join:
		err = c.compileJoin(b, query)
	default:
		err = fmt.Errorf("unsupported query type: %T", q)
	}
	if err != nil {
		return "", nil, err
	}
	return b.sb.String(), b.params, nil
}

func (c *SQLCompiler) compileSelect(b *builder, q *queryir.Select) error {
	if err := checkIdent(q.From); err != nil {
		return err
	}
	cols, err := columnList(q.Columns)
	if err != nil {
		return err
	}
	b.write("SELECT " + cols + " FROM " + q.From)
	if q.Filter != nil {
		b.write(" WHERE ")
		if err := c.compilePredicate(b, q.Filter); err != nil {
			return fmt.Errorf("compile filter: %w", err)
		}
	}
	order := q.OrderBy
	if len(order) == 0 {
		order = q.Columns[:1]
	}
	return c.orderBy(b, order)
}

func (c *SQLCompiler) compileCount(b *builder, q *queryir.Count) error {
	if err := checkIdent(q.From); err != nil {
		return err
	}
	b.write("SELECT COUNT(*) FROM " + q.From)
	return nil
}

// compileJoin emits an INNER JOIN chain. Each table after the first joins
// on the conditions that link it to tables already in the chain; leftover
// conditions go to WHERE.
func (c *SQLCompiler) compileJoin(b *builder, j *queryir.Join) error {
	cols, err := columnList(j.Columns)
	if err != nil {
		return err
	}
	first := j.Tables[0]
	if err := checkIdent(first.Table); err != nil {
		return err
	}
	if err := checkIdent(first.Alias); err != nil {
		return err
	}
	b.write("SELECT " + cols + " FROM " + first.Table + " AS " + first.Alias)

	joined := map[string]bool{first.Alias: true}
	used := make([]bool, len(j.On))
	for _, t := range j.Tables[1:] {
		if err := checkIdent(t.Table); err != nil {
			return err
		}
		if err := checkIdent(t.Alias); err != nil {
			return err
		}
		var conds []string
		for i, on := range j.On {
			if used[i] {
				continue
			}
			l, r := on.Left.Alias, on.Right.Alias
			if (l == t.Alias && joined[r]) || (r == t.Alias && joined[l]) {
				conds = append(conds, column(on.Left)+" = "+column(on.Right))
				used[i] = true
			}
		}
		if len(conds) == 0 {
			return fmt.Errorf("alias %s has no join condition to earlier tables", t.Alias)
		}
		b.write(" INNER JOIN " + t.Table + " AS " + t.Alias + " ON " + strings.Join(conds, " AND "))
		joined[t.Alias] = true
	}

	var where []queryir.Predicate
	for i, on := range j.On {
		if !used[i] {
			where = append(where, on)
		}
	}
	where = append(where, j.Where...)
	if len(where) > 0 {
		b.write(" WHERE ")
		if err := c.compilePredicate(b, queryir.And{Predicates: where}); err != nil {
			return fmt.Errorf("compile where: %w", err)
		}
	}

	order := j.OrderBy
	if len(order) == 0 {
		order = j.Columns[:1]
	}
	return c.orderBy(b, order)
}

// orderBy appends the mandatory ORDER BY clause. SQLite orders text with
// COLLATE BINARY; Postgres keys are compared with their native ordering.
func (c *SQLCompiler) orderBy(b *builder, cols []queryir.Column) error {
	parts := make([]string, len(cols))
	for i, col := range cols {
		if err := checkColumn(col); err != nil {
			return err
		}
		parts[i] = column(col)
		if c.Dialect == SQLite {
			parts[i] += " COLLATE BINARY"
		}
		parts[i] += " ASC"
	}
	b.write(" ORDER BY " + strings.Join(parts, ", "))
	return nil
}

func (c *SQLCompiler) compilePredicate(b *builder, p queryir.Predicate) error {
	switch pred := p.(type) {
	case queryir.ColumnEquals:
		return c.compareColumns(b, pred.Left, "=", pred.Right)
	case queryir.NotEqualColumns:
		return c.compareColumns(b, pred.Left, "<>", pred.Right)
	case queryir.Equals:
		if err := checkColumn(pred.Column); err != nil {
			return err
		}
		v, err := irValueToParam(pred.Value)
		if err != nil {
			return fmt.Errorf("convert value: %w", err)
		}
		b.write(column(pred.Column) + " = " + b.param(v))
	case queryir.InList:
		return c.compileInList(b, pred)
	case queryir.Match:
		return c.compileMatch(b, pred)
	case queryir.And:
		return c.compileJunction(b, pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(b, pred.Predicates, " OR ", "1 = 0")
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

func (c *SQLCompiler) compareColumns(b *builder, left queryir.Column, op string, right queryir.Column) error {
	if err := checkColumn(left); err != nil {
		return err
	}
	if err := checkColumn(right); err != nil {
		return err
	}
	b.write(column(left) + " " + op + " " + column(right))
	return nil
}

func (c *SQLCompiler) compileInList(b *builder, in queryir.InList) error {
	if err := checkColumn(in.Column); err != nil {
		return err
	}
	if len(in.Values) == 0 {
		if in.Negate {
			b.write("1 = 1")
		} else {
			b.write("1 = 0")
		}
		return nil
	}
	op := " IN ("
	if in.Negate {
		op = " NOT IN ("
	}
	placeholders := make([]string, len(in.Values))
	for i, v := range in.Values {
		p, err := irValueToParam(v)
		if err != nil {
			return fmt.Errorf("convert value: %w", err)
		}
		placeholders[i] = b.param(p)
	}
	b.write(column(in.Column) + op + strings.Join(placeholders, ", ") + ")")
	return nil
}

// compileMatch ORs a containment test over every column and keyword.
// Keywords are expected to be case-folded already.
func (c *SQLCompiler) compileMatch(b *builder, m queryir.Match) error {
	var parts []string
	for _, col := range m.Columns {
		if err := checkColumn(col); err != nil {
			return err
		}
		for _, kw := range m.Keywords {
			switch c.Dialect {
			case Postgres:
				parts = append(parts, column(col)+" ILIKE "+b.param("%"+escapeLike(kw)+"%"))
			default:
				parts = append(parts, "instr(lower("+column(col)+"), "+b.param(kw)+") > 0")
			}
		}
	}
	if len(parts) == 0 {
		b.write("1 = 0")
		return nil
	}
	b.write("(" + strings.Join(parts, " OR ") + ")")
	return nil
}

func (c *SQLCompiler) compileJunction(b *builder, preds []queryir.Predicate, sep, empty string) error {
	if len(preds) == 0 {
		b.write(empty)
		return nil
	}
	if len(preds) > 1 {
		b.write("(")
	}
	for i, p := range preds {
		if i > 0 {
			b.write(sep)
		}
		if err := c.compilePredicate(b, p); err != nil {
			return err
		}
	}
	if len(preds) > 1 {
		b.write(")")
	}
	return nil
}

func columnList(cols []queryir.Column) (string, error) {
	parts := make([]string, len(cols))
	for i, col := range cols {
		if err := checkColumn(col); err != nil {
			return "", err
		}
		parts[i] = column(col)
	}
	return strings.Join(parts, ", "), nil
}

func column(c queryir.Column) string {
	if c.Alias == "" {
		return c.Name
	}
	return c.Alias + "." + c.Name
}

func checkColumn(c queryir.Column) error {
	if c.Alias != "" {
		if err := checkIdent(c.Alias); err != nil {
			return err
		}
	}
	return checkIdent(c.Name)
}

// checkIdent rejects identifiers that would need quoting.
func checkIdent(s string) error {
	if !identifier.MatchString(s) {
		return fmt.Errorf("invalid SQL identifier %q", s)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// irValueToParam converts an ir.IRValue to a Go value for a SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
