package queryir

import (
	"errors"
	"fmt"
)

// Validate checks that a query is well formed: tables and columns are
// named, aliases are unique and declared before use, and joins are
// connected. All problems are reported, joined into one error.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	errs    []error
	aliases map[string]bool
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case *Select:
		v.validateSelect(query)
	case *Count:
		if query.From == "" {
			v.addError("count: empty table name")
		}
	case *Join:
		v.validateJoin(query)
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel *Select) {
	if sel.From == "" {
		v.addError("select: empty table name")
	}
	if len(sel.Columns) == 0 {
		v.addError("select %s: explicit columns required", sel.From)
	}
	v.aliases = map[string]bool{"": true}
	for _, c := range sel.Columns {
		v.validateColumn(c)
	}
	for _, c := range sel.OrderBy {
		v.validateColumn(c)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateJoin(j *Join) {
	if len(j.Tables) == 0 {
		v.addError("join: no tables")
		return
	}
	if len(j.Columns) == 0 {
		v.addError("join: explicit columns required")
	}
	v.aliases = make(map[string]bool, len(j.Tables))
	for _, t := range j.Tables {
		if t.Table == "" || t.Alias == "" {
			v.addError("join: table reference %q AS %q is incomplete", t.Table, t.Alias)
			continue
		}
		if v.aliases[t.Alias] {
			v.addError("join: duplicate alias %s", t.Alias)
		}
		v.aliases[t.Alias] = true
	}

	// Every alias after the first must be reachable through On conditions.
	connected := map[string]bool{j.Tables[0].Alias: true}
	for changed := true; changed; {
		changed = false
		for _, on := range j.On {
			l, r := connected[on.Left.Alias], connected[on.Right.Alias]
			if l != r {
				connected[on.Left.Alias] = true
				connected[on.Right.Alias] = true
				changed = true
			}
		}
	}
	for _, t := range j.Tables[1:] {
		if !connected[t.Alias] {
			v.addError("join: alias %s is not connected to %s", t.Alias, j.Tables[0].Alias)
		}
	}

	for _, on := range j.On {
		v.validatePredicate(on)
	}
	for _, p := range j.Where {
		v.validatePredicate(p)
	}
	for _, c := range j.Columns {
		v.validateColumn(c)
	}
	for _, c := range j.OrderBy {
		v.validateColumn(c)
	}
}

func (v *validator) validateColumn(c Column) {
	if c.Name == "" {
		v.addError("column with empty name")
	}
	if !v.aliases[c.Alias] {
		v.addError("column %s.%s: undeclared alias", c.Alias, c.Name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addError("nil predicate")
	case ColumnEquals:
		v.validateColumn(pred.Left)
		v.validateColumn(pred.Right)
	case NotEqualColumns:
		v.validateColumn(pred.Left)
		v.validateColumn(pred.Right)
	case Equals:
		v.validateColumn(pred.Column)
		if pred.Value == nil {
			v.addError("equals %s: nil value", pred.Column.Name)
		}
	case InList:
		v.validateColumn(pred.Column)
		for _, val := range pred.Values {
			if val == nil {
				v.addError("in list %s: nil value", pred.Column.Name)
			}
		}
	case Match:
		if len(pred.Columns) == 0 {
			v.addError("match: no columns")
		}
		for _, c := range pred.Columns {
			v.validateColumn(c)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type %T", p)
	}
}
