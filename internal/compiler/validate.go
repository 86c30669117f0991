package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/kwsearch/internal/schema"
)

// Validation error codes (E100-E199)
const (
	ErrNoTables          = "E101" // at least one table required
	ErrDuplicateName     = "E102" // duplicate table or fk name
	ErrKeyNotDeclared    = "E103" // key missing from columns
	ErrTextNotDeclared   = "E104" // text column missing from columns
	ErrUnknownTable      = "E105" // fk endpoint names an unknown table
	ErrUnknownColumn     = "E106" // fk endpoint names an unknown column
	ErrInvalidIdentifier = "E107" // name needs SQL quoting
	ErrNoSearchableTable = "E108" // no table has text columns
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a compiled schema and returns every problem found
// (does not fail-fast). Tables are read as compiled; a missing key is
// reported rather than defaulted.
func Validate(s *schema.Schema) []ValidationError {
	var errs []ValidationError

	if len(s.Tables) == 0 {
		return []ValidationError{{Field: "table", Message: "at least one table is required", Code: ErrNoTables}}
	}

	tables := make(map[string]schema.Table, len(s.Tables))
	searchable := false
	for _, t := range s.Tables {
		field := "table." + t.Name
		errs = append(errs, checkIdentifier(field, t.Name)...)
		if _, dup := tables[t.Name]; dup {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate table name", Code: ErrDuplicateName})
			continue
		}
		tables[t.Name] = t

		for _, c := range t.Columns {
			errs = append(errs, checkIdentifier(field+".columns", c)...)
		}
		key := t.Key
		if key == "" {
			key = schema.DefaultKey
		}
		if !slices.Contains(t.Columns, key) {
			errs = append(errs, ValidationError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key %q is not a declared column", key),
				Code:    ErrKeyNotDeclared,
			})
		}
		for _, c := range t.TextColumns {
			if !slices.Contains(t.Columns, c) {
				errs = append(errs, ValidationError{
					Field:   field + ".text",
					Message: fmt.Sprintf("text column %q is not a declared column", c),
					Code:    ErrTextNotDeclared,
				})
			}
		}
		if len(t.TextColumns) > 0 {
			searchable = true
		}
	}
	if !searchable {
		errs = append(errs, ValidationError{Field: "table", Message: "no table declares text columns", Code: ErrNoSearchableTable})
	}

	fks := make(map[string]bool, len(s.ForeignKeys))
	for _, fk := range s.ForeignKeys {
		field := "fk." + fk.Name
		errs = append(errs, checkIdentifier(field, fk.Name)...)
		if fks[fk.Name] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate foreign key name", Code: ErrDuplicateName})
			continue
		}
		fks[fk.Name] = true
		errs = append(errs, checkEndpoint(tables, field+".from", fk.FromTable, fk.FromColumn)...)
		errs = append(errs, checkEndpoint(tables, field+".to", fk.ToTable, fk.ToColumn)...)
	}

	return errs
}

func checkEndpoint(tables map[string]schema.Table, field, table, column string) []ValidationError {
	t, ok := tables[table]
	if !ok {
		return []ValidationError{{Field: field, Message: fmt.Sprintf("unknown table %q", table), Code: ErrUnknownTable}}
	}
	if !slices.Contains(t.Columns, column) {
		return []ValidationError{{Field: field, Message: fmt.Sprintf("unknown column %s.%s", table, column), Code: ErrUnknownColumn}}
	}
	return nil
}

func checkIdentifier(field, name string) []ValidationError {
	if identifier.MatchString(name) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("%q is not a plain SQL identifier", name),
		Code:    ErrInvalidIdentifier,
	}}
}
