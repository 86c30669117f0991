package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/kwsearch/internal/querysql"
)

// Querier runs compiled queries. Both the SQLite Store and pgstore.Store
// implement it.
type Querier interface {
	// QueryRows returns every row of the result, one []any per row in
	// select-list order.
	QueryRows(ctx context.Context, query string, args ...any) ([][]any, error)

	// Dialect selects the SQL the compiler emits for this database.
	Dialect() querysql.Dialect
}

// Int64 converts a scanned key value to int64. Drivers disagree on integer
// widths and SQLite may hand back text for loosely typed columns.
func Int64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, fmt.Errorf("NULL key")
	default:
		return 0, fmt.Errorf("unsupported key type %T", v)
	}
}

// Text renders a scanned value as a string. NULL becomes "".
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
