// Package queryir is the relational query representation shared by the
// block executor and the keyword mapper.
//
// The IR is the boundary between the search engine and SQL dialects:
//
//	[executor / loader] → [queryir] → [querysql: SQLite | Postgres]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch exhaustively over their variants:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Join:
//	case *Count:
//	}
//
// Literal values are ir.IRValue (no floats), so every parameter a query
// carries has a canonical encoding. Backends never interpolate values.
package queryir
