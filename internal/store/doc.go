// Package store connects the search engine to the database being searched.
//
// Store wraps a SQLite database (github.com/mattn/go-sqlite3) and
// pgstore.Store wraps a Postgres pool (github.com/jackc/pgx/v5). Both
// satisfy Querier, which is all the engine and the Loader need.
//
// The Loader is the keyword mapper: it turns a query into the non-free
// tuple sets of every table, scanning tables concurrently.
package store
