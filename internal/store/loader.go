package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/kwsearch/internal/queryir"
	"github.com/roach88/kwsearch/internal/querysql"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// LengthSlope is the s of the pivoted length normalization
// 1 / (1 + s·ln(1 + dl/avgdl)).
const LengthSlope = 0.2

// DefaultParallelism is the number of tables scanned at once.
const DefaultParallelism = 4

// Loader maps query keywords to the matching rows of every table.
type Loader struct {
	db       Querier
	schema   *schema.Schema
	compiler *querysql.SQLCompiler
	parallel int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithParallelism bounds the number of concurrent table scans.
func WithParallelism(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.parallel = n
		}
	}
}

// NewLoader creates a loader over db for the tables of s.
func NewLoader(db Querier, s *schema.Schema, opts ...LoaderOption) *Loader {
	l := &Loader{
		db:       db,
		schema:   s,
		compiler: querysql.NewSQLCompiler(db.Dialect()),
		parallel: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result is the output of Load.
type Result struct {
	// TupleSets are the non-empty non-free tuple sets, one per table and
	// covered keyword subset, in schema table order then by ID.
	TupleSets []*tupleset.TupleSet

	// TableSizes holds COUNT(*) for every table.
	TableSizes map[string]int
}

type tableResult struct {
	size   int
	tuples []*tupleset.TupleSet
}

// Load scans every table. Tables without text columns are only counted.
func (l *Loader) Load(ctx context.Context, q *tupleset.Query) (*Result, error) {
	results := make([]tableResult, len(l.schema.Tables))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.parallel)
	for i := range l.schema.Tables {
		table := l.schema.Tables[i]
		eg.Go(func() error {
			size, err := l.count(gCtx, table.Name)
			if err != nil {
				return err
			}
			results[i].size = size
			if len(table.TextColumns) == 0 || q.Len() == 0 {
				return nil
			}
			ts, err := l.match(gCtx, q, table, size)
			if err != nil {
				return err
			}
			results[i].tuples = ts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Result{TableSizes: make(map[string]int, len(results))}
	for i, r := range results {
		out.TableSizes[l.schema.Tables[i].Name] = r.size
		out.TupleSets = append(out.TupleSets, r.tuples...)
	}
	slog.Debug("keywords mapped",
		"query_id", q.ID,
		"tuple_sets", len(out.TupleSets))
	return out, nil
}

func (l *Loader) count(ctx context.Context, table string) (int, error) {
	sql, params, err := l.compiler.Compile(&queryir.Count{From: table})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	rows, err := l.db.QueryRows(ctx, sql, params...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("count %s: unexpected result shape", table)
	}
	n, err := Int64(rows[0][0])
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int(n), nil
}

type matchedRow struct {
	id     int64
	counts map[string]int
	length int
	values map[string]string
}

// match selects the rows whose text columns contain a keyword and scores
// them. The database pre-filters by substring; counts are taken over
// whole tokens, so substring-only hits are dropped here. Rows are split
// into one tuple set per exact covered keyword subset; the length
// average is taken over all matched rows of the table.
func (l *Loader) match(ctx context.Context, q *tupleset.Query, table schema.Table, size int) ([]*tupleset.TupleSet, error) {
	cols := []queryir.Column{{Name: table.Key}}
	match := queryir.Match{Keywords: q.Keywords}
	for _, c := range table.TextColumns {
		cols = append(cols, queryir.Column{Name: c})
		match.Columns = append(match.Columns, queryir.Column{Name: c})
	}
	sql, params, err := l.compiler.Compile(&queryir.Select{
		From:    table.Name,
		Columns: cols,
		Filter:  match,
		OrderBy: []queryir.Column{{Name: table.Key}},
	})
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", table.Name, err)
	}
	rows, err := l.db.QueryRows(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", table.Name, err)
	}

	var matched []matchedRow
	totalLength := 0
	for _, row := range rows {
		id, err := Int64(row[0])
		if err != nil {
			return nil, fmt.Errorf("match %s: key: %w", table.Name, err)
		}
		m := matchedRow{
			id:     id,
			counts: make(map[string]int),
			values: make(map[string]string, len(table.TextColumns)),
		}
		var text []string
		for i, c := range table.TextColumns {
			v := Text(row[i+1])
			m.values[c] = v
			text = append(text, v)
		}
		for _, tok := range tupleset.Tokenize(strings.Join(text, " ")) {
			m.length++
			if q.Index(tok) >= 0 {
				m.counts[tok]++
			}
		}
		if len(m.counts) == 0 {
			continue
		}
		totalLength += m.length
		matched = append(matched, m)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	avg := float64(totalLength) / float64(len(matched))
	groups := make(map[tupleset.KeywordSet][]tupleset.Tuple)
	for _, m := range matched {
		t := tupleset.Tuple{
			RowID:     m.id,
			Score:     LengthScore(m.length, avg),
			Signature: tupleset.SignatureOf(q, m.counts),
			Values:    m.values,
		}
		ks := t.Signature.Covers()
		groups[ks] = append(groups[ks], t)
	}

	out := make([]*tupleset.TupleSet, 0, len(groups))
	for _, tuples := range groups {
		ts, err := tupleset.NewTupleSet(q, table.Name, tuples, size)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	slices.SortFunc(out, func(a, b *tupleset.TupleSet) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out, nil
}

// LengthScore is the pivoted length normalization of a row with dl tokens
// against an average of avgdl. It lies in (0, 1]; shorter rows score higher.
func LengthScore(dl int, avgdl float64) float64 {
	if avgdl <= 0 {
		return 1
	}
	return 1 / (1 + LengthSlope*math.Log(1+float64(dl)/avgdl))
}
