package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/kwsearch/internal/block"
	"github.com/roach88/kwsearch/internal/ir"
	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/queryir"
	"github.com/roach88/kwsearch/internal/querysql"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/store"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// Restriction selects how a join is limited to the rows of a stratum.
type Restriction int

const (
	// RestrictRowIDs lists the stratum's row ids in an IN predicate.
	RestrictRowIDs Restriction = iota

	// RestrictMatch repeats the keyword match in SQL and filters the
	// returned rows to stratum members.
	RestrictMatch
)

func (r Restriction) String() string {
	if r == RestrictMatch {
		return "match"
	}
	return "ids"
}

// ParseRestriction accepts "ids" or "match".
func ParseRestriction(s string) (Restriction, error) {
	switch strings.ToLower(s) {
	case "ids", "":
		return RestrictRowIDs, nil
	case "match":
		return RestrictMatch, nil
	default:
		return 0, fmt.Errorf("unknown restriction %q (want ids or match)", s)
	}
}

// DefaultExecTimeout bounds a single join.
const DefaultExecTimeout = 30 * time.Second

// RowRef is one table row of a joined result.
type RowRef struct {
	Alias string
	Node  int
	Table string
	RowID int64

	// Values holds the row's text columns.
	Values map[string]string
}

// Result is one scored joined tuple.
type Result struct {
	NetworkKey string
	Network    *network.Network
	Rows       []RowRef
	Signature  tupleset.Signature
	Score      float64
}

// RowIDs returns the row ids in node order.
func (r Result) RowIDs() []int64 {
	ids := make([]int64, len(r.Rows))
	for i, row := range r.Rows {
		ids[i] = row.RowID
	}
	return ids
}

// Executor turns blocks and networks into SQL joins and scores their rows.
type Executor struct {
	graph       *schema.Graph
	db          store.Querier
	compiler    *querysql.SQLCompiler
	restriction Restriction
	timeout     time.Duration
}

// NewExecutor creates an executor over db for the schema graph g.
func NewExecutor(g *schema.Graph, db store.Querier, restriction Restriction, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &Executor{
		graph:       g,
		db:          db,
		compiler:    querysql.NewSQLCompiler(db.Dialect()),
		restriction: restriction,
		timeout:     timeout,
	}
}

// member is the row source of one non-free node.
type member interface {
	Tuple(rowID int64) (tupleset.Tuple, bool)
}

// tupleSetMember adapts a whole tuple set to member.
type tupleSetMember struct {
	ts *tupleset.TupleSet
}

func (m tupleSetMember) Tuple(rowID int64) (tupleset.Tuple, bool) {
	return m.ts.Lookup(rowID)
}

// joinSpec is a compiled join plus the per-node row sources.
type joinSpec struct {
	query   *queryir.Join
	members []member
	tables  []schema.Table
}

// BuildBlock returns the join of b's network restricted to b's strata.
func (x *Executor) BuildBlock(b *block.Block) (*queryir.Join, error) {
	spec, err := x.buildBlock(b)
	if err != nil {
		return nil, err
	}
	return spec.query, nil
}

// CompileBlock returns the SQL and parameters executing b.
func (x *Executor) CompileBlock(b *block.Block) (string, []any, error) {
	j, err := x.BuildBlock(b)
	if err != nil {
		return "", nil, err
	}
	return x.compiler.Compile(j)
}

func (x *Executor) buildBlock(b *block.Block) (*joinSpec, error) {
	members := make([]member, len(b.Network.Nodes))
	rows := make([][]int64, len(b.Network.Nodes))
	keywords := make([]tupleset.KeywordSet, len(b.Network.Nodes))
	for i := range b.Network.Nodes {
		if s := b.Stratum(i); s != nil {
			members[i] = s
			rows[i] = s.RowIDs()
			keywords[i] = s.Keywords
		}
	}
	return x.build(b.Creator.Network(), b.Creator.Query(), members, rows, keywords)
}

func (x *Executor) buildNetwork(q *tupleset.Query, n *network.Network) (*joinSpec, error) {
	members := make([]member, len(n.Nodes))
	rows := make([][]int64, len(n.Nodes))
	keywords := make([]tupleset.KeywordSet, len(n.Nodes))
	for i, node := range n.Nodes {
		if !node.TupleSet.Free {
			members[i] = tupleSetMember{node.TupleSet}
			rows[i] = node.TupleSet.RowIDs()
			keywords[i] = node.TupleSet.Keywords
		}
	}
	return x.build(n, q, members, rows, keywords)
}

func alias(i int) string {
	return fmt.Sprintf("t%d", i)
}

// build assembles the join. Nodes with a nil member are free; they skip
// the rows of their table's non-free tuple sets.
func (x *Executor) build(n *network.Network, q *tupleset.Query, members []member, rows [][]int64, keywords []tupleset.KeywordSet) (*joinSpec, error) {
	s := x.graph.Schema()
	spec := &joinSpec{query: &queryir.Join{}, members: members}

	for i, node := range n.Nodes {
		table, ok := s.Table(node.TupleSet.Table)
		if !ok {
			return nil, fmt.Errorf("network references unknown table %q", node.TupleSet.Table)
		}
		spec.tables = append(spec.tables, table)
		a := alias(i)
		spec.query.Tables = append(spec.query.Tables, queryir.TableRef{Table: table.Name, Alias: a})
		spec.query.Columns = append(spec.query.Columns, queryir.Col(a, table.Key))
		for _, c := range table.TextColumns {
			spec.query.Columns = append(spec.query.Columns, queryir.Col(a, c))
		}
		spec.query.OrderBy = append(spec.query.OrderBy, queryir.Col(a, table.Key))

		if node.Parent >= 0 {
			parent := n.Nodes[node.Parent].TupleSet.Table
			fk, ok := x.graph.JoinEdge(parent, table.Name, node.FK.Name)
			if !ok {
				return nil, &JoinCandidateNotFoundError{FK: node.FK.Name, Parent: parent, Child: table.Name}
			}
			pa := alias(node.Parent)
			var on queryir.ColumnEquals
			if node.ChildIsFrom {
				on = queryir.ColumnEquals{Left: queryir.Col(a, fk.FromColumn), Right: queryir.Col(pa, fk.ToColumn)}
			} else {
				on = queryir.ColumnEquals{Left: queryir.Col(pa, fk.FromColumn), Right: queryir.Col(a, fk.ToColumn)}
			}
			spec.query.On = append(spec.query.On, on)
		}

		if members[i] == nil {
			if ex := node.TupleSet.Excluded; len(ex) > 0 {
				spec.query.Where = append(spec.query.Where, queryir.InList{
					Column: queryir.Col(a, table.Key),
					Values: intValues(ex),
					Negate: true,
				})
			}
			continue
		}
		switch x.restriction {
		case RestrictMatch:
			m := queryir.Match{Keywords: q.Names(keywords[i])}
			for _, c := range table.TextColumns {
				m.Columns = append(m.Columns, queryir.Col(a, c))
			}
			spec.query.Where = append(spec.query.Where, m)
		default:
			spec.query.Where = append(spec.query.Where, queryir.InList{Column: queryir.Col(a, table.Key), Values: intValues(rows[i])})
		}
	}

	// Two occurrences of one table never bind the same row.
	for i := range n.Nodes {
		for j := i + 1; j < len(n.Nodes); j++ {
			if spec.tables[i].Name != spec.tables[j].Name {
				continue
			}
			key := spec.tables[i].Key
			spec.query.Where = append(spec.query.Where, queryir.NotEqualColumns{
				Left:  queryir.Col(alias(i), key),
				Right: queryir.Col(alias(j), key),
			})
		}
	}
	return spec, nil
}

func intValues(ids []int64) []ir.IRValue {
	values := make([]ir.IRValue, len(ids))
	for k, id := range ids {
		values[k] = ir.IRInt(id)
	}
	return values
}

// ExecuteBlock runs b's join and scores every row. Zero rows is not an
// error; strata need not co-occur.
func (x *Executor) ExecuteBlock(ctx context.Context, b *block.Block) ([]Result, error) {
	spec, err := x.buildBlock(b)
	if err != nil {
		return nil, x.wrap(err, b.Network.Key(), b.String())
	}
	score := func(_ tupleset.Signature, scores []float64) float64 {
		return b.Creator.Score(b, scores)
	}
	return x.run(ctx, b.Network, spec, score, b.String())
}

// ExecuteNetwork runs the unrestricted join of c's network over its
// full tuple sets and scores every row.
func (x *Executor) ExecuteNetwork(ctx context.Context, c *block.Creator) ([]Result, error) {
	n := c.Network()
	spec, err := x.buildNetwork(c.Query(), n)
	if err != nil {
		return nil, x.wrap(err, n.Key(), "")
	}
	consts := c.Constants()
	score := func(sig tupleset.Signature, scores []float64) float64 {
		if len(scores) == 0 {
			return 0
		}
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		return consts.Score(sig, sum/float64(len(scores)))
	}
	return x.run(ctx, n, spec, score, "")
}

type scoreFunc func(sig tupleset.Signature, tupleScores []float64) float64

func (x *Executor) run(ctx context.Context, n *network.Network, spec *joinSpec, score scoreFunc, blockName string) ([]Result, error) {
	sql, params, err := x.compiler.Compile(spec.query)
	if err != nil {
		return nil, x.wrap(err, n.Key(), blockName)
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	start := time.Now()
	rows, err := x.db.QueryRows(ctx, sql, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &RuntimeError{
				Code:    ErrCodeDeadlineExceeded,
				Message: fmt.Sprintf("join exceeded %s", x.timeout),
				Network: n.Key(),
				Block:   blockName,
				Err:     err,
			}
		}
		return nil, x.wrap(err, n.Key(), blockName)
	}

	var out []Result
	for _, row := range rows {
		r, ok, err := x.scoreRow(n, spec, row, score)
		if err != nil {
			return nil, x.wrap(err, n.Key(), blockName)
		}
		if ok && r.Score > 0 {
			out = append(out, r)
		}
	}
	slog.Debug("join executed",
		"network", n.String(),
		"block", blockName,
		"rows", len(rows),
		"results", len(out),
		"duration", time.Since(start))
	return out, nil
}

// scoreRow reads one joined row. ok is false when a non-free node's row
// is not a member of its stratum.
func (x *Executor) scoreRow(n *network.Network, spec *joinSpec, row []any, score scoreFunc) (Result, bool, error) {
	res := Result{
		NetworkKey: n.Key(),
		Network:    n,
		Rows:       make([]RowRef, len(n.Nodes)),
	}
	var sig tupleset.Signature
	var scores []float64
	col := 0
	for i, table := range spec.tables {
		if col >= len(row) {
			return Result{}, false, fmt.Errorf("row has %d columns, want more", len(row))
		}
		id, err := store.Int64(row[col])
		if err != nil {
			return Result{}, false, fmt.Errorf("%s key: %w", alias(i), err)
		}
		col++
		values := make(map[string]string, len(table.TextColumns))
		for _, c := range table.TextColumns {
			values[c] = store.Text(row[col])
			col++
		}
		res.Rows[i] = RowRef{Alias: alias(i), Node: i, Table: table.Name, RowID: id, Values: values}

		m := spec.members[i]
		if m == nil {
			continue
		}
		t, ok := m.Tuple(id)
		if !ok {
			return Result{}, false, nil
		}
		if sig == nil {
			sig = make(tupleset.Signature, len(t.Signature))
		}
		sig = sig.Add(t.Signature)
		scores = append(scores, t.Score)
	}
	res.Signature = sig
	res.Score = score(sig, scores)
	return res, true, nil
}

// wrap classifies executor errors as RuntimeErrors.
func (x *Executor) wrap(err error, networkKey, blockName string) error {
	var je *JoinCandidateNotFoundError
	if errors.As(err, &je) {
		re := je.RuntimeError()
		re.Network, re.Block = networkKey, blockName
		return re
	}
	if tupleset.IsInvariantError(err) {
		re := invariantError(err)
		re.Network, re.Block = networkKey, blockName
		return re
	}
	return &RuntimeError{
		Code:    ErrCodeSQLExecution,
		Message: "join failed",
		Network: networkKey,
		Block:   blockName,
		Err:     err,
	}
}

// sortResults orders results by score descending, then network key, then
// row ids.
func sortResults(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		return resultLess(rs[i], rs[j])
	})
}

func resultLess(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.NetworkKey != b.NetworkKey {
		return a.NetworkKey < b.NetworkKey
	}
	ai, bi := a.RowIDs(), b.RowIDs()
	for k := 0; k < len(ai) && k < len(bi); k++ {
		if ai[k] != bi[k] {
			return ai[k] < bi[k]
		}
	}
	return len(ai) < len(bi)
}
