package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/roach88/kwsearch/internal/block"
	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/store"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// DefaultK is the default number of results.
const DefaultK = 10

// Engine answers keyword queries with the top K joined tuples.
//
// An Engine is not safe for concurrent use; separate Engines may run
// concurrently over the same database.
type Engine struct {
	schema   *schema.Schema
	graph    *schema.Graph
	db       store.Querier
	executor *Executor

	k           int
	p           float64
	restriction Restriction
	execTimeout time.Duration
	deadline    time.Time
	maxSteps    int
	maxSize     int
	parallel    int

	query     *tupleset.Query
	networks  []*network.Network
	creators  []*block.Creator
	queue     *blockQueue
	results   []Result
	threshold float64
	stats     Stats
}

// Stats counts the work of the last query.
type Stats struct {
	Networks       int `json:"networks"`
	BlocksProduced int `json:"blocks_produced"`
	Tightened      int `json:"tightened"`
	Executed       int `json:"executed"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	Results        int `json:"results"`
	QueueRemaining int `json:"queue_remaining"`
	Steps          int `json:"steps"`

	// Complete is false when a deadline, cancellation or step limit
	// stopped the loop before the stopping condition held.
	Complete   bool   `json:"complete"`
	StopReason string `json:"stop_reason,omitempty"`
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithK sets the number of results. Default: 10 (DefaultK).
func WithK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithCoverageExponent sets the P of the coverage term.
// Default: 2 (block.DefaultCoverageExponent).
func WithCoverageExponent(p float64) EngineOption {
	return func(e *Engine) {
		e.p = p
	}
}

// WithExecTimeout bounds each join. Default: 30s (DefaultExecTimeout).
func WithExecTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.execTimeout = d
		}
	}
}

// WithRestriction selects how joins are limited to stratum rows.
// Default: RestrictRowIDs.
func WithRestriction(r Restriction) EngineOption {
	return func(e *Engine) {
		e.restriction = r
	}
}

// WithDeadline stops the loop at t, keeping the results found so far.
func WithDeadline(t time.Time) EngineOption {
	return func(e *Engine) {
		e.deadline = t
	}
}

// WithMaxSteps bounds the number of loop iterations. Zero means no limit.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxSteps = n
		}
	}
}

// WithMaxNetworkSize bounds candidate network size.
// Default: 4 (network.DefaultMaxSize).
func WithMaxNetworkSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSize = n
		}
	}
}

// WithParallelism bounds concurrent table scans in Search.
// Default: 4 (store.DefaultParallelism).
func WithParallelism(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.parallel = n
		}
	}
}

// New creates an Engine over db for schema s.
func New(s *schema.Schema, db store.Querier, opts ...EngineOption) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	e := &Engine{
		schema:      s,
		graph:       schema.NewGraph(s),
		db:          db,
		k:           DefaultK,
		p:           block.DefaultCoverageExponent,
		execTimeout: DefaultExecTimeout,
		maxSize:     network.DefaultMaxSize,
		parallel:    store.DefaultParallelism,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.executor = NewExecutor(e.graph, db, e.restriction, e.execTimeout)
	return e, nil
}

// Executor returns the engine's executor.
func (e *Engine) Executor() *Executor {
	return e.executor
}

// Graph returns the schema graph.
func (e *Engine) Graph() *schema.Graph {
	return e.graph
}

// Plan is the output of Prepare.
type Plan struct {
	Query     *tupleset.Query
	TupleSets []*tupleset.TupleSet
	Graph     *tupleset.Graph
	Networks  []*network.Network
	Generator network.GeneratorStats
}

// Prepare maps the query's keywords to tuple sets and generates the
// candidate networks.
func (e *Engine) Prepare(ctx context.Context, q *tupleset.Query) (*Plan, error) {
	loaded, err := store.NewLoader(e.db, e.schema, store.WithParallelism(e.parallel)).Load(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load tuple sets: %w", err)
	}
	tg := tupleset.NewGraph(e.graph, loaded.TupleSets, loaded.TableSizes)
	gen := network.NewGenerator(tg, network.WithMaxSize(e.maxSize))
	return &Plan{
		Query:     q,
		TupleSets: loaded.TupleSets,
		Graph:     tg,
		Networks:  gen.Generate(q),
		Generator: gen.Stats(),
	}, nil
}

// Search prepares, initializes and executes q, returning the top K.
func (e *Engine) Search(ctx context.Context, q *tupleset.Query) ([]Result, error) {
	plan, err := e.Prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := e.Initialize(q, plan.Networks); err != nil {
		return nil, err
	}
	if err := e.Execute(ctx); err != nil {
		return nil, err
	}
	return e.Results(), nil
}

// Initialize resets the engine for q and queues the first block of every
// network. An invariant violation in stratification aborts.
func (e *Engine) Initialize(q *tupleset.Query, networks []*network.Network) (err error) {
	defer recoverInvariant(&err)

	e.query = q
	e.networks = networks
	e.creators = nil
	e.queue = newBlockQueue()
	e.results = nil
	e.threshold = math.Inf(-1)
	e.stats = Stats{Networks: len(networks)}

	for _, n := range networks {
		c, err := block.NewCreator(q, n, e.p)
		if err != nil {
			return e.abort(err, n.Key())
		}
		first, err := c.First()
		if err != nil {
			return e.abort(err, n.Key())
		}
		e.creators = append(e.creators, c)
		e.queue.Push(first)
	}

	slog.Info("search initialized",
		"query_id", q.ID,
		"keywords", q.Keywords,
		"semantics", q.Semantics.String(),
		"networks", len(networks),
		"k", e.k)
	return nil
}

func (e *Engine) abort(err error, networkKey string) error {
	if tupleset.IsInvariantError(err) {
		re := invariantError(err)
		re.Network = networkKey
		return re
	}
	return err
}

// Execute runs the loop until the stopping condition holds, the queue
// empties, or an external limit fires. Limits stop the loop without an
// error; Stats reports whether the result is complete.
func (e *Engine) Execute(ctx context.Context) (err error) {
	if e.queue == nil {
		return fmt.Errorf("engine not initialized")
	}
	defer recoverInvariant(&err)
	defer e.finish()

	for e.queue.Len() > 0 {
		if reason := e.interrupted(ctx); reason != "" {
			e.stats.StopReason = reason
			slog.Warn("search stopped early",
				"query_id", e.query.ID,
				"reason", reason,
				"results", len(e.results))
			return nil
		}

		head := e.queue.Peek()
		if len(e.results) >= e.k && head.State.Value <= e.threshold {
			break
		}
		e.stats.Steps++
		b := e.queue.Pop()

		switch b.State.Kind {
		case block.USCORE:
			if err := e.tighten(b); err != nil {
				return err
			}
		case block.BSCORE:
			if err := e.execute(ctx, b); err != nil {
				return err
			}
		default:
			return invariantError(tupleset.Invariantf("Engine.Execute", "queued block %s in state %s", b, b.State))
		}
	}

	e.stats.Complete = true
	slog.Info("search complete",
		"query_id", e.query.ID,
		"results", len(e.results),
		"executed", e.stats.Executed,
		"steps", e.stats.Steps)
	return nil
}

func (e *Engine) interrupted(ctx context.Context) string {
	if ctx.Err() != nil {
		return "context: " + ctx.Err().Error()
	}
	if !e.deadline.IsZero() && !time.Now().Before(e.deadline) {
		return "deadline"
	}
	if e.maxSteps > 0 && e.stats.Steps >= e.maxSteps {
		return "max steps"
	}
	return ""
}

// tighten moves b from USCORE to BSCORE and queues its lattice successors.
func (e *Engine) tighten(b *block.Block) error {
	st, err := b.State.Tighten(b.BScore())
	if err != nil {
		return invariantError(err)
	}
	b.State = st
	e.queue.Push(b)
	e.stats.Tightened++

	next, err := b.Creator.Adjacent(b)
	if err != nil {
		return invariantError(err)
	}
	for _, n := range next {
		e.queue.Push(n)
	}
	return nil
}

// execute runs b and merges its rows into the results. Executor failures
// are logged and the block contributes nothing.
func (e *Engine) execute(ctx context.Context, b *block.Block) error {
	if b.State.Value <= 0 {
		// No row can score above zero.
		st, err := b.State.Executed(0)
		if err != nil {
			return invariantError(err)
		}
		b.State = st
		e.stats.Skipped++
		return nil
	}

	rows, err := e.executor.ExecuteBlock(ctx, b)
	if err != nil {
		if IsInvariantViolation(err) {
			return err
		}
		e.stats.Failed++
		slog.Warn("block execution failed",
			"query_id", e.query.ID,
			"block", b.String(),
			"error", err)
		rows = nil
	} else {
		e.stats.Executed++
	}

	best := 0.0
	for _, r := range rows {
		if r.Score > b.State.Value+1e-9 {
			return invariantError(tupleset.Invariantf("Engine.execute",
				"block %s produced score %v above its bound %v", b, r.Score, b.State.Value))
		}
		if r.Score > best {
			best = r.Score
		}
		e.insert(r)
	}
	st, err := b.State.Executed(best)
	if err != nil {
		return invariantError(err)
	}
	b.State = st
	return nil
}

// insert adds r in sorted position, keeps at most K results and updates
// the threshold.
func (e *Engine) insert(r Result) {
	i := sort.Search(len(e.results), func(i int) bool {
		return resultLess(r, e.results[i])
	})
	if i >= e.k {
		return
	}
	e.results = append(e.results, Result{})
	copy(e.results[i+1:], e.results[i:])
	e.results[i] = r
	if len(e.results) > e.k {
		e.results = e.results[:e.k]
	}
	if len(e.results) >= e.k {
		e.threshold = e.results[e.k-1].Score
	}
}

func (e *Engine) finish() {
	e.stats.Results = len(e.results)
	e.stats.QueueRemaining = e.queue.Len()
	e.stats.BlocksProduced = 0
	for _, c := range e.creators {
		e.stats.BlocksProduced += c.Produced()
	}
}

// Results returns the current top K, best first.
func (e *Engine) Results() []Result {
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// Stats returns counters for the last query.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Threshold returns the K-th best score, or -Inf while fewer than K
// results exist.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Head returns the best queued block's score, and false when the queue
// is empty.
func (e *Engine) Head() (float64, bool) {
	if e.queue == nil || e.queue.Len() == 0 {
		return 0, false
	}
	return e.queue.Peek().State.Value, true
}
