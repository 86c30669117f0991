package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kwsearch/internal/engine"
	"github.com/roach88/kwsearch/internal/network"
	"github.com/roach88/kwsearch/internal/schema"
	"github.com/roach88/kwsearch/internal/store"
	"github.com/roach88/kwsearch/internal/store/pgstore"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// QueryOptions holds the flags shared by commands that query a database.
type QueryOptions struct {
	*RootOptions
	Database  string
	Driver    string // "sqlite" | "postgres"
	Schema    string
	K         int
	MaxSize   int
	Semantics string
	Timeout   time.Duration
	Deadline  time.Duration
	MaxSteps  int
	Restrict  string
	Parallel  int
	Coverage  float64
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "SQLite path or Postgres DSN (required)")
	cmd.Flags().StringVar(&o.Driver, "driver", "sqlite", "database driver (sqlite|postgres)")
	cmd.Flags().StringVar(&o.Schema, "schema", "", "CUE schema file or directory (required)")
	cmd.Flags().IntVarP(&o.K, "top-k", "k", engine.DefaultK, "number of results")
	cmd.Flags().IntVar(&o.MaxSize, "max-size", network.DefaultMaxSize, "maximum candidate network size")
	cmd.Flags().StringVar(&o.Semantics, "semantics", "or", "keyword semantics (and|or)")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", engine.DefaultExecTimeout, "timeout per join")
	cmd.Flags().DurationVar(&o.Deadline, "deadline", 0, "overall time budget, 0 for none")
	cmd.Flags().IntVar(&o.MaxSteps, "max-steps", 0, "maximum engine steps, 0 for none")
	cmd.Flags().StringVar(&o.Restrict, "restrict", "ids", "stratum restriction (ids|match)")
	cmd.Flags().IntVar(&o.Parallel, "parallel", store.DefaultParallelism, "tables scanned at once")
	cmd.Flags().Float64Var(&o.Coverage, "coverage-exponent", 2, "coverage exponent P")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("schema")
}

// session is an open database with an engine over it.
type session struct {
	schema *schema.Schema
	engine *engine.Engine
	query  *tupleset.Query
	close  func()
}

// fail reports err in JSON mode and returns it as a command error.
func (o *QueryOptions) fail(cmd *cobra.Command, code, message string, err error) error {
	if o.Format == "json" {
		_ = NewOutputFormatter(o.RootOptions, cmd).Error(code, message, err.Error())
	}
	return WrapExitError(ExitCommandError, message, err)
}

// open loads the schema, connects and builds the engine for the query
// words in args.
func (o *QueryOptions) open(ctx context.Context, cmd *cobra.Command, args []string) (*session, error) {
	loaded, err := LoadSchema(o.Schema)
	if err != nil {
		code := ErrCodeInvalidSchema
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		return nil, o.fail(cmd, code, "failed to load schema", err)
	}
	s := loaded.Schema

	sem, err := tupleset.ParseSemantics(o.Semantics)
	if err != nil {
		return nil, o.fail(cmd, ErrCodeQuery, "invalid --semantics", err)
	}
	restriction, err := engine.ParseRestriction(o.Restrict)
	if err != nil {
		return nil, o.fail(cmd, ErrCodeQuery, "invalid --restrict", err)
	}
	q, err := tupleset.NewQuery(strings.Join(args, " "), sem)
	if err != nil {
		return nil, o.fail(cmd, ErrCodeQuery, "invalid query", err)
	}

	db, closeDB, err := o.connect(ctx)
	if err != nil {
		return nil, o.fail(cmd, ErrCodeDatabase, "failed to open database", err)
	}

	opts := []engine.EngineOption{
		engine.WithK(o.K),
		engine.WithMaxNetworkSize(o.MaxSize),
		engine.WithExecTimeout(o.Timeout),
		engine.WithRestriction(restriction),
		engine.WithParallelism(o.Parallel),
		engine.WithCoverageExponent(o.Coverage),
		engine.WithMaxSteps(o.MaxSteps),
	}
	if o.Deadline > 0 {
		opts = append(opts, engine.WithDeadline(time.Now().Add(o.Deadline)))
	}
	eng, err := engine.New(s, db, opts...)
	if err != nil {
		closeDB()
		return nil, o.fail(cmd, ErrCodeInvalidSchema, "invalid schema", err)
	}

	return &session{schema: s, engine: eng, query: q, close: closeDB}, nil
}

// connect opens the configured driver.
func (o *QueryOptions) connect(ctx context.Context) (store.Querier, func(), error) {
	switch o.Driver {
	case "sqlite", "":
		if _, err := os.Stat(o.Database); err != nil {
			return nil, nil, fmt.Errorf("database not found: %w", err)
		}
		st, err := store.Open(o.Database, store.WithMaxOpenConns(o.Parallel))
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}, nil
	case "postgres":
		pg, err := pgstore.Open(ctx, o.Database)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q: must be sqlite or postgres", o.Driver)
	}
}
