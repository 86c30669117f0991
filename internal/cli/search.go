package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/kwsearch/internal/engine"
)

// SearchOutput is the JSON payload of the search command.
type SearchOutput struct {
	QueryID   string         `json:"query_id"`
	Keywords  []string       `json:"keywords"`
	Semantics string         `json:"semantics"`
	Results   []SearchResult `json:"results"`
	Stats     engine.Stats   `json:"stats"`
}

// SearchResult is one ranked joined tuple.
type SearchResult struct {
	Rank    int         `json:"rank"`
	Score   float64     `json:"score"`
	Network string      `json:"network"`
	Rows    []SearchRow `json:"rows"`
}

// SearchRow is one table row of a result.
type SearchRow struct {
	Table  string            `json:"table"`
	ID     int64             `json:"id"`
	Values map[string]string `json:"values,omitempty"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <keywords...>",
		Short: "Return the top-K joined tuples for a keyword query",
		Long: `Search the database for the top-K joined tuples matching the keywords.

Exit codes:
  0 - Search finished (possibly with zero results)
  2 - Command error (schema, database, invalid flags)

Examples:
  kwsearch search --db ./bib.db --schema ./bib.cue alice databases
  kwsearch search --db ./bib.db --schema ./bib.cue -k 5 --semantics and alice databases
  kwsearch search --driver postgres --db postgres://localhost/bib --schema ./bib.cue alice`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runSearch(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := opts.open(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer sess.close()

	results, err := sess.engine.Search(ctx, sess.query)
	if err != nil {
		return opts.fail(cmd, ErrCodeSearch, "search failed", err)
	}

	out := SearchOutput{
		QueryID:   sess.query.ID,
		Keywords:  sess.query.Keywords,
		Semantics: sess.query.Semantics.String(),
		Results:   make([]SearchResult, len(results)),
		Stats:     sess.engine.Stats(),
	}
	for i, r := range results {
		sr := SearchResult{Rank: i + 1, Score: r.Score, Network: r.Network.String()}
		for _, row := range r.Rows {
			sr.Rows = append(sr.Rows, SearchRow{Table: row.Table, ID: row.RowID, Values: row.Values})
		}
		out.Results[i] = sr
	}

	if opts.Format == "json" {
		return NewOutputFormatter(opts.RootOptions, cmd).SuccessWithID(out, out.QueryID)
	}
	writeSearchText(cmd, out)
	return nil
}

func writeSearchText(cmd *cobra.Command, out SearchOutput) {
	w := cmd.OutOrStdout()
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results.")
	}
	for _, r := range out.Results {
		fmt.Fprintf(w, "#%d  %.6f  %s\n", r.Rank, r.Score, r.Network)
		for _, row := range r.Rows {
			fmt.Fprintf(w, "    %s:%d", row.Table, row.ID)
			cols := make([]string, 0, len(row.Values))
			for c := range row.Values {
				cols = append(cols, c)
			}
			slices.Sort(cols)
			for _, c := range cols {
				fmt.Fprintf(w, "  %s=%q", c, row.Values[c])
			}
			fmt.Fprintln(w)
		}
	}

	st := out.Stats
	fmt.Fprintf(w, "\n%d result(s) from %d network(s): %d block(s) executed, %d skipped, %d failed\n",
		st.Results, st.Networks, st.Executed, st.Skipped, st.Failed)
	if !st.Complete {
		fmt.Fprintf(w, "Stopped early (%s); results may not be the true top %d\n", st.StopReason, len(out.Results))
	}
}
