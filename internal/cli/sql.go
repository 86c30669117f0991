package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kwsearch/internal/block"
)

// SQLOutput is one network's first-block query.
type SQLOutput struct {
	Network string `json:"network"`
	Block   string `json:"block"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <keywords...>",
		Short: "Print the SQL of each candidate network's best block",
		Long: `Generate the candidate networks of a keyword query and print the
parameterized join that would run for each network's highest-bound block.
Nothing is executed except the keyword scans.

Example:
  kwsearch sql --db ./bib.db --schema ./bib.cue --restrict match alice databases`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runSQL(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	sess, err := opts.open(ctx, cmd, args)
	if err != nil {
		return err
	}
	defer sess.close()

	plan, err := sess.engine.Prepare(ctx, sess.query)
	if err != nil {
		return opts.fail(cmd, ErrCodeSearch, "failed to prepare query", err)
	}

	out := []SQLOutput{}
	for _, n := range plan.Networks {
		c, err := block.NewCreator(sess.query, n, opts.Coverage)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to stratify network", err)
		}
		first, err := c.First()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to create block", err)
		}
		sql, params, err := sess.engine.Executor().CompileBlock(first)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to compile %s", n), err)
		}
		out = append(out, SQLOutput{Network: n.String(), Block: first.String(), SQL: sql, Params: params})
	}

	if opts.Format == "json" {
		return NewOutputFormatter(opts.RootOptions, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	for _, o := range out {
		fmt.Fprintf(w, "-- %s\n-- %s\n%s;\n-- params: %v\n\n", o.Network, o.Block, o.SQL, o.Params)
	}
	if len(out) == 0 {
		fmt.Fprintln(w, "No candidate networks.")
	}
	return nil
}
