package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NetworksOutput is the JSON payload of the networks command.
type NetworksOutput struct {
	Keywords  []string      `json:"keywords"`
	TupleSets []TupleSetRow `json:"tuple_sets"`
	Networks  []NetworkRow  `json:"networks"`
	Visited   int           `json:"visited"`
	Pruned    int           `json:"pruned"`
}

// TupleSetRow summarizes one non-free tuple set.
type TupleSetRow struct {
	ID        string `json:"id"`
	Tuples    int    `json:"tuples"`
	TableSize int    `json:"table_size"`
}

// NetworkRow is one candidate network.
type NetworkRow struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
	Tree string `json:"tree"`
}

// NewNetworksCommand creates the networks command.
func NewNetworksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "networks <keywords...>",
		Short: "List the candidate networks of a keyword query",
		Long: `Map the keywords to tuple sets and list the candidate networks
that would be searched, without executing any join.

Example:
  kwsearch networks --db ./bib.db --schema ./bib.cue --max-size 3 alice databases`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetworks(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runNetworks(opts *QueryOptions, args []string, cmd *cobra.Command) error {
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

	out := NetworksOutput{
		Keywords:  sess.query.Keywords,
		TupleSets: []TupleSetRow{},
		Networks:  make([]NetworkRow, len(plan.Networks)),
		Visited:   plan.Generator.Visited,
		Pruned:    plan.Generator.Pruned,
	}
	for _, ts := range plan.TupleSets {
		out.TupleSets = append(out.TupleSets, TupleSetRow{ID: ts.ID(), Tuples: ts.Len(), TableSize: ts.TableSize})
	}
	for i, n := range plan.Networks {
		out.Networks[i] = NetworkRow{Key: n.Key(), Size: n.Size(), Tree: n.String()}
	}

	if opts.Format == "json" {
		return NewOutputFormatter(opts.RootOptions, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Tuple sets (%d):\n", len(out.TupleSets))
	for _, ts := range out.TupleSets {
		fmt.Fprintf(w, "  %s  %d/%d rows\n", ts.ID, ts.Tuples, ts.TableSize)
	}
	fmt.Fprintf(w, "Candidate networks (%d):\n", len(out.Networks))
	for _, n := range out.Networks {
		fmt.Fprintf(w, "  [%d] %s  %s\n", n.Size, shortKey(n.Key), n.Tree)
	}
	return nil
}

// shortKey abbreviates a content hash for display.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
