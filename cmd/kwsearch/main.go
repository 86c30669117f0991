// Command kwsearch runs top-K keyword searches over a relational database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kwsearch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kwsearch:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
