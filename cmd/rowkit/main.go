// Command rowkit runs parameterized SQL against a SQLite database file.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rowkit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
