// Command sqlitecore drives the connection manager, transaction
// coordinator, change observer, and migration runner from the command
// line, for operators and test harnesses that would otherwise have to
// embed internal/dispatch directly.
package main

import (
	"fmt"
	"os"

	"go.sqlitecore.dev/core/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
