// Command feedsync syncs a paged event feed and groups it for display.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/feedsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
