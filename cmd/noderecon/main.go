// noderecon reconciles peer observations collected by independent crawlers
// and compares them with public peer lists.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spacemeshos/noderecon/cmd"
)

var (
	version string
	commit  string
	branch  string
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch

	ctx, stop := signal.NotifyContext(context.Background(), cmd.Signals...)
	defer stop()
	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
