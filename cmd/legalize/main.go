// Command legalize moves cells of a global placement onto legal row sites.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/legalize/internal/cli"
)

// exitInterrupted is returned after SIGINT or SIGTERM. The partial result of
// an interrupted run has already been written by then.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second interrupt kills the process instead of waiting for outputs.
		<-ctx.Done()
		stop()
	}()

	os.Exit(exitCode(run(ctx, os.Args[1:]), os.Stderr))
}

func run(ctx context.Context, args []string) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log annealing progress and cache decisions")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
	}
	return root.ExecuteContext(ctx)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}
