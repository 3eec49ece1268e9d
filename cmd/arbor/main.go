// Arbor CLI, to print, inspect and cache node documents.
//
// Usage:
//
//	arbor <command> [flags]
//
// Commands:
//
//	print     Print a node document as a tree
//	stats     Report node counts, depth and duplicate labels
//	cache     List, clear or show the history of the document cache
//	version   Print version information
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mr-Dark-debug/arbor/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.New(os.Stderr).RootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
