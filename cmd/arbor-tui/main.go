// Arbor TUI, the interactive navigator for lazily loaded node documents.
//
// Usage:
//
//	arbor-tui [source] [flags]
//
// Flags:
//
//	--watch       Remount the tree when a local root document changes
//	--legacy      Move focus between siblings only
//	--no-retry    Keep failed subtrees failed instead of retrying on expand
//	--log-file    Log file (default: ~/.arbor/arbor.log)
//	--config, --db, --no-cache, --offline, -v
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mr-Dark-debug/arbor/internal/cli"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/internal/tree"
	"github.com/Mr-Dark-debug/arbor/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		flags   cli.Flags
		watch   bool
		legacy  bool
		noRetry bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:           "arbor-tui [source]",
		Short:         "Navigate a tree of node documents",
		Version:       cli.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				cfg.Nav.Watch = watch
			}
			if legacy {
				cfg.Nav.Legacy = true
			}
			if noRetry {
				cfg.Nav.RetryFailedLoads = false
			}
			if logFile != "" {
				cfg.Log.File = logFile
			}

			source := cfg.Source
			if len(args) == 1 {
				source = args[0]
			}
			if source == "" {
				return errors.New("no source given and none configured")
			}

			// The terminal belongs to the TUI, so logs go to a file.
			f, err := logx.OpenFile(cfg.Log.File)
			if err != nil {
				return err
			}
			defer f.Close()
			logger := logx.New(f, logx.ParseLevel(cfg.Log.Level))

			env, err := cli.OpenEnv(cfg, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			treeOpts := tree.DefaultOptions()
			treeOpts.RetryFailedLoads = cfg.Nav.RetryFailedLoads
			if cfg.Nav.Legacy {
				treeOpts.Navigation = tree.NavLegacy
			}

			ctx := cmd.Context()
			model := tui.NewModel(source, tui.Options{
				Loader: env.Loader,
				Tree:   treeOpts,
				Glyphs: tui.Glyphs{
					Collapsed: cfg.Glyphs.Collapsed,
					Expanded:  cfg.Glyphs.Expanded,
					Failed:    cfg.Glyphs.Failed,
				},
				Watch:   cfg.Nav.Watch,
				Logger:  logger,
				Context: ctx,
			})

			logger.Info("navigator starting", "source", source, "watch", cfg.Nav.Watch, "legacy", cfg.Nav.Legacy)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
			final, err := p.Run()
			if m, ok := final.(tui.Model); ok {
				m.Close()
			}
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}

	flags.Register(cmd)
	cmd.Flags().BoolVar(&watch, "watch", false, "remount the tree when a local root document changes")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "move focus between siblings only")
	cmd.Flags().BoolVar(&noRetry, "no-retry", false, "keep failed subtrees failed instead of retrying on expand")
	cmd.Flags().StringVar(&logFile, "log-file", "", "log file (default ~/.arbor/arbor.log)")
	return cmd
}
