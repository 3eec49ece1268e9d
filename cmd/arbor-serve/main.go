// Arbor Serve, a small HTTP server publishing node documents from a
// directory so remote childrenURL references can be tried locally.
//
// Usage:
//
//	arbor-serve [flags]
//
// Flags:
//
//	--addr    HTTP listen address (default: 127.0.0.1:9880)
//	--dir     Directory of node documents (default: .)
//	--config, --db, --no-cache, -v
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mr-Dark-debug/arbor/internal/cli"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/internal/server"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		flags cli.Flags
		addr  string
		dir   string
	)

	cmd := &cobra.Command{
		Use:           "arbor-serve",
		Short:         "Serve a directory of node documents over HTTP",
		Version:       cli.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dir != "" {
				cfg.Server.Dir = dir
			}
			logger := logx.New(cmd.ErrOrStderr(), logx.ParseLevel(cfg.Log.Level))

			env, err := cli.OpenEnv(cfg, logger)
			if err != nil {
				return err
			}
			defer env.Close()

			scfg := server.Config{
				Addr:   cfg.Server.Addr,
				Dir:    cfg.Server.Dir,
				Logger: logger,
			}
			if env.Store != nil {
				scfg.Store = env.Store
			}
			srv := server.New(scfg)

			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  ARBOR SERVE")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Documents: http://%s/docs/\n", srv.Addr())
			fmt.Fprintf(out, "  Dir:       %s\n", cfg.Server.Dir)
			fmt.Fprintf(out, "  Metrics:   http://%s/metrics\n", srv.Addr())
			if env.Store != nil {
				fmt.Fprintf(out, "  Cache:     %s\n", env.Store.Path())
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  Press Ctrl+C to stop.")
			fmt.Fprintln(out)

			<-ctx.Done()

			fmt.Fprintln(out, "\n  Shutting down gracefully...")
			if err := srv.Stop(); err != nil {
				logger.Error("shutdown failed", "err", err)
			}
			fmt.Fprintln(out, "  Done.")
			return nil
		},
	}

	flags.Register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config, 127.0.0.1:9880)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory of node documents (default from config, .)")
	return cmd
}
