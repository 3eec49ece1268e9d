package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Mr-Dark-debug/arbor/internal/database"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/pkg/jsonutil"
	"github.com/Mr-Dark-debug/arbor/pkg/timeutil"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var errNoCache = errors.New("the document cache is disabled")

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the document cache",
	}

	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheHistoryCommand())
	cmd.AddCommand(c.cacheShowCommand())
	return cmd
}

// withStore runs fn against an open cache, failing when it is disabled.
func (c *CLI) withStore(cmd *cobra.Command, fn func(env *Env) error) error {
	env, err := c.env(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	if env.Store == nil {
		return errNoCache
	}
	return fn(env)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func (c *CLI) cacheListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached documents, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(env *Env) error {
				docs, err := env.Store.ListDocuments(limit)
				if err != nil {
					return err
				}
				stats, err := env.Store.GetCacheStats()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(docs) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}

				t := newTable("SOURCE", "NODES", "FETCHED")
				for _, d := range docs {
					t.Row(d.Source, strconv.Itoa(d.NodeCount), timeutil.Age(d.FetchedAt))
				}
				fmt.Fprintln(out, t.String())
				fmt.Fprintf(out, "%d documents, %d bytes, %d fetches (%d failed)\n",
					stats.Documents, stats.TotalBytes, stats.Fetches, stats.Failures)
				fmt.Fprintf(out, "Database: %s\n", env.Store.Path())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum documents to list")
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [source]",
		Short: "Drop one cached document, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(env *Env) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					if err := env.Store.DeleteDocument(args[0]); err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %s\n", args[0])
					return nil
				}

				n, err := env.Store.PurgeDocuments()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d cached documents\n", n)
				return nil
			})
		},
	}
}

func (c *CLI) cacheHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [source]",
		Short: "Show the fetch log, optionally for one source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return c.withStore(cmd, func(env *Env) error {
				events, err := env.Store.FetchHistory(source, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No fetches recorded")
					return nil
				}

				t := newTable("WHEN", "STATUS", "MS", "SOURCE", "ERROR")
				for _, ev := range events {
					msg := ""
					if ev.ErrorMessage != nil {
						msg = *ev.ErrorMessage
					}
					t.Row(timeutil.Stamp(ev.Timestamp), ev.Status,
						strconv.FormatInt(ev.DurationMs, 10), ev.Source, msg)
				}
				fmt.Fprintln(out, t.String())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum events to show")
	return cmd
}

func (c *CLI) cacheShowCommand() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "show <source>",
		Short: "Print the cached body of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(env *Env) error {
				doc, err := env.Store.GetDocument(args[0])
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("%s is not cached", args[0])
				}
				if err != nil {
					return err
				}

				body := jsonutil.Pretty(doc.Body)
				if compact {
					body = jsonutil.Compact(doc.Body)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, string(body))
				logx.FromContext(cmd.Context()).Debug("showed cached document",
					"source", doc.Source, "nodes", doc.NodeCount, "age", timeutil.Age(doc.FetchedAt))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "print without indentation")
	return cmd
}
