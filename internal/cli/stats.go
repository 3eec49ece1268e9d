package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Mr-Dark-debug/arbor/internal/analysis"

	"github.com/spf13/cobra"
)

func (c *CLI) statsCommand() *cobra.Command {
	var (
		expand bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "stats [source]",
		Short: "Report node counts, depth and duplicate labels of a tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "markdown" && format != "json" {
				return fmt.Errorf("unknown format %q (want markdown or json)", format)
			}
			source, err := c.sourceArg(args)
			if err != nil {
				return err
			}
			env, err := c.env(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			analyzer := analysis.NewAnalyzer(env.Loader)
			report, err := analyzer.FullAnalysis(cmd.Context(), source, expand, env.Config.Fetch.Concurrency)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				b, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				fmt.Fprintln(out, string(b))
				return nil
			}
			fmt.Fprint(out, analyzer.FormatReport(report))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&expand, "expand", "e", false, "fetch every lazy subtree before counting")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json")
	return cmd
}
