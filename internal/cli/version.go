package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, injected with -ldflags "-X".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionString formats the build information.
func VersionString() string {
	return fmt.Sprintf("Arbor v%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), VersionString())
		},
	}
}
