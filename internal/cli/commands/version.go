package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewVersionCommand creates the version command. It reads no configuration.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the schemashift version, build metadata and the database adapters compiled in.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "schemashift v%s\n", info.Version)
			if info.Commit != "" && info.Commit != "unknown" {
				_, _ = fmt.Fprintf(w, "Commit: %s (built %s)\n", info.Commit, info.Date)
			}
			_, _ = fmt.Fprintf(w, "Adapters: %s\n", strings.Join(adapter.ListAdapters(), ", "))
		},
	}
}
