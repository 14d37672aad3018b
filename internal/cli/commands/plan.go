package commands

import (
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan <table> <records-file>",
		Short: "Show the DDL a batch of records would need",
		Long: `Infer a storage type for every field in the records file, compare it with the
live schema of the table and print the statements apply would run.

Nothing is changed and no lock is taken, so the plan can be stale by the
time it is applied.`,
		Example: `  # Plan against the configured target
  schemashift plan prices testdata/prices.json

  # Read NDJSON from stdin
  cat prices.ndjson | schemashift plan market.prices - --format ndjson`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], args[1], format)
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func runPlan(cmd *cobra.Command, tableArg, path, format string) error {
	c, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	table, err := c.ParseTable(tableArg)
	if err != nil {
		return err
	}
	recs, err := readRecords(path, format)
	if err != nil {
		return err
	}

	ev, cleanup, err := c.OpenEvolver(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := ev.Preview(cmd.Context(), table, recs)
	if err != nil {
		return err
	}
	return renderResult(c.Renderer, res, "planned")
}
