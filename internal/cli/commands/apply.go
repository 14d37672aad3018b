package commands

import (
	"github.com/spf13/cobra"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	var (
		format   string
		noInsert bool
	)

	cmd := &cobra.Command{
		Use:   "apply <table> <records-file>",
		Short: "Evolve the table schema and load the records",
		Long: `Evolve the table so every record fits, then insert the records.

Introspection, planning and DDL run in one transaction holding a per-table
lock. Rows are inserted only after the schema change has committed. Use
--no-insert to change the schema without loading data.`,
		Example: `  # Evolve and load
  schemashift apply prices testdata/prices.csv

  # Only evolve the schema
  schemashift apply market.prices prices.yaml --no-insert`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], args[1], format, noInsert)
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&noInsert, "no-insert", false, "Evolve the schema without inserting the records")
	return cmd
}

func runApply(cmd *cobra.Command, tableArg, path, format string, noInsert bool) error {
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

	if noInsert {
		res, err := ev.Evolve(cmd.Context(), table, recs)
		if err != nil {
			return err
		}
		return renderResult(c.Renderer, res, "applied")
	}

	res, err := ev.Ingest(cmd.Context(), table, recs)
	if err != nil {
		return err
	}
	return renderResult(c.Renderer, res, "applied")
}
