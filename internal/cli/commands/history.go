package commands

import (
	"errors"
	"time"

	"github.com/leapstack-labs/schemashift/internal/journal"
	"github.com/leapstack-labs/schemashift/pkg/evolve"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		table  string
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evolution attempts",
		Long: `List schema evolution attempts recorded in the local journal, newest first.
Failed attempts are kept along with the error that stopped them.`,
		Example: `  schemashift history --table prices --limit 5
  schemashift history --status failed -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, journal.Filter{Table: table, Status: evolve.Status(status), Limit: limit})
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Only attempts for this table (schema.table or table)")
	cmd.Flags().StringVar(&status, "status", "", "Only attempts with this status (applied|unchanged|failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "Maximum number of attempts")
	return cmd
}

func runHistory(cmd *cobra.Command, f journal.Filter) error {
	c, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := c.OpenJournal()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("the journal is disabled (journal.enabled: false)")
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(cmd.Context(), f)
	if err != nil {
		return err
	}

	r := c.Renderer
	if r.IsJSON() {
		if entries == nil {
			entries = []journal.Entry{}
		}
		return r.JSON(entries)
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.StartedAt.Local().Format(time.DateTime),
			e.Table,
			e.Status,
			len(e.Statements),
			e.Inserted,
			e.Duration.String(),
			e.Error,
		})
	}
	r.Table("", []string{"started", "table", "status", "statements", "inserted", "duration", "error"}, rows)
	return nil
}
