package commands

import (
	"fmt"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// describeConcurrency bounds parallel introspection queries.
const describeConcurrency = 4

type describedColumn struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Family string `json:"family"`
}

type describedTable struct {
	Table   string            `json:"table"`
	Columns []describedColumn `json:"columns"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>...",
		Short: "Show the live schema of one or more tables",
		Long: `Read the declared columns of each table and show the storage type
schemashift maps them to. Types outside the catalog are shown as foreign and
are never changed by apply.`,
		Example: `  schemashift describe prices market.quotes`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runDescribe,
	}
}

func runDescribe(cmd *cobra.Command, args []string) error {
	c, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	tables := make([]core.TableRef, len(args))
	for i, arg := range args {
		if tables[i], err = c.ParseTable(arg); err != nil {
			return err
		}
	}

	ev, cleanup, err := c.OpenEvolver(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	results := make([]describedTable, len(tables))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(describeConcurrency)
	for i, table := range tables {
		g.Go(func() error {
			schema, err := ev.Describe(ctx, table)
			if err != nil {
				return err
			}
			dt := describedTable{Table: table.String(), Columns: []describedColumn{}}
			for _, col := range schema.Columns() {
				dt.Columns = append(dt.Columns, describedColumn{
					Name:   col.Name,
					Type:   col.Type.Name(),
					Family: col.Type.Family().String(),
				})
			}
			results[i] = dt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r := c.Renderer
	if r.IsJSON() {
		return r.JSON(results)
	}
	for _, dt := range results {
		rows := make([][]any, 0, len(dt.Columns))
		for _, col := range dt.Columns {
			rows = append(rows, []any{col.Name, col.Type, col.Family})
		}
		r.Table(fmt.Sprintf("%s (%d columns)", dt.Table, len(dt.Columns)), []string{"column", "type", "family"}, rows)
	}
	return nil
}
