// Package commands implements the schemashift subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemashift/internal/cli/output"
	"github.com/leapstack-labs/schemashift/internal/config"
	"github.com/leapstack-labs/schemashift/internal/journal"
	"github.com/leapstack-labs/schemashift/internal/records"
	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/evolve"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the config and logger that
// the root command stored in the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, nil
}

// Connect opens the configured database adapter.
func (c *CommandContext) Connect(ctx context.Context) (adapter.Adapter, error) {
	acfg := c.Cfg.Target.AdapterConfig()
	a, err := adapter.NewAdapter(acfg, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, acfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Cfg.Target.Type, err)
	}
	return a, nil
}

// OpenJournal opens the attempt journal, or returns nil when it is disabled.
func (c *CommandContext) OpenJournal() (*journal.Store, error) {
	if !c.Cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(c.Cfg.Journal.Path, c.Logger)
}

// OpenEvolver connects to the target and builds an Evolver wired to the journal.
// The returned cleanup closes both.
func (c *CommandContext) OpenEvolver(ctx context.Context) (*evolve.Evolver, func(), error) {
	a, err := c.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := c.OpenJournal()
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		_ = a.Close()
	}

	ecfg := evolve.Config{
		Adapter:          a,
		LockTimeout:      c.Cfg.Evolve.LockTimeout,
		StatementTimeout: c.Cfg.Evolve.StatementTimeout,
		RetypeNullOnly:   c.Cfg.Evolve.RetypeNullOnly,
		Logger:           c.Logger,
	}
	// Zero in the config file means no bound; the evolver reads zero as "use the default".
	if ecfg.StatementTimeout == 0 {
		ecfg.StatementTimeout = -1
	}
	if store != nil {
		ecfg.Journal = store
	}

	ev, err := evolve.New(ecfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ev, cleanup, nil
}

// ParseTable parses a table argument against the target's default schema.
func (c *CommandContext) ParseTable(arg string) (core.TableRef, error) {
	return core.ParseTableRef(arg, c.Cfg.Target.Schema)
}

// readRecords loads a records file, honouring an explicit --format.
func readRecords(path, format string) ([]core.Record, error) {
	var f records.Format
	if format != "" {
		parsed, err := records.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		f = parsed
	}
	recs, err := records.ReadFile(path, f)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: no records", path)
	}
	return recs, nil
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", "", "Records format (json|ndjson|yaml|csv); inferred from the extension when empty")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "ndjson", "yaml", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// renderResult prints the statements of an evolution result.
func renderResult(r *output.Renderer, res *evolve.Result, verb string) error {
	if r.IsJSON() {
		return r.JSON(res)
	}

	if len(res.Statements) == 0 {
		r.Println(fmt.Sprintf("%s: schema is up to date", res.Table))
	} else {
		rows := make([][]any, 0, len(res.Statements))
		for _, st := range res.Statements {
			from := st.From.Name()
			if from == "" {
				from = "-"
			}
			rows = append(rows, []any{st.Kind, st.Column, from, st.To.Name()})
		}
		r.Table(fmt.Sprintf("%s: %d statement(s) %s", res.Table, len(res.Statements), verb),
			[]string{"kind", "column", "from", "to"}, rows)
		for _, st := range res.Statements {
			r.Println(st.SQL + ";")
		}
	}
	if res.Inserted > 0 {
		r.Println(fmt.Sprintf("%d row(s) inserted", res.Inserted))
	}
	return nil
}
