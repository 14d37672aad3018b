// Package duckdb provides a DuckDB database adapter for schema evolution.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	ddialect "github.com/leapstack-labs/schemashift/pkg/adapters/duckdb/dialect"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"

	duckdriver "github.com/marcboeker/go-duckdb"
)

const memoryPath = ":memory:"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter

	// lockScope prefixes table lock keys: the absolute database path, or a
	// per-adapter token for in-memory databases.
	lockScope string
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return ddialect.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = memoryPath
	}

	settings, err := settingStatements(params.Settings)
	if err != nil {
		return err
	}

	a.Logger.Debug("opening duckdb", slog.String("path", path), slog.Int("settings", len(settings)))

	// Settings are connection-local, so every pooled connection runs them
	// as it is opened, possibly long after Connect returned.
	connector, err := duckdriver.NewConnector(path, func(execer driver.ExecerContext) error {
		for _, stmt := range settings {
			if _, err := execer.ExecContext(context.Background(), stmt, nil); err != nil {
				return fmt.Errorf("failed to apply setting %q: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	db := sql.OpenDB(connector)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if err := loadExtensions(ctx, db, params.Extensions); err != nil {
		_ = db.Close()
		return err
	}

	if path == memoryPath {
		a.lockScope = fmt.Sprintf("memory:%p", a)
	} else if abs, err := filepath.Abs(path); err == nil {
		a.lockScope = abs
	} else {
		a.lockScope = path
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// loadExtensions installs and loads extensions once; a loaded extension is
// visible to every connection of the database.
func loadExtensions(ctx context.Context, db *sql.DB, extensions []string) error {
	for _, ext := range extensions {
		if err := core.ValidateIdentifier(ext); err != nil {
			return fmt.Errorf("invalid extension name: %w", err)
		}
		if _, err := db.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	return nil
}

// settingStatements renders the SET statements for settings in name order.
func settingStatements(settings map[string]string) ([]string, error) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		stmt, err := settingStatement(k, settings[k])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// settingStatement renders SET for a validated setting name. DuckDB does not
// accept parameters in SET, so the value is written as an escaped string literal.
func settingStatement(name, value string) (string, error) {
	if err := core.ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid setting name: %w", err)
	}
	return fmt.Sprintf("SET %s = '%s'", name, strings.ReplaceAll(value, "'", "''")), nil
}

// DescribeColumns reads the table's columns from information_schema.
func (a *Adapter) DescribeColumns(ctx context.Context, q adapter.Querier, table core.TableRef) ([]core.ColumnDescriptor, error) {
	return a.DescribeColumnsCommon(ctx, q, table, ddialect.DuckDB)
}

// NullOnlyColumns reports columns without a single non-null value.
func (a *Adapter) NullOnlyColumns(ctx context.Context, q adapter.Querier, table core.TableRef, columns []string) (map[string]bool, error) {
	return a.NullOnlyColumnsCommon(ctx, q, table, columns, ddialect.DuckDB)
}

// BeginLocked takes the in-process table lock and then begins the
// transaction. The order matters: DuckDB fixes a transaction's snapshot when it
// begins, so a transaction started before the lock could plan against a schema
// another holder has since changed.
func (a *Adapter) BeginLocked(ctx context.Context, table core.TableRef, timeout time.Duration) (*sql.Tx, func(), error) {
	if table.Schema == "" {
		table.Schema = ddialect.DuckDB.DefaultSchema
	}

	start := time.Now()
	release, ok := processLocks.acquire(ctx, a.lockScope+"|"+table.String(), timeout)
	if !ok {
		return nil, nil, &core.ConcurrentSchemaConflictError{Table: table, Waited: time.Since(start), Err: ctx.Err()}
	}

	tx, err := a.BeginTx(ctx, nil)
	if err != nil {
		release()
		return nil, nil, err
	}
	return tx, release, nil
}

// SetStatementTimeout is a no-op: DuckDB has no per-statement timeout setting.
// Statements are still bounded by the caller's context.
func (a *Adapter) SetStatementTimeout(_ context.Context, _ *sql.Tx, d time.Duration) error {
	if d > 0 {
		a.Logger.Debug("duckdb ignores statement timeout", slog.Duration("timeout", d))
	}
	return nil
}

// InsertRecords writes rows with a prepared INSERT in one transaction.
func (a *Adapter) InsertRecords(ctx context.Context, table core.TableRef, columns []core.Column, rows [][]any) (int64, error) {
	return a.InsertRecordsCommon(ctx, table, columns, rows, ddialect.DuckDB)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
