// Package postgres provides a PostgreSQL database adapter for schema evolution.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/schemashift/pkg/adapter"
	pgdialect "github.com/leapstack-labs/schemashift/pkg/adapters/postgres/dialect"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// lockPollInterval is how often a contended advisory lock is retried.
const lockPollInterval = 50 * time.Millisecond

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if name, ok := cfg.Options["application_name"]; ok {
		dsn += fmt.Sprintf(" application_name=%s", name)
	}

	return dsn
}

// DescribeColumns reads the table's columns from information_schema.
func (a *Adapter) DescribeColumns(ctx context.Context, q adapter.Querier, table core.TableRef) ([]core.ColumnDescriptor, error) {
	return a.DescribeColumnsCommon(ctx, q, table, pgdialect.Postgres)
}

// NullOnlyColumns reports columns without a single non-null value.
func (a *Adapter) NullOnlyColumns(ctx context.Context, q adapter.Querier, table core.TableRef, columns []string) (map[string]bool, error) {
	return a.NullOnlyColumnsCommon(ctx, q, table, columns, pgdialect.Postgres)
}

// BeginLocked begins a transaction and takes a transaction-scoped advisory
// lock keyed on the qualified table name. The lock is released by commit or
// rollback, so release is a no-op. Under READ COMMITTED every statement after
// the lock sees the schema committed by the previous holder.
//
// pg_try_advisory_xact_lock is polled rather than blocking so that contention
// surfaces as a conflict instead of a statement timeout.
func (a *Adapter) BeginLocked(ctx context.Context, table core.TableRef, timeout time.Duration) (*sql.Tx, func(), error) {
	tx, err := a.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := a.lockTable(ctx, tx, withDefaultSchema(table), timeout); err != nil {
		_ = tx.Rollback()
		return nil, nil, err
	}
	return tx, func() {}, nil
}

func (a *Adapter) lockTable(ctx context.Context, tx *sql.Tx, table core.TableRef, timeout time.Duration) error {
	key := table.String()
	start := time.Now()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		var acquired bool
		if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock(hashtext($1))", key).Scan(&acquired); err != nil {
			return fmt.Errorf("failed to acquire advisory lock: %w", err)
		}
		if acquired {
			a.Logger.Debug("advisory lock acquired", slog.String("table", key), slog.Duration("waited", time.Since(start)))
			return nil
		}

		waited := time.Since(start)
		if waited >= timeout {
			return &core.ConcurrentSchemaConflictError{Table: table, Waited: waited}
		}

		select {
		case <-ctx.Done():
			return &core.ConcurrentSchemaConflictError{Table: table, Waited: time.Since(start), Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// SetStatementTimeout applies statement_timeout to the current transaction only.
func (a *Adapter) SetStatementTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	ms := strconv.FormatInt(d.Milliseconds(), 10)
	if _, err := tx.ExecContext(ctx, "SELECT set_config('statement_timeout', $1, true)", ms); err != nil {
		return fmt.Errorf("failed to set statement timeout: %w", err)
	}
	return nil
}

// InsertRecords loads rows with COPY FROM STDIN in binary format. Binary COPY
// needs a codec for every column, so tables with foreign column types fall back
// to parameterized INSERTs.
func (a *Adapter) InsertRecords(ctx context.Context, table core.TableRef, columns []core.Column, rows [][]any) (int64, error) {
	if a.DB == nil {
		return 0, adapter.ErrNotConnected
	}
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	for _, c := range columns {
		if c.Type.IsForeign() {
			a.Logger.Debug("foreign column type, using INSERT", slog.String("column", c.Name), slog.String("type", c.Type.Name()))
			return a.InsertRecordsCommon(ctx, table, columns, rows, pgdialect.Postgres)
		}
	}

	ident, err := copyIdentifier(table)
	if err != nil {
		return 0, err
	}
	names := adapter.ColumnNames(columns)
	for _, n := range names {
		if err := core.ValidateIdentifier(n); err != nil {
			return 0, err
		}
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var copied int64
	err = conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()
		n, err := pgxConn.CopyFrom(ctx, ident, names, pgx.CopyFromRows(rows))
		copied = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy rows: %w", err)
	}

	a.Logger.Debug("rows copied", slog.String("table", withDefaultSchema(table).String()), slog.Int64("rows", copied))
	return copied, nil
}

func copyIdentifier(table core.TableRef) (pgx.Identifier, error) {
	table = withDefaultSchema(table)
	if err := core.ValidateIdentifier(table.Schema); err != nil {
		return nil, err
	}
	if err := core.ValidateIdentifier(table.Name); err != nil {
		return nil, err
	}
	return pgx.Identifier{table.Schema, table.Name}, nil
}

// withDefaultSchema fills in "public" so that "t" and "public.t" share one lock key.
func withDefaultSchema(table core.TableRef) core.TableRef {
	if table.Schema == "" {
		table.Schema = pgdialect.Postgres.DefaultSchema
	}
	return table
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
