// Package adapter provides the database adapter contract used by schema evolution.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions. *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Introspector reads the declared columns of a table.
type Introspector interface {
	// DescribeColumns returns the table's columns ordered by ordinal position.
	// A missing table yields an empty slice and no error.
	DescribeColumns(ctx context.Context, q Querier, table core.TableRef) ([]core.ColumnDescriptor, error)
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	TxBeginner
	Introspector

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// DialectName returns the registered name of the adapter's dialect.
	DialectName() string

	// Dialect returns the SQL dialect configuration for this adapter.
	Dialect() *dialect.Dialect

	// BeginLocked starts a transaction that holds the per-table schema lock, so
	// everything read through tx reflects every earlier schema change to table.
	// Contention beyond timeout returns *core.ConcurrentSchemaConflictError.
	// release must be called once tx has been committed or rolled back.
	BeginLocked(ctx context.Context, table core.TableRef, timeout time.Duration) (tx *sql.Tx, release func(), err error)

	// SetStatementTimeout bounds every statement issued on tx. Zero disables the bound.
	SetStatementTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error

	// NullOnlyColumns reports which of the given columns hold no non-null value.
	NullOnlyColumns(ctx context.Context, q Querier, table core.TableRef, columns []string) (map[string]bool, error)

	// InsertRecords writes rows whose values are ordered like columns and
	// already coerced to each column's storage type.
	InsertRecords(ctx context.Context, table core.TableRef, columns []core.Column, rows [][]any) (int64, error)
}
