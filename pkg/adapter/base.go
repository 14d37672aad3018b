package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// ErrNotConnected is returned by adapter methods called before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, BeginTx, and information_schema based introspection.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// BeginTx starts a transaction on the adapter's connection pool.
func (b *BaseSQLAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// DescribeColumnsCommon provides a shared implementation of DescribeColumns.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) DescribeColumnsCommon(ctx context.Context, q Querier, table core.TableRef, d *dialect.Dialect) ([]core.ColumnDescriptor, error) {
	if q == nil {
		if b.DB == nil {
			return nil, ErrNotConnected
		}
		q = b.DB
	}

	schema := table.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}

	// The placeholders come from the dialect and are safe (? or $N)
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			character_maximum_length,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := q.QueryContext(ctx, query, schema, table.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnDescriptor
	for rows.Next() {
		var col core.ColumnDescriptor
		var length sql.NullInt64
		if err := rows.Scan(&col.Name, &col.DataType, &length, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Length = length.Int64
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	return columns, nil
}

// NullOnlyColumnsCommon counts non-null values of every column in a single scan.
// A column is null-only when it holds no non-null value, which includes every
// column of an empty table.
func (b *BaseSQLAdapter) NullOnlyColumnsCommon(ctx context.Context, q Querier, table core.TableRef, columns []string, d *dialect.Dialect) (map[string]bool, error) {
	result := make(map[string]bool, len(columns))
	if len(columns) == 0 {
		return result, nil
	}
	if q == nil {
		if b.DB == nil {
			return nil, ErrNotConnected
		}
		q = b.DB
	}

	qualified, err := d.QualifiedTable(table)
	if err != nil {
		return nil, err
	}

	counts := make([]string, len(columns))
	for i, col := range columns {
		ident, err := d.Ident(col)
		if err != nil {
			return nil, err
		}
		counts[i] = "COUNT(" + ident + ")"
	}

	query := "SELECT " + strings.Join(counts, ", ") + " FROM " + qualified //nolint:gosec // identifiers are validated and quoted

	values := make([]int64, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := q.QueryRowContext(ctx, query).Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to count non-null values: %w", err)
	}

	for i, col := range columns {
		result[col] = values[i] == 0
	}
	return result, nil
}

// InsertStatement renders a parameterized single-row INSERT.
func InsertStatement(table core.TableRef, columns []string, d *dialect.Dialect) (string, error) {
	qualified, err := d.QualifiedTable(table)
	if err != nil {
		return "", err
	}

	idents := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		ident, err := d.Ident(col)
		if err != nil {
			return "", err
		}
		idents[i] = ident
		params[i] = d.FormatPlaceholder(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualified, strings.Join(idents, ", "), strings.Join(params, ", ")), nil
}

// InsertRecordsCommon writes rows with a prepared INSERT inside one transaction.
func (b *BaseSQLAdapter) InsertRecordsCommon(ctx context.Context, table core.TableRef, columns []core.Column, rows [][]any, d *dialect.Dialect) (int64, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	query, err := InsertStatement(table, ColumnNames(columns), d)
	if err != nil {
		return 0, err
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var n int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	return n, nil
}

// ColumnNames returns the names of columns in order.
func ColumnNames(columns []core.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
