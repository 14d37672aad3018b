package evolve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// StatementKind names the kind of change a statement makes.
type StatementKind string

// Statement kinds.
const (
	KindAdd    StatementKind = "add"
	KindWiden  StatementKind = "widen"
	KindRetype StatementKind = "retype"
)

// Statement is one rendered DDL statement and the column change it performs.
type Statement struct {
	Kind   StatementKind    `json:"kind"`
	Column string           `json:"column"`
	From   core.StorageType `json:"from,omitzero"`
	To     core.StorageType `json:"to"`
	SQL    string           `json:"sql"`
}

// TimeoutSetter bounds the statements of a transaction. Adapters implement it.
type TimeoutSetter interface {
	SetStatementTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error
}

// Executor renders schema deltas as DDL and applies them.
type Executor struct {
	dialect          *dialect.Dialect
	logger           *slog.Logger
	statementTimeout time.Duration
}

// NewExecutor creates an executor rendering DDL for d.
func NewExecutor(d *dialect.Dialect, statementTimeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{dialect: d, logger: logger, statementTimeout: statementTimeout}
}

// Statements renders delta in a fixed order: adds, then widens, then retypes,
// each sorted by column name. No-op widens, including widens between two types
// the dialect spells the same way, produce no statement.
func (e *Executor) Statements(table core.TableRef, delta *core.SchemaDelta) ([]Statement, error) {
	if e.dialect == nil {
		return nil, dialect.ErrDialectRequired
	}
	if delta.IsEmpty() {
		return nil, nil
	}

	qualified, err := e.dialect.QualifiedTable(table)
	if err != nil {
		return nil, err
	}

	var stmts []Statement

	for _, name := range delta.AddColumns() {
		col, typ, err := e.column(name, delta.Add[name])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{
			Kind:   KindAdd,
			Column: name,
			To:     delta.Add[name],
			SQL:    fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", qualified, col, typ),
		})
	}

	for _, name := range delta.WidenColumns() {
		change := delta.Widen[name]
		if change.IsNoop() {
			continue
		}
		col, typ, err := e.column(name, change.To)
		if err != nil {
			return nil, err
		}
		if from, err := e.dialect.TypeName(change.From); err == nil && from == typ {
			e.logger.Debug("widen renders to the same type, skipping",
				slog.String("column", name), slog.String("type", typ))
			continue
		}
		stmts = append(stmts, Statement{
			Kind:   KindWiden,
			Column: name,
			From:   change.From,
			To:     change.To,
			SQL:    fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING CAST(%s AS %s)", qualified, col, typ, col, typ),
		})
	}

	for _, name := range delta.RetypeColumns() {
		change := delta.Retype[name]
		col, typ, err := e.column(name, change.To)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Statement{
			Kind:   KindRetype,
			Column: name,
			From:   change.From,
			To:     change.To,
			SQL:    fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING CAST(NULL AS %s)", qualified, col, typ, typ),
		})
	}

	return stmts, nil
}

func (e *Executor) column(name string, t core.StorageType) (ident, typeName string, err error) {
	ident, err = e.dialect.Ident(name)
	if err != nil {
		return "", "", err
	}
	typeName, err = e.dialect.TypeName(t)
	if err != nil {
		return "", "", fmt.Errorf("column %q: %w", name, err)
	}
	return ident, typeName, nil
}

// Apply renders delta and runs it through q, normally the caller's transaction.
// The first failing statement stops execution and is reported as a
// *core.MigrationFailedError; rolling back is left to the caller.
func (e *Executor) Apply(ctx context.Context, q adapter.Querier, table core.TableRef, delta *core.SchemaDelta) ([]Statement, error) {
	stmts, err := e.Statements(table, delta)
	if err != nil {
		return nil, err
	}

	for _, stmt := range stmts {
		e.logger.Debug("executing DDL", slog.String("kind", string(stmt.Kind)), slog.String("sql", stmt.SQL))
		if _, err := q.ExecContext(ctx, stmt.SQL); err != nil {
			return nil, &core.MigrationFailedError{
				Table:     table,
				Column:    stmt.Column,
				Statement: stmt.SQL,
				Err:       err,
			}
		}
	}
	return stmts, nil
}

// Execute applies delta in its own transaction and commits once. Any failure
// rolls the transaction back before the error is returned. An empty delta opens
// no transaction.
func (e *Executor) Execute(ctx context.Context, db adapter.TxBeginner, table core.TableRef, delta *core.SchemaDelta) ([]Statement, error) {
	if delta.IsEmpty() {
		return nil, nil
	}
	// Render before opening the transaction so invalid input never reaches the database.
	if _, err := e.Statements(table, delta); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.MigrationFailedError{Table: table, Err: err}
	}

	if ts, ok := db.(TimeoutSetter); ok && e.statementTimeout > 0 {
		if err := ts.SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
			return nil, rollback(tx, &core.MigrationFailedError{Table: table, Err: err})
		}
	}

	stmts, err := e.Apply(ctx, tx, table, delta)
	if err != nil {
		return nil, rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, &core.MigrationFailedError{Table: table, Err: fmt.Errorf("failed to commit: %w", err)}
	}

	e.logger.Info("schema evolved", slog.String("table", table.String()), slog.Int("statements", len(stmts)))
	return stmts, nil
}

// rollback aborts tx and attaches a rollback failure to a migration error.
func rollback(tx *sql.Tx, cause error) error {
	rbErr := tx.Rollback()
	if rbErr == nil || errors.Is(rbErr, sql.ErrTxDone) {
		return cause
	}
	var mf *core.MigrationFailedError
	if errors.As(cause, &mf) {
		mf.RollbackErr = rbErr
		return mf
	}
	return errors.Join(cause, fmt.Errorf("failed to roll back: %w", rbErr))
}
