package evolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/infer"
)

// Default timeouts applied when Config leaves them unset.
const (
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
)

// Status is the outcome of one evolution attempt.
type Status string

// Attempt outcomes.
const (
	StatusApplied   Status = "applied"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Attempt describes one evolution attempt for the journal.
type Attempt struct {
	Table      core.TableRef
	Dialect    string
	Status     Status
	Statements []Statement
	Records    int
	Inserted   int64
	Err        error
	StartedAt  time.Time
	Duration   time.Duration
}

// Journal records evolution attempts. Implementations must be safe for
// concurrent use.
type Journal interface {
	Record(ctx context.Context, a Attempt) error
}

// Config configures an Evolver.
type Config struct {
	// Adapter is a connected database adapter.
	Adapter adapter.Adapter
	// Catalog restricts the storage types planning may choose. Nil uses the default catalog.
	Catalog *core.TypeCatalog
	// Journal receives every attempt (optional).
	Journal Journal
	// LockTimeout bounds the wait for the per-table lock.
	LockTimeout time.Duration
	// StatementTimeout bounds each statement of the evolution transaction. Negative disables it.
	StatementTimeout time.Duration
	// RetypeNullOnly enables retyping columns that hold only nulls.
	RetypeNullOnly bool
	Logger         *slog.Logger
}

// Result describes a completed evolution.
type Result struct {
	Table core.TableRef `json:"table"`
	// Before is the schema read inside the evolution transaction.
	Before     *core.ColumnSchema `json:"-"`
	Delta      *core.SchemaDelta  `json:"delta"`
	Statements []Statement        `json:"statements"`
	// Inserted counts rows written by Ingest.
	Inserted int64 `json:"inserted"`
}

// Changed reports whether any DDL was issued.
func (r *Result) Changed() bool { return len(r.Statements) > 0 }

// Evolver serializes introspection, planning and DDL per table.
type Evolver struct {
	adapter  adapter.Adapter
	planner  *Planner
	executor *Executor
	journal  Journal
	cfg      Config
	logger   *slog.Logger
}

// New creates an Evolver.
func New(cfg Config) (*Evolver, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("adapter is required")
	}
	d := cfg.Adapter.Dialect()
	if d == nil {
		return nil, fmt.Errorf("adapter %s: %w", cfg.Adapter.DialectName(), errDialect)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.StatementTimeout == 0 {
		cfg.StatementTimeout = DefaultStatementTimeout
	}

	return &Evolver{
		adapter:  cfg.Adapter,
		planner:  NewPlanner(cfg.Catalog, logger),
		executor: NewExecutor(d, cfg.StatementTimeout, logger),
		journal:  cfg.Journal,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

var errDialect = errors.New("adapter has no dialect")

// Planner returns the planner used by the evolver.
func (e *Evolver) Planner() *Planner { return e.planner }

// Executor returns the executor used by the evolver.
func (e *Evolver) Executor() *Executor { return e.executor }

// Describe reads the live schema of table outside any lock.
func (e *Evolver) Describe(ctx context.Context, table core.TableRef) (*core.ColumnSchema, error) {
	return Introspect(ctx, e.adapter, nil, e.adapter.Dialect(), table)
}

// Preview plans records against the live schema and renders the statements
// without executing them. The table is not locked, so the preview may be stale
// by the time it is applied.
func (e *Evolver) Preview(ctx context.Context, table core.TableRef, records []core.Record) (*Result, error) {
	inferred, err := e.planner.InferBatch(records)
	if err != nil {
		return nil, err
	}

	schema, err := e.Describe(ctx, table)
	if err != nil {
		return nil, err
	}

	opts, err := e.planOptions(ctx, nil, table, schema, inferred)
	if err != nil {
		return nil, err
	}

	delta := e.planner.Diff(schema, inferred, opts)
	stmts, err := e.executor.Statements(table, delta)
	if err != nil {
		return nil, err
	}
	return &Result{Table: table, Before: schema, Delta: delta, Statements: stmts}, nil
}

// Evolve brings the schema of table up to date with records. Introspection,
// planning and DDL run in one transaction holding the per-table lock, so two
// callers never plan against the same snapshot. Any failure rolls back.
//
// Evolve does not retry; on conflict callers retry from fresh introspection.
func (e *Evolver) Evolve(ctx context.Context, table core.TableRef, records []core.Record) (*Result, error) {
	start := time.Now()
	res, err := e.evolve(ctx, table, records)
	e.record(ctx, table, records, res, err, start)
	return res, err
}

// Ingest evolves the schema and then writes records. Rows are written only
// after the schema change has committed, so no row lands in a column whose
// type is about to change.
func (e *Evolver) Ingest(ctx context.Context, table core.TableRef, records []core.Record) (*Result, error) {
	start := time.Now()

	res, err := e.evolve(ctx, table, records)
	if err == nil {
		var n int64
		n, err = e.insert(ctx, table, records)
		res.Inserted = n
	}

	e.record(ctx, table, records, res, err, start)
	return res, err
}

func (e *Evolver) evolve(ctx context.Context, table core.TableRef, records []core.Record) (*Result, error) {
	// Classification needs no database; fail before taking any lock.
	inferred, err := e.planner.InferBatch(records)
	if err != nil {
		return nil, err
	}
	if _, err := e.adapter.Dialect().QualifiedTable(table); err != nil {
		return nil, err
	}

	tx, release, err := e.adapter.BeginLocked(ctx, table, e.cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	committed := false
	// The lock is released only after the transaction has ended.
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
		release()
	}()

	if e.cfg.StatementTimeout > 0 {
		if err := e.adapter.SetStatementTimeout(ctx, tx, e.cfg.StatementTimeout); err != nil {
			return nil, err
		}
	}

	schema, err := Introspect(ctx, e.adapter, tx, e.adapter.Dialect(), table)
	if err != nil {
		return nil, err
	}

	opts, err := e.planOptions(ctx, tx, table, schema, inferred)
	if err != nil {
		return nil, err
	}

	delta := e.planner.Diff(schema, inferred, opts)
	res := &Result{Table: table, Before: schema, Delta: delta}

	stmts, err := e.executor.Apply(ctx, tx, table, delta)
	if err != nil {
		var mf *core.MigrationFailedError
		if errors.As(err, &mf) {
			if rbErr := tx.Rollback(); rbErr != nil {
				mf.RollbackErr = rbErr
			}
		}
		return res, err
	}
	res.Statements = stmts

	if err := tx.Commit(); err != nil {
		return res, &core.MigrationFailedError{Table: table, Err: fmt.Errorf("failed to commit: %w", err)}
	}
	committed = true

	if res.Changed() {
		e.logger.Info("schema evolved",
			slog.String("table", table.String()),
			slog.Int("statements", len(stmts)))
	}
	return res, nil
}

// planOptions runs the null-only analysis for existing columns whose family
// differs from the inferred one. Only those columns can be retyped.
func (e *Evolver) planOptions(ctx context.Context, q adapter.Querier, table core.TableRef, schema *core.ColumnSchema, inferred map[string]core.StorageType) (PlanOptions, error) {
	opts := PlanOptions{RetypeNullOnly: e.cfg.RetypeNullOnly}
	if !e.cfg.RetypeNullOnly {
		return opts, nil
	}

	var candidates []string
	for _, col := range schema.Columns() {
		t, ok := inferred[col.Name]
		if ok && !col.Type.IsForeign() && col.Type.Family() != t.Family() {
			candidates = append(candidates, col.Name)
		}
	}
	if len(candidates) == 0 {
		return opts, nil
	}

	nullOnly, err := e.adapter.NullOnlyColumns(ctx, q, table, candidates)
	if err != nil {
		return opts, &core.SchemaIntrospectionError{Table: table, Err: err}
	}
	opts.NullOnly = nullOnly
	return opts, nil
}

// insert coerces every value to the storage type of its column and writes the rows.
func (e *Evolver) insert(ctx context.Context, table core.TableRef, records []core.Record) (int64, error) {
	schema, err := e.Describe(ctx, table)
	if err != nil {
		return 0, err
	}

	fields := make(map[string]bool)
	for _, rec := range records {
		for name := range rec {
			fields[name] = true
		}
	}

	var columns []core.Column
	for _, col := range schema.Columns() {
		if fields[col.Name] {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = infer.Normalize(rec[col.Name]).Coerce(col.Type)
		}
		rows[i] = row
	}

	n, err := e.adapter.InsertRecords(ctx, table, columns, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert records into %s: %w", table, err)
	}
	e.logger.Info("records inserted", slog.String("table", table.String()), slog.Int64("rows", n))
	return n, nil
}

func (e *Evolver) record(ctx context.Context, table core.TableRef, records []core.Record, res *Result, err error, start time.Time) {
	if e.journal == nil {
		return
	}

	a := Attempt{
		Table:     table,
		Dialect:   e.adapter.DialectName(),
		Status:    StatusUnchanged,
		Records:   len(records),
		Err:       err,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if res != nil {
		a.Statements = res.Statements
		a.Inserted = res.Inserted
		if res.Changed() {
			a.Status = StatusApplied
		}
	}
	if err != nil {
		a.Status = StatusFailed
	}

	// A journal write failure never replaces the evolution result.
	if jErr := e.journal.Record(context.WithoutCancel(ctx), a); jErr != nil {
		e.logger.Warn("failed to record evolution attempt", slog.String("table", table.String()), slog.String("error", jErr.Error()))
	}
}
