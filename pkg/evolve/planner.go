// Package evolve plans and applies additive schema changes so that a table can
// accept incoming records.
//
// The flow for every batch is: introspect the live table, infer a storage type
// per field, diff the two into a core.SchemaDelta, render the delta as DDL, and
// run it inside one transaction that holds a per-table lock. Columns are only
// ever added or widened; nothing is dropped or narrowed.
package evolve

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/infer"
)

// PlanOptions adjusts how an inferred layout is diffed against the table.
type PlanOptions struct {
	// NullOnly marks existing columns that hold no non-null value.
	NullOnly map[string]bool
	// RetypeNullOnly switches a null-only column to the inferred type when the
	// families differ, instead of widening it.
	RetypeNullOnly bool
}

// Planner infers storage types for records and derives schema deltas.
// Planning performs no I/O.
type Planner struct {
	classifier *infer.Classifier
	resolver   *infer.Resolver
	logger     *slog.Logger
}

// NewPlanner creates a planner over catalog. A nil catalog uses the default one.
func NewPlanner(catalog *core.TypeCatalog, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{
		classifier: infer.NewClassifier(catalog),
		resolver:   infer.NewResolver(catalog),
		logger:     logger,
	}
}

// Infer classifies every non-null field of record. Field names are validated
// up front so that a bad name fails planning rather than execution.
func (p *Planner) Infer(record core.Record) (map[string]core.StorageType, error) {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)

	types := make(map[string]core.StorageType, len(record))
	for _, name := range names {
		if err := core.ValidateIdentifier(name); err != nil {
			return nil, err
		}

		v := infer.Normalize(record[name])
		if v.IsNull() {
			continue
		}

		t, err := p.classifier.Classify(v)
		if err != nil {
			return nil, &core.UnsupportedTypeError{Field: name, Value: v, Err: err}
		}
		types[name] = t
	}
	return types, nil
}

// InferBatch folds the inferred types of all records with the resolver join.
// A field that is null in every record is absent from the result.
func (p *Planner) InferBatch(records []core.Record) (map[string]core.StorageType, error) {
	seen := make(map[string][]core.StorageType)
	for _, rec := range records {
		types, err := p.Infer(rec)
		if err != nil {
			return nil, err
		}
		for name, t := range types {
			seen[name] = append(seen[name], t)
		}
	}

	folded := make(map[string]core.StorageType, len(seen))
	for name, types := range seen {
		folded[name] = p.resolver.JoinAll(types...)
	}
	return folded, nil
}

// Plan computes the delta that lets schema accept record.
func (p *Planner) Plan(schema *core.ColumnSchema, record core.Record, opts PlanOptions) (*core.SchemaDelta, error) {
	return p.PlanBatch(schema, []core.Record{record}, opts)
}

// PlanBatch computes a single delta that lets schema accept every record.
func (p *Planner) PlanBatch(schema *core.ColumnSchema, records []core.Record, opts PlanOptions) (*core.SchemaDelta, error) {
	inferred, err := p.InferBatch(records)
	if err != nil {
		return nil, err
	}
	return p.Diff(schema, inferred, opts), nil
}

// Diff compares inferred field types against the live schema.
//
// New fields are added with their inferred type. Existing fields whose type
// differs are widened to the join of both types; the widen is staged even when
// the join equals the existing type, in which case From == To marks a no-op.
// Foreign columns are never changed.
func (p *Planner) Diff(schema *core.ColumnSchema, inferred map[string]core.StorageType, opts PlanOptions) *core.SchemaDelta {
	delta := core.NewSchemaDelta()

	for name, t := range inferred {
		existing, ok := schema.Get(name)
		switch {
		case !ok:
			delta.Add[name] = t
		case existing == t:
		case existing.IsForeign():
			p.logger.Warn("column has a type outside the catalog, leaving it unchanged",
				slog.String("column", name),
				slog.String("declared", existing.Name()),
				slog.String("inferred", t.Name()))
		case opts.RetypeNullOnly && opts.NullOnly[name] && existing.Family() != t.Family():
			delta.Retype[name] = core.TypeChange{From: existing, To: t}
		default:
			delta.Widen[name] = core.TypeChange{From: existing, To: p.resolver.Join(existing, t)}
		}
	}

	p.logger.Debug("planned schema delta",
		slog.Int("add", len(delta.Add)),
		slog.Int("widen", len(delta.Widen)),
		slog.Int("retype", len(delta.Retype)))
	return delta
}
