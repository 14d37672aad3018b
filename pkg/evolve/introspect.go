package evolve

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// Introspect reads the live column layout of table through q, which should be
// the transaction that will apply the resulting delta. A table without columns
// is reported as core.ErrTableNotFound.
func Introspect(ctx context.Context, in adapter.Introspector, q adapter.Querier, d *dialect.Dialect, table core.TableRef) (*core.ColumnSchema, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}

	descriptors, err := in.DescribeColumns(ctx, q, table)
	if err != nil {
		return nil, &core.SchemaIntrospectionError{Table: table, Err: err}
	}
	if len(descriptors) == 0 {
		return nil, &core.SchemaIntrospectionError{Table: table, Err: core.ErrTableNotFound}
	}

	schema := core.NewColumnSchema()
	for _, col := range descriptors {
		if col.Name == "" {
			return nil, &core.SchemaIntrospectionError{Table: table, Err: fmt.Errorf("column at position %d has no name", col.Position)}
		}
		schema.Set(col.Name, d.ParseColumnType(col))
	}
	return schema, nil
}
