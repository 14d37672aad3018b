// Package duckdb evolves and loads tables in an embedded DuckDB database.
// Importing it, usually blank, registers the "duckdb" target type.
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	ddialect "github.com/leapstack-labs/schemashift/pkg/adapters/duckdb/dialect"
)

func init() {
	adapter.Register(ddialect.DuckDB.Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
