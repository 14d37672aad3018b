// Package postgres evolves and loads PostgreSQL tables through pgx.
// Importing it, usually blank, registers the "postgres" target type.
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	pgdialect "github.com/leapstack-labs/schemashift/pkg/adapters/postgres/dialect"
)

func init() {
	adapter.Register(pgdialect.Postgres.Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
