// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies.
package dialect

import (
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration.
//
// DuckDB has no arbitrary-precision float and does not enforce VARCHAR
// lengths, so numeric renders as DOUBLE and both text types render as VARCHAR.
// Widening between two types with the same rendering is a no-op.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(core.PlaceholderQuestion).
	Type(core.Smallint, "SMALLINT").
	Type(core.Integer, "INTEGER").
	Type(core.Bigint, "BIGINT").
	Type(core.Real, "REAL").
	Type(core.DoublePrecision, "DOUBLE").
	Type(core.Numeric, "DOUBLE").
	Type(core.Text, "VARCHAR").
	Type(core.Varchar255, "VARCHAR").
	Type(core.Boolean, "BOOLEAN").
	Declared(core.Smallint, "int2", "short").
	Declared(core.Integer, "int", "int4", "signed").
	Declared(core.Bigint, "int8", "long").
	Declared(core.Real, "float", "float4").
	Declared(core.DoublePrecision, "float8").
	Declared(core.Numeric, "decimal", "numeric").
	Declared(core.Boolean, "bool", "logical").
	Varchar("varchar", "string", "text").
	Build()
