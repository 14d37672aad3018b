// Package dialect defines how schemashift spells catalog types for PostgreSQL
// and reads information_schema data types back. It imports no driver.
package dialect

import (
	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect. Varchar columns read back as
// varchar(255) only when character_maximum_length is exactly 255.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("public").
	PlaceholderStyle(core.PlaceholderDollar).
	Type(core.Smallint, "smallint").
	Type(core.Integer, "integer").
	Type(core.Bigint, "bigint").
	Type(core.Real, "real").
	Type(core.DoublePrecision, "double precision").
	Type(core.Numeric, "numeric").
	Type(core.Varchar255, "varchar(255)").
	Type(core.Text, "text").
	Type(core.Boolean, "boolean").
	Declared(core.Numeric, "decimal").
	Varchar("character varying", "varchar").
	Build()
