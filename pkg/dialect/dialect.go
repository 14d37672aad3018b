// Package dialect provides SQL dialect configuration for schema evolution.
//
// A Dialect knows how to quote identifiers, format query parameters, render
// catalog storage types as SQL type names, and read declared column types back
// into the catalog. Concrete dialects are registered from
// pkg/adapters/*/dialect packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/schemashift/pkg/core"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	// typeNames renders catalog types; declared maps lowercased information_schema
	// data types back to catalog types.
	typeNames map[core.StorageType]string
	declared  map[string]core.StorageType

	// varcharNames are the data_type spellings of length-limited character types.
	varcharNames map[string]struct{}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., " -> "")
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// Ident validates name against the identifier allow-list and quotes it.
func (d *Dialect) Ident(name string) (string, error) {
	if err := core.ValidateIdentifier(name); err != nil {
		return "", err
	}
	return d.QuoteIdentifier(name), nil
}

// QualifiedTable validates and quotes both parts of a table reference.
func (d *Dialect) QualifiedTable(t core.TableRef) (string, error) {
	name, err := d.Ident(t.Name)
	if err != nil {
		return "", err
	}
	schema := t.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}
	if schema == "" {
		return name, nil
	}
	qs, err := d.Ident(schema)
	if err != nil {
		return "", err
	}
	return qs + "." + name, nil
}

// TypeName renders a catalog type. Foreign and unknown types are rejected so DDL
// text never carries a type name taken from input.
func (d *Dialect) TypeName(t core.StorageType) (string, error) {
	name, ok := d.typeNames[t]
	if !ok {
		return "", fmt.Errorf("%s dialect has no type for %q", d.Name, t.Name())
	}
	return name, nil
}

// ParseColumnType maps a declared column back into the catalog. Length-limited
// character columns stay in the text family whatever their length; other
// declared types the catalog does not model come back as core.Foreign.
func (d *Dialect) ParseColumnType(col core.ColumnDescriptor) core.StorageType {
	dataType := strings.ToLower(strings.Join(strings.Fields(col.DataType), " "))
	base := dataType
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	if _, ok := d.varcharNames[base]; ok {
		return core.Varchar(col.Length)
	}

	if t, ok := d.declared[base]; ok {
		return t
	}
	return core.Foreign(dataType)
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
			typeNames:    make(map[core.StorageType]string),
			declared:     make(map[string]core.StorageType),
			varcharNames: make(map[string]struct{}),
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:    quote,
		QuoteEnd: quoteEnd,
		Escape:   escape,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// Type maps a catalog type to its SQL spelling. The spelling is also registered
// as a declared name unless it carries a length or precision.
func (b *Builder) Type(t core.StorageType, sqlName string) *Builder {
	b.dialect.typeNames[t] = sqlName
	if !strings.Contains(sqlName, "(") {
		if _, taken := b.dialect.declared[strings.ToLower(sqlName)]; !taken {
			b.dialect.declared[strings.ToLower(sqlName)] = t
		}
	}
	return b
}

// Declared maps additional information_schema spellings onto a catalog type.
func (b *Builder) Declared(t core.StorageType, names ...string) *Builder {
	for _, n := range names {
		b.dialect.declared[strings.ToLower(n)] = t
	}
	return b
}

// Varchar registers the spellings of length-limited character types. A declared
// length of 255 reads back as varchar(255), no length as text.
func (b *Builder) Varchar(names ...string) *Builder {
	for _, n := range names {
		b.dialect.varcharNames[strings.ToLower(n)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
