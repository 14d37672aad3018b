package core

// PlaceholderStyle is how a dialect spells bound parameters in introspection
// and insert statements.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ?, ?, ? (DuckDB)
	PlaceholderDollar                           // $1, $2, $3 (PostgreSQL)
)

// IdentifierConfig holds the quote characters a dialect wraps validated
// identifiers in, and how a literal quote inside a name is escaped.
type IdentifierConfig struct {
	Quote    string
	QuoteEnd string
	Escape   string
}
