package core

// AdapterConfig selects and parameterizes a target database. Fields a
// given adapter does not use are ignored by it.
type AdapterConfig struct {
	Type string // registered adapter name: "duckdb" or "postgres"

	// DuckDB: database file, or ":memory:"/empty for an in-memory database.
	Path string

	// PostgreSQL connection settings. Options become DSN query parameters
	// (sslmode, application_name, ...).
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string

	// Schema qualifies table names given without one.
	Schema string

	// Params carries adapter-specific settings decoded by the adapter itself.
	Params map[string]any
}
