package config

import "github.com/leapstack-labs/schemashift/pkg/evolve"

// Default configuration values.
const (
	DefaultTargetType   = "duckdb"
	DefaultJournalPath  = ".schemashift/journal.db"
	DefaultOutput       = OutputAuto
	DefaultPostgresPort = 5432
)

// Output modes.
const (
	OutputAuto = "auto" // text on a terminal, json otherwise
	OutputText = "text"
	OutputJSON = "json"
)

func defaults() map[string]any {
	return map[string]any{
		"target.type":              DefaultTargetType,
		"evolve.lock_timeout":      evolve.DefaultLockTimeout.String(),
		"evolve.statement_timeout": evolve.DefaultStatementTimeout.String(),
		"evolve.retype_null_only":  true,
		"journal.path":             DefaultJournalPath,
		"journal.enabled":          true,
		"output":                   DefaultOutput,
		"verbose":                  false,
	}
}

// ApplyTargetDefaults fills in values that depend on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = DefaultPostgresPort
	}
}
