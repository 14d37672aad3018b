// Package config loads schemashift configuration.
//
// Values are layered with koanf. Precedence from highest to lowest:
// command-line flags, SCHEMASHIFT_ environment variables, schemashift.yaml,
// built-in defaults.
package config

import (
	"time"

	"github.com/leapstack-labs/schemashift/pkg/core"
	"github.com/leapstack-labs/schemashift/pkg/dialect"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB). Empty means in-memory.
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Options are appended to the connection string (sslmode, application_name).
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (DuckDB extensions and settings).
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     t.Type,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// EvolveConfig tunes the evolution transaction.
type EvolveConfig struct {
	LockTimeout time.Duration `koanf:"lock_timeout"`
	// StatementTimeout of zero disables the per-statement bound.
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	RetypeNullOnly   bool          `koanf:"retype_null_only"`
}

// JournalConfig locates the local attempt journal.
type JournalConfig struct {
	Path    string `koanf:"path"`
	Enabled bool   `koanf:"enabled"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// Config holds all configuration options.
type Config struct {
	Target       *TargetConfig        `koanf:"target"`
	Evolve       EvolveConfig         `koanf:"evolve"`
	Journal      JournalConfig        `koanf:"journal"`
	Environment  string               `koanf:"environment"`
	Environments map[string]EnvConfig `koanf:"environments"`
	Output       string               `koanf:"output"`
	Verbose      bool                 `koanf:"verbose"`

	// ProjectRoot anchors relative paths. Set by the loader.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; unknown types fall back to "main".
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}
