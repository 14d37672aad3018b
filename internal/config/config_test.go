package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/schemashift/pkg/adapter"

	// Register adapters via init()
	_ "github.com/leapstack-labs/schemashift/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/schemashift/pkg/adapters/postgres"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// testFlags mirrors the persistent flags of the root command.
func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("target", "", "")
	fs.String("path", "", "")
	fs.String("database", "", "")
	fs.String("schema", "", "")
	fs.Duration("lock-timeout", 0, "")
	fs.Duration("statement-timeout", 0, "")
	fs.String("journal", "", "")
	fs.Bool("no-journal", false, "")
	fs.String("env", "", "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Empty(t, cfg.Target.Path)
	assert.Equal(t, 5*time.Second, cfg.Evolve.LockTimeout)
	assert.Equal(t, 30*time.Second, cfg.Evolve.StatementTimeout)
	assert.True(t, cfg.Evolve.RetypeNullOnly)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, filepath.Join(dir, DefaultJournalPath), cfg.Journal.Path)
	assert.Equal(t, OutputAuto, cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.File)
	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoad_FileSearchedUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
target:
  type: postgres
  host: db.internal
  database: market
  user: loader
  password: ${SCHEMASHIFT_TEST_PW}
  options:
    sslmode: require
evolve:
  lock_timeout: 2s
  statement_timeout: 1m
  retype_null_only: false
journal:
  path: var/journal.db
output: json
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)
	t.Setenv("SCHEMASHIFT_TEST_PW", "s3cret")

	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ConfigFileName), cfg.File)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, "require", cfg.Target.Options["sslmode"])
	assert.Equal(t, 2*time.Second, cfg.Evolve.LockTimeout)
	assert.Equal(t, time.Minute, cfg.Evolve.StatementTimeout)
	assert.False(t, cfg.Evolve.RetypeNullOnly)
	assert.Equal(t, filepath.Join(root, "var", "journal.db"), cfg.Journal.Path)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
target:
  type: duckdb
  path: file.duckdb
  schema: from_file
output: text
`)
	t.Chdir(dir)
	t.Setenv("SCHEMASHIFT_TARGET__SCHEMA", "from_env")
	t.Setenv("SCHEMASHIFT_EVOLVE__LOCK_TIMEOUT", "9s")
	t.Setenv("SCHEMASHIFT_OUTPUT", "json")

	t.Run("env over file", func(t *testing.T) {
		cfg, err := Load("", "", testFlags())
		require.NoError(t, err)
		assert.Equal(t, "from_env", cfg.Target.Schema)
		assert.Equal(t, 9*time.Second, cfg.Evolve.LockTimeout)
		assert.Equal(t, OutputJSON, cfg.Output)
		assert.Equal(t, filepath.Join(dir, "file.duckdb"), cfg.Target.Path)
	})

	t.Run("flags over env", func(t *testing.T) {
		fs := testFlags()
		require.NoError(t, fs.Parse([]string{
			"--schema", "from_flag",
			"--lock-timeout", "250ms",
			"-o", "text",
			"--no-journal",
			"--verbose",
		}))

		cfg, err := Load("", "", fs)
		require.NoError(t, err)
		assert.Equal(t, "from_flag", cfg.Target.Schema)
		assert.Equal(t, 250*time.Millisecond, cfg.Evolve.LockTimeout)
		assert.Equal(t, OutputText, cfg.Output)
		assert.False(t, cfg.Journal.Enabled)
		assert.True(t, cfg.Verbose)
	})
}

func TestLoad_PathFlagRelativeToWorkingDir(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "target:\n  type: duckdb\n")
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--path", "local.duckdb"}))

	cfg, err := Load("", "", fs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "local.duckdb"), cfg.Target.Path)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  type: duckdb\n  path: ':memory:'\n"), 0o600))
	t.Chdir(t.TempDir())

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, ":memory:", cfg.Target.Path)
}

func TestLoad_Environments(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
target:
  type: postgres
  host: localhost
  database: dev
  options:
    sslmode: disable
environments:
  prod:
    target:
      host: prod.internal
      database: market
      options:
        application_name: loader
`)
	t.Chdir(dir)

	cfg, err := Load("", "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "prod.internal", cfg.Target.Host)
	assert.Equal(t, "market", cfg.Target.Database)
	assert.Equal(t, map[string]string{"sslmode": "disable", "application_name": "loader"}, cfg.Target.Options)

	_, err = Load("", "staging", nil)
	assert.ErrorContains(t, err, `unknown environment "staging"`)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		errSubstr string
	}{
		{name: "unknown adapter", body: "target:\n  type: mysql\n", errSubstr: "unknown adapter type"},
		{name: "bad schema", body: "target:\n  type: duckdb\n  schema: 'bad-name'\n", errSubstr: "target.schema"},
		{name: "zero lock timeout", body: "evolve:\n  lock_timeout: 0s\n", errSubstr: "lock_timeout must be positive"},
		{name: "negative statement timeout", body: "evolve:\n  statement_timeout: -1s\n", errSubstr: "statement_timeout must not be negative"},
		{name: "bad output", body: "output: markdown\n", errSubstr: "unknown output format"},
		{name: "malformed yaml", body: "target: [\n", errSubstr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			t.Chdir(dir)

			_, err := Load("", "", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestTargetConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  *TargetConfig
		wantErr string
	}{
		{name: "nil", target: nil, wantErr: "target type is required"},
		{name: "empty type", target: &TargetConfig{}, wantErr: "target type is required"},
		{name: "duckdb", target: &TargetConfig{Type: "duckdb"}},
		{name: "uppercase", target: &TargetConfig{Type: "DuckDB"}},
		{name: "postgres", target: &TargetConfig{Type: "postgres", Schema: "market"}},
		{name: "unknown", target: &TargetConfig{Type: "snowflake"}, wantErr: "unknown adapter type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var unknown *adapter.UnknownAdapterError
	assert.ErrorAs(t, (&TargetConfig{Type: "oracle"}).Validate(), &unknown)
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{Type: "postgres", Host: "a", Port: 5432, Options: map[string]string{"x": "1"}, Params: map[string]any{"p": 1}}
	override := &TargetConfig{Host: "b", Options: map[string]string{"y": "2"}, Params: map[string]any{"p": 2}}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "postgres", merged.Type)
	assert.Equal(t, "b", merged.Host)
	assert.Equal(t, 5432, merged.Port)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, merged.Options)
	assert.Equal(t, map[string]any{"p": 2}, merged.Params)
	// base is untouched
	assert.Equal(t, map[string]string{"x": "1"}, base.Options)

	assert.Same(t, base, MergeTargetConfig(base, nil))
	assert.Same(t, override, MergeTargetConfig(nil, override))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SCHEMASHIFT_TEST_USER", "loader")
	assert.Equal(t, "loader@db", expandEnvVars("${SCHEMASHIFT_TEST_USER}@db"))
	assert.Equal(t, "${SCHEMASHIFT_TEST_UNSET}", expandEnvVars("${SCHEMASHIFT_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestAdapterConfig(t *testing.T) {
	target := &TargetConfig{Type: "postgres", Host: "h", Port: 1, Database: "d", User: "u", Password: "p", Schema: "s"}
	cfg := target.AdapterConfig()
	assert.Equal(t, "u", cfg.Username)
	assert.Equal(t, "s", cfg.Schema)
	assert.Equal(t, "postgres", cfg.Type)
}
