package commands

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewPlanCommand(), use: "plan <table> <records-file>", flags: []string{"format"}},
		{cmd: NewApplyCommand(), use: "apply <table> <records-file>", flags: []string{"format", "no-insert"}},
		{cmd: NewDescribeCommand(), use: "describe <table>..."},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"table", "status", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Example)
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewCommandContext_RequiresConfig(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err := NewCommandContext(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not loaded")
}

func TestReadRecords_Empty(t *testing.T) {
	path := t.TempDir() + "/empty.json"
	require.NoError(t, writeFile(path, "[]"))

	_, err := readRecords(path, "")
	assert.ErrorContains(t, err, "no records")

	_, err = readRecords(path, "toml")
	assert.ErrorContains(t, err, "unknown records format")
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}
