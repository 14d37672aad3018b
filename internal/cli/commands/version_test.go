package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/schemashift/pkg/adapters/duckdb"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		want    []string
		notWant []string
	}{
		{
			name:    "release without build metadata",
			info:    BuildInfo{Version: "0.1.0", Commit: "unknown", Date: "unknown"},
			want:    []string{"schemashift v0.1.0", "Adapters: ", "duckdb"},
			notWant: []string{"Commit:"},
		},
		{
			name: "stamped build",
			info: BuildInfo{Version: "1.2.3", Commit: "9f3c2e1", Date: "2026-10-01"},
			want: []string{"schemashift v1.2.3", "Commit: 9f3c2e1 (built 2026-10-01)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.info)
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetArgs(nil)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, buf.String(), notWant)
			}
		})
	}
}

func TestNewVersionCommand_RejectsArgs(t *testing.T) {
	cmd := NewVersionCommand(BuildInfo{Version: "dev"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
