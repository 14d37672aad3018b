package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "empty map returns empty struct",
			input: map[string]any{},
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"json", "icu"},
			},
			want: &Params{
				Extensions: []string{"json", "icu"},
			},
		},
		{
			name: "settings with typed yaml values",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit":             "4GB",
					"threads":                  4,
					"preserve_insertion_order": false,
				},
			},
			want: &Params{
				Settings: map[string]string{
					"memory_limit":             "4GB",
					"threads":                  "4",
					"preserve_insertion_order": "0",
				},
			},
		},
		{
			name: "unknown key rejected",
			input: map[string]any{
				"secrets": []any{},
			},
			wantErr: true,
		},
		{
			name: "wrong shape rejected",
			input: map[string]any{
				"settings": "threads=2",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingStatement(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"plain", "threads", "2", "SET threads = '2'", false},
		{"quote escaped", "default_collation", "it's", "SET default_collation = 'it''s'", false},
		{"invalid name", "threads; DROP TABLE t", "2", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settingStatement(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
