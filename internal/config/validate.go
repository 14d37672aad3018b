package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemashift/pkg/adapter"
	"github.com/leapstack-labs/schemashift/pkg/core"
)

// Validate checks the target against the adapter registry, then the remaining options.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if c.Evolve.LockTimeout <= 0 {
		return fmt.Errorf("evolve.lock_timeout must be positive, got %s", c.Evolve.LockTimeout)
	}
	if c.Evolve.StatementTimeout < 0 {
		return fmt.Errorf("evolve.statement_timeout must not be negative, got %s", c.Evolve.StatementTimeout)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.path is required when the journal is enabled")
	}
	switch c.Output {
	case OutputAuto, OutputText, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q (want auto, text or json)", c.Output)
	}
	return nil
}

// Validate checks the target type and schema name.
func (t *TargetConfig) Validate() error {
	if t == nil || t.Type == "" {
		return errors.New("target type is required")
	}
	t.Type = strings.ToLower(t.Type)
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if t.Schema != "" {
		if err := core.ValidateIdentifier(t.Schema); err != nil {
			return fmt.Errorf("target.schema: %w", err)
		}
	}
	return nil
}
