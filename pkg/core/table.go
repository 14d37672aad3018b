package core

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the longest identifier accepted (PostgreSQL NAMEDATALEN - 1).
const MaxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier checks a table, schema, or column name against the allow-list.
// Identifiers cannot be bound as parameters, so only names passing this check
// are ever embedded in DDL text.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return &InvalidIdentifierError{Identifier: name, Reason: "empty"}
	case len(name) > MaxIdentifierLength:
		return &InvalidIdentifierError{Identifier: name, Reason: fmt.Sprintf("longer than %d bytes", MaxIdentifierLength)}
	case !identifierPattern.MatchString(name):
		return &InvalidIdentifierError{Identifier: name, Reason: "must match [A-Za-z_][A-Za-z0-9_]*"}
	}
	return nil
}

// TableRef identifies a table within a schema.
type TableRef struct {
	Schema string
	Name   string
}

// ParseTableRef parses "schema.table" or "table", falling back to defaultSchema.
// Both parts are validated.
func ParseTableRef(s, defaultSchema string) (TableRef, error) {
	ref := TableRef{Schema: defaultSchema, Name: s}
	if parts := strings.Split(s, "."); len(parts) == 2 {
		ref = TableRef{Schema: parts[0], Name: parts[1]}
	} else if len(parts) > 2 {
		return TableRef{}, &InvalidIdentifierError{Identifier: s, Reason: "too many dots"}
	}

	if err := ValidateIdentifier(ref.Name); err != nil {
		return TableRef{}, err
	}
	if ref.Schema != "" {
		if err := ValidateIdentifier(ref.Schema); err != nil {
			return TableRef{}, err
		}
	}
	return ref, nil
}

// String returns "schema.name", or "name" when no schema is set.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// MarshalText implements encoding.TextMarshaler.
func (t TableRef) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
