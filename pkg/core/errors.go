package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrValueTooLarge            = errors.New("value too large")
	ErrSchemaIntrospection      = errors.New("schema introspection failed")
	ErrUnsupportedType          = errors.New("unsupported type")
	ErrMigrationFailed          = errors.New("migration failed")
	ErrConcurrentSchemaConflict = errors.New("concurrent schema conflict")
	ErrInvalidIdentifier        = errors.New("invalid identifier")
	ErrTableNotFound            = errors.New("table not found")
	ErrNullValue                = errors.New("null value cannot be classified")
)

// ValueTooLargeError is returned when an integer exceeds the largest integer type.
type ValueTooLargeError struct {
	Value   string
	Largest StorageType
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("value %s exceeds the range of %s", e.Value, e.Largest)
}

// Is matches ErrValueTooLarge.
func (e *ValueTooLargeError) Is(target error) bool { return target == ErrValueTooLarge }

// SchemaIntrospectionError is returned when a table's columns cannot be read.
type SchemaIntrospectionError struct {
	Table TableRef
	Err   error
}

func (e *SchemaIntrospectionError) Error() string {
	return fmt.Sprintf("failed to introspect table %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SchemaIntrospectionError) Unwrap() error { return e.Err }

// Is matches ErrSchemaIntrospection.
func (e *SchemaIntrospectionError) Is(target error) bool { return target == ErrSchemaIntrospection }

// UnsupportedTypeError is returned when a record field cannot be classified.
// It aborts planning for the whole record.
type UnsupportedTypeError struct {
	Field string
	Value ScalarValue
	Err   error
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("field %q: cannot classify %s value %q: %v", e.Field, e.Value.Kind(), e.Value.String(), e.Err)
}

// Unwrap returns the classification failure.
func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

// Is matches ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// MigrationFailedError is returned when a DDL statement fails. The transaction
// has already been rolled back when this error is returned.
type MigrationFailedError struct {
	Table     TableRef
	Column    string
	Statement string
	Err       error
	// RollbackErr is set when the rollback itself failed.
	RollbackErr error
}

func (e *MigrationFailedError) Error() string {
	msg := fmt.Sprintf("migration of %s failed", e.Table)
	if e.Column != "" {
		msg += fmt.Sprintf(" at column %q", e.Column)
	}
	if e.Statement != "" {
		msg += fmt.Sprintf(" (statement: %s)", e.Statement)
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback also failed: %v)", e.RollbackErr)
	}
	return msg
}

// Unwrap returns the statement error.
func (e *MigrationFailedError) Unwrap() error { return e.Err }

// Is matches ErrMigrationFailed.
func (e *MigrationFailedError) Is(target error) bool { return target == ErrMigrationFailed }

// ConcurrentSchemaConflictError is returned when the per-table schema lock could
// not be acquired in time.
type ConcurrentSchemaConflictError struct {
	Table  TableRef
	Waited time.Duration
	Err    error
}

func (e *ConcurrentSchemaConflictError) Error() string {
	msg := fmt.Sprintf("schema of %s is being changed by another caller (waited %s)", e.Table, e.Waited)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConcurrentSchemaConflictError) Unwrap() error { return e.Err }

// Is matches ErrConcurrentSchemaConflict.
func (e *ConcurrentSchemaConflictError) Is(target error) bool {
	return target == ErrConcurrentSchemaConflict
}

// InvalidIdentifierError is returned for names outside the identifier allow-list.
type InvalidIdentifierError struct {
	Identifier string
	Reason     string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Reason)
}

// Is matches ErrInvalidIdentifier.
func (e *InvalidIdentifierError) Is(target error) bool { return target == ErrInvalidIdentifier }
