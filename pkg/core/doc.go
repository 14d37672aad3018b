// Package core defines the shared language of schemashift.
//
// This package contains:
//   - The scalar value variant produced by normalization (ScalarValue)
//   - The storage type catalog and its families (StorageType, TypeCatalog)
//   - Schema snapshots and deltas (ColumnSchema, SchemaDelta)
//   - Table references and identifier validation (TableRef)
//   - The error taxonomy shared by planning and execution
//
// core imports only the standard library; every other package builds on it.
package core
