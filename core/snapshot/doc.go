// Package snapshot holds the normalized in-memory capture of one environment.
//
// A Snapshot carries the environment's data tables (columns, relations and
// table-level role permissions), its security roles with their global
// permissions, and its API services with per-method role access.
//
// # Identity
//
// Entities are always identified by name: table name, column name, role
// name, service and method name. The opaque ids (tableId, roleId, service
// and method ids) differ per environment and are only used to address the
// environment they were fetched from.
//
// # Mutation
//
// Snapshots are mutated in place while a reconciliation runs. All mutation
// helpers lock the snapshot, so a target environment has a single writer at
// any instant even when operations for it run on several goroutines.
//
// # Dumps
//
// Snapshots can be written to and read from JSON or YAML dumps. Dumps loaded
// from disk are read-only: they take part in comparisons but are never
// reconciled.
package snapshot
