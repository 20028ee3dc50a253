package reconcile

import (
	"context"

	"envdiff/core/snapshot"
)

// Client is the remote management API used to mutate environments.
// Every call addresses one environment by its opaque id and returns nil or
// an error carrying the remote failure detail.
type Client interface {
	// AddTable creates an empty table.
	AddTable(ctx context.Context, envID, name string) error

	// RemoveTable deletes a table and its data.
	RemoveTable(ctx context.Context, envID, name string) error

	// AddColumn creates a plain column on a table.
	AddColumn(ctx context.Context, envID, table string, column snapshot.Column) error

	// UpdateColumn changes a plain column. column.ColumnID is the target's id.
	UpdateColumn(ctx context.Context, envID, table string, column snapshot.Column) error

	// RemoveColumn deletes a plain column.
	RemoveColumn(ctx context.Context, envID, table string, column snapshot.Column) error

	// AddRelation creates a relation column on a table.
	AddRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error

	// UpdateRelation changes a relation column.
	UpdateRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error

	// RemoveRelation deletes a relation column.
	RemoveRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error

	// AddRole creates a security role and returns it with its new id.
	AddRole(ctx context.Context, envID, name string) (snapshot.Role, error)

	// RemoveRole deletes a security role.
	RemoveRole(ctx context.Context, envID, roleID string) error

	// UpdateRolePermission sets a global permission of a role.
	UpdateRolePermission(ctx context.Context, envID, roleID string, permission snapshot.Permission) error

	// UpdateTablePermission sets the permission of a role on a table operation.
	UpdateTablePermission(ctx context.Context, envID, tableID, roleID string, permission snapshot.Permission) error

	// ResetTablePermission clears the override of a role on a table operation.
	ResetTablePermission(ctx context.Context, envID, tableID, roleID, operation string) error

	// UpdateEndpointPermission sets the access of a role on a service method.
	// permission.Operation is the target's method id.
	UpdateEndpointPermission(ctx context.Context, envID, serviceID, roleID string, permission snapshot.Permission) error

	// ResetEndpointPermission clears the override of a role on a service method.
	ResetEndpointPermission(ctx context.Context, envID, serviceID, roleID, methodID string) error

	// BulkUpdateRecords applies patch to every record of table matching where.
	BulkUpdateRecords(ctx context.Context, envID, table, where string, patch map[string]any) error
}

// Refresher re-fetches parts of an environment between sync phases.
type Refresher interface {
	// RefreshTables replaces the table list (ids, columns and relations).
	RefreshTables(ctx context.Context, env *snapshot.Snapshot) error

	// RefreshRoles replaces the role list with fresh ids and permissions.
	RefreshRoles(ctx context.Context, env *snapshot.Snapshot) error

	// RefreshTablePermissions reloads table permissions for every role.
	RefreshTablePermissions(ctx context.Context, env *snapshot.Snapshot) error
}

// Confirmer answers yes/no questions before destructive operations run.
// Confirm blocks until an answer is available.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Applier applies a single operation.
type Applier interface {
	Apply(ctx context.Context, op Operation) error
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, op Operation) error

// Apply calls f(ctx, op).
func (f ApplierFunc) Apply(ctx context.Context, op Operation) error {
	return f(ctx, op)
}
