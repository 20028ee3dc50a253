package reconcile

import (
	"context"
	"fmt"
)

// ClientApplier applies operations through the remote client and, on
// success, records the change in the target snapshot so later phases plan
// against up to date state.
type ClientApplier struct {
	client Client
}

// NewClientApplier creates an applier backed by client.
func NewClientApplier(client Client) *ClientApplier {
	return &ClientApplier{client: client}
}

// Apply performs op against its target environment.
func (a *ClientApplier) Apply(ctx context.Context, op Operation) error {
	env := op.Target

	switch op.Kind {
	case OpAddTable:
		if err := a.client.AddTable(ctx, env.ID, op.Table); err != nil {
			return err
		}
		env.AddTable(op.Table)

	case OpRemoveTable:
		if err := a.client.RemoveTable(ctx, env.ID, op.Table); err != nil {
			return err
		}
		env.RemoveTable(op.Table)

	case OpAddColumn:
		if err := a.client.AddColumn(ctx, env.ID, op.Table, *op.Column); err != nil {
			return err
		}
		env.PutColumn(op.Table, *op.Column)

	case OpUpdateColumn:
		if err := a.client.UpdateColumn(ctx, env.ID, op.Table, *op.Column); err != nil {
			return err
		}
		env.PutColumn(op.Table, *op.Column)

	case OpRemoveColumn:
		if err := a.client.RemoveColumn(ctx, env.ID, op.Table, *op.Column); err != nil {
			return err
		}
		env.RemoveColumn(op.Table, op.Column.Name)

	case OpAddRelation:
		if err := a.client.AddRelation(ctx, env.ID, op.Table, *op.Relation); err != nil {
			return err
		}
		env.PutRelation(op.Table, *op.Relation)

	case OpUpdateRelation:
		if err := a.client.UpdateRelation(ctx, env.ID, op.Table, *op.Relation); err != nil {
			return err
		}
		env.PutRelation(op.Table, *op.Relation)

	case OpRemoveRelation:
		if err := a.client.RemoveRelation(ctx, env.ID, op.Table, *op.Relation); err != nil {
			return err
		}
		env.RemoveRelation(op.Table, op.Relation.ColumnName)

	case OpBackfill:
		return a.client.BulkUpdateRecords(ctx, env.ID, op.Table, op.Where, op.Patch)

	case OpAddRole:
		role, err := a.client.AddRole(ctx, env.ID, op.Role)
		if err != nil {
			return err
		}
		if role.Rolename == "" {
			role.Rolename = op.Role
		}
		env.AddRole(role)

	case OpRemoveRole:
		if err := a.client.RemoveRole(ctx, env.ID, op.RoleID); err != nil {
			return err
		}
		env.RemoveRole(op.RoleID)

	case OpUpdateRolePermission:
		if err := a.client.UpdateRolePermission(ctx, env.ID, op.RoleID, op.Permission); err != nil {
			return err
		}
		env.SetRolePermission(op.Role, op.Permission)

	case OpUpdateTablePermission:
		if err := a.client.UpdateTablePermission(ctx, env.ID, op.TableID, op.RoleID, op.Permission); err != nil {
			return err
		}
		env.SetTablePermission(op.Table, op.Role, op.Permission.Operation, op.Permission.Access)

	case OpResetTablePermission:
		if err := a.client.ResetTablePermission(ctx, env.ID, op.TableID, op.RoleID, op.Permission.Operation); err != nil {
			return err
		}
		env.SetTablePermission(op.Table, op.Role, op.Permission.Operation, op.Permission.Access)

	case OpUpdateEndpointPermission:
		if err := a.client.UpdateEndpointPermission(ctx, env.ID, op.ServiceID, op.RoleID, op.Permission); err != nil {
			return err
		}
		env.SetEndpointPermission(op.Service, op.Method, op.Role, op.Permission.Access)

	case OpResetEndpointPermission:
		if err := a.client.ResetEndpointPermission(ctx, env.ID, op.ServiceID, op.RoleID, op.MethodID); err != nil {
			return err
		}
		env.SetEndpointPermission(op.Service, op.Method, op.Role, op.Permission.Access)

	default:
		return fmt.Errorf("unsupported operation kind %q", op.Kind)
	}

	return nil
}
