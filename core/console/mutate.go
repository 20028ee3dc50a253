package console

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"envdiff/core/reconcile"
	"envdiff/core/snapshot"

	"github.com/gofiber/fiber/v2"
)

var (
	_ reconcile.Client    = (*Client)(nil)
	_ reconcile.Refresher = (*Client)(nil)
)

func columnsPath(envID, table string) string {
	return consolePath(envID) + "/data/tables/" + url.PathEscape(table) + "/columns"
}

// AddTable creates an empty table.
func (c *Client) AddTable(ctx context.Context, envID, name string) error {
	return c.call(ctx, fiber.MethodPost, consolePath(envID)+"/data/tables", map[string]string{"name": name}, nil)
}

// RemoveTable deletes a table and its data.
func (c *Client) RemoveTable(ctx context.Context, envID, name string) error {
	return c.call(ctx, fiber.MethodDelete, consolePath(envID)+"/data/tables/"+url.PathEscape(name), nil, nil)
}

// AddColumn creates a plain column.
func (c *Client) AddColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	return c.call(ctx, fiber.MethodPost, columnsPath(envID, table), column, nil)
}

// UpdateColumn changes a plain column.
func (c *Client) UpdateColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	return c.call(ctx, fiber.MethodPut, columnsPath(envID, table)+"/"+url.PathEscape(column.Name), column, nil)
}

// RemoveColumn deletes a plain column.
func (c *Client) RemoveColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	return c.call(ctx, fiber.MethodDelete, columnsPath(envID, table)+"/"+url.PathEscape(column.Name), nil, nil)
}

// AddRelation creates a relation column.
func (c *Client) AddRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	return c.call(ctx, fiber.MethodPost, columnsPath(envID, table)+"/relation", relation, nil)
}

// UpdateRelation changes a relation column.
func (c *Client) UpdateRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	path := columnsPath(envID, table) + "/relation/" + url.PathEscape(relation.ColumnName)
	return c.call(ctx, fiber.MethodPut, path, relation, nil)
}

// RemoveRelation deletes a relation column.
func (c *Client) RemoveRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	path := columnsPath(envID, table) + "/relation/" + url.PathEscape(relation.ColumnName)
	return c.call(ctx, fiber.MethodDelete, path, nil, nil)
}

// AddRole creates a security role and returns it with its id.
func (c *Client) AddRole(ctx context.Context, envID, name string) (snapshot.Role, error) {
	var role snapshot.Role
	path := consolePath(envID) + "/security/roles/" + url.PathEscape(name)
	if err := c.call(ctx, fiber.MethodPut, path, map[string]any{}, &role); err != nil {
		return snapshot.Role{}, err
	}
	if role.Rolename == "" {
		role.Rolename = name
	}
	return role, nil
}

// RemoveRole deletes a security role.
func (c *Client) RemoveRole(ctx context.Context, envID, roleID string) error {
	return c.call(ctx, fiber.MethodDelete, consolePath(envID)+"/security/roles/"+roleID, nil, nil)
}

// UpdateRolePermission sets a global permission of a role.
func (c *Client) UpdateRolePermission(ctx context.Context, envID, roleID string, permission snapshot.Permission) error {
	path := consolePath(envID) + "/security/roles/permissions/" + roleID
	return c.call(ctx, fiber.MethodPut, path, permission, nil)
}

type permissionList struct {
	Permissions []snapshot.Permission `json:"permissions"`
}

// UpdateTablePermission sets the access of a role on a table operation.
func (c *Client) UpdateTablePermission(ctx context.Context, envID, tableID, roleID string, permission snapshot.Permission) error {
	path := consolePath(envID) + "/security/data/" + tableID + "/roles/" + roleID
	body := permissionList{Permissions: []snapshot.Permission{{Operation: permission.Operation, Access: permission.Access}}}
	return c.call(ctx, fiber.MethodPut, path, body, nil)
}

// ResetTablePermission drops the override of a role on one table operation.
func (c *Client) ResetTablePermission(ctx context.Context, envID, tableID, roleID, operation string) error {
	path := consolePath(envID) + "/security/data/" + tableID + "/roles/" + roleID + "/" + url.PathEscape(operation)
	return c.call(ctx, fiber.MethodDelete, path, nil, nil)
}

// UpdateEndpointPermission sets the access of a role on a service method.
func (c *Client) UpdateEndpointPermission(ctx context.Context, envID, serviceID, roleID string, permission snapshot.Permission) error {
	path := consolePath(envID) + "/security/localservices/" + serviceID + "/roles/" + roleID
	body := permissionList{Permissions: []snapshot.Permission{{Operation: permission.Operation, Access: permission.Access}}}
	return c.call(ctx, fiber.MethodPut, path, body, nil)
}

// ResetEndpointPermission drops the override of a role on a service method.
func (c *Client) ResetEndpointPermission(ctx context.Context, envID, serviceID, roleID, methodID string) error {
	path := consolePath(envID) + "/security/localservices/" + serviceID + "/roles/" + roleID + "/" + methodID
	return c.call(ctx, fiber.MethodDelete, path, nil, nil)
}

// BulkUpdateRecords applies patch to every record of table matching where.
// It goes through the data API, which authenticates with the environment's
// secret key rather than the console session.
func (c *Client) BulkUpdateRecords(ctx context.Context, envID, table, where string, patch map[string]any) error {
	secret, err := c.Secret(ctx, envID)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/%s/%s/data/bulk/%s", envID, secret, url.PathEscape(table))
	query := url.Values{"where": []string{where}}.Encode()
	err = c.callURL(ctx, fiber.MethodPut, c.serverURL, path, query, patch, nil)

	// Keep the secret key out of logs and reports.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Path = fmt.Sprintf("/%s/***/data/bulk/%s", envID, table)
	}
	return err
}
