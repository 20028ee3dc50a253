package mocks

import (
	"context"

	"envdiff/core/snapshot"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of reconcile.Client
type Client struct {
	mock.Mock
}

func (m *Client) AddTable(ctx context.Context, envID, name string) error {
	args := m.Called(ctx, envID, name)
	return args.Error(0)
}

func (m *Client) RemoveTable(ctx context.Context, envID, name string) error {
	args := m.Called(ctx, envID, name)
	return args.Error(0)
}

func (m *Client) AddColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	args := m.Called(ctx, envID, table, column)
	return args.Error(0)
}

func (m *Client) UpdateColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	args := m.Called(ctx, envID, table, column)
	return args.Error(0)
}

func (m *Client) RemoveColumn(ctx context.Context, envID, table string, column snapshot.Column) error {
	args := m.Called(ctx, envID, table, column)
	return args.Error(0)
}

func (m *Client) AddRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	args := m.Called(ctx, envID, table, relation)
	return args.Error(0)
}

func (m *Client) UpdateRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	args := m.Called(ctx, envID, table, relation)
	return args.Error(0)
}

func (m *Client) RemoveRelation(ctx context.Context, envID, table string, relation snapshot.Relation) error {
	args := m.Called(ctx, envID, table, relation)
	return args.Error(0)
}

func (m *Client) AddRole(ctx context.Context, envID, name string) (snapshot.Role, error) {
	args := m.Called(ctx, envID, name)
	if role, ok := args.Get(0).(snapshot.Role); ok {
		return role, args.Error(1)
	}
	return snapshot.Role{}, args.Error(1)
}

func (m *Client) RemoveRole(ctx context.Context, envID, roleID string) error {
	args := m.Called(ctx, envID, roleID)
	return args.Error(0)
}

func (m *Client) UpdateRolePermission(ctx context.Context, envID, roleID string, permission snapshot.Permission) error {
	args := m.Called(ctx, envID, roleID, permission)
	return args.Error(0)
}

func (m *Client) UpdateTablePermission(ctx context.Context, envID, tableID, roleID string, permission snapshot.Permission) error {
	args := m.Called(ctx, envID, tableID, roleID, permission)
	return args.Error(0)
}

func (m *Client) ResetTablePermission(ctx context.Context, envID, tableID, roleID, operation string) error {
	args := m.Called(ctx, envID, tableID, roleID, operation)
	return args.Error(0)
}

func (m *Client) UpdateEndpointPermission(ctx context.Context, envID, serviceID, roleID string, permission snapshot.Permission) error {
	args := m.Called(ctx, envID, serviceID, roleID, permission)
	return args.Error(0)
}

func (m *Client) ResetEndpointPermission(ctx context.Context, envID, serviceID, roleID, methodID string) error {
	args := m.Called(ctx, envID, serviceID, roleID, methodID)
	return args.Error(0)
}

func (m *Client) BulkUpdateRecords(ctx context.Context, envID, table, where string, patch map[string]any) error {
	args := m.Called(ctx, envID, table, where, patch)
	return args.Error(0)
}

// Refresher is a mock implementation of reconcile.Refresher
type Refresher struct {
	mock.Mock
}

func (m *Refresher) RefreshTables(ctx context.Context, env *snapshot.Snapshot) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *Refresher) RefreshRoles(ctx context.Context, env *snapshot.Snapshot) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *Refresher) RefreshTablePermissions(ctx context.Context, env *snapshot.Snapshot) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}
