package console

import (
	"context"
	"fmt"
	"sort"

	"envdiff/core/logger"
	"envdiff/core/parallel"
	"envdiff/core/snapshot"

	"github.com/gofiber/fiber/v2"
)

// roleGrant is the per-role permission list the security endpoints return
// for a table or a service.
type roleGrant struct {
	RoleID      string                `json:"roleId"`
	Name        string                `json:"name"`
	Permissions []snapshot.Permission `json:"permissions"`
}

func consolePath(envID string) string {
	return "/" + envID + "/console"
}

// FetchSnapshot captures one environment: schema, roles with their global
// permissions, table permissions and API services with their permissions.
func (c *Client) FetchSnapshot(ctx context.Context, app Application) (*snapshot.Snapshot, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	l := logger.WithEnvironment(c.logger, app.Name)

	secret, err := c.Secret(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	env := &snapshot.Snapshot{Name: app.Name, ID: app.ID, SecretKey: secret}

	l.Debug("Fetching schema")
	if err := c.RefreshTables(ctx, env); err != nil {
		return nil, err
	}

	l.Debug("Fetching roles")
	if err := c.RefreshRoles(ctx, env); err != nil {
		return nil, err
	}

	l.Debug("Fetching table permissions")
	if err := c.RefreshTablePermissions(ctx, env); err != nil {
		return nil, err
	}

	l.Debug("Fetching API services")
	services, err := c.fetchServices(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	env.View(func(s *snapshot.Snapshot) {
		s.Services = services
	})

	return env, nil
}

// FetchByName resolves an application by name and captures it.
func (c *Client) FetchByName(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	app, err := c.FindApplication(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.FetchSnapshot(ctx, app)
}

// RefreshTables reloads the table list of env, keeping loaded table
// permissions.
func (c *Client) RefreshTables(ctx context.Context, env *snapshot.Snapshot) error {
	var payload struct {
		Tables []snapshot.Table `json:"tables"`
	}
	if err := c.call(ctx, fiber.MethodGet, consolePath(env.ID)+"/data/tables", nil, &payload); err != nil {
		return fmt.Errorf("failed to fetch tables of %s: %w", env.Name, err)
	}

	// Permissions are refreshed separately; the table list never carries them.
	for i := range payload.Tables {
		payload.Tables[i].Roles = nil
	}
	env.ReplaceTables(payload.Tables)
	env.Normalize()
	return nil
}

// RefreshRoles reloads the roles of env together with their global
// permissions.
func (c *Client) RefreshRoles(ctx context.Context, env *snapshot.Snapshot) error {
	var roles []snapshot.Role
	if err := c.call(ctx, fiber.MethodGet, consolePath(env.ID)+"/security/roles", nil, &roles); err != nil {
		return fmt.Errorf("failed to fetch roles of %s: %w", env.Name, err)
	}

	tasks := make([]parallel.Task[[]snapshot.Permission], len(roles))
	for i, role := range roles {
		tasks[i] = func(ctx context.Context) ([]snapshot.Permission, error) {
			var permissions []snapshot.Permission
			path := consolePath(env.ID) + "/security/roles/permissions/" + role.RoleID
			if err := c.call(ctx, fiber.MethodGet, path, nil, &permissions); err != nil {
				return nil, fmt.Errorf("failed to fetch permissions of role %s in %s: %w", role.Rolename, env.Name, err)
			}
			return permissions, nil
		}
	}

	outcomes, err := parallel.RunInParallel(ctx, tasks, c.limit)
	if err != nil {
		return err
	}
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			return outcome.Err
		}
		roles[i].Permissions = outcome.Value
	}

	env.ReplaceRoles(roles)
	return nil
}

// RefreshTablePermissions reloads the role permissions of every table.
func (c *Client) RefreshTablePermissions(ctx context.Context, env *snapshot.Snapshot) error {
	type tableRef struct{ name, id string }

	var refs []tableRef
	env.View(func(s *snapshot.Snapshot) {
		for _, table := range s.Tables {
			refs = append(refs, tableRef{name: table.Name, id: table.TableID})
		}
	})

	tasks := make([]parallel.Task[map[string]map[string]string], len(refs))
	for i, ref := range refs {
		tasks[i] = func(ctx context.Context) (map[string]map[string]string, error) {
			var grants []roleGrant
			path := consolePath(env.ID) + "/security/data/" + ref.id + "/roles"
			if err := c.call(ctx, fiber.MethodGet, path, nil, &grants); err != nil {
				return nil, fmt.Errorf("failed to fetch permissions of table %s in %s: %w", ref.name, env.Name, err)
			}

			roles := make(map[string]map[string]string, len(grants))
			for _, grant := range grants {
				operations := make(map[string]string, len(grant.Permissions))
				for _, permission := range grant.Permissions {
					operations[permission.Operation] = permission.Access
				}
				roles[grant.Name] = operations
			}
			return roles, nil
		}
	}

	outcomes, err := parallel.RunInParallel(ctx, tasks, c.limit)
	if err != nil {
		return err
	}
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			return outcome.Err
		}
		env.SetTableRoles(refs[i].name, outcome.Value)
	}
	return nil
}

// fetchServices loads API services, their methods and the per-role access
// of every method.
func (c *Client) fetchServices(ctx context.Context, envID string) ([]snapshot.Service, error) {
	var services []snapshot.Service
	if err := c.call(ctx, fiber.MethodGet, consolePath(envID)+"/localservices", nil, &services); err != nil {
		return nil, fmt.Errorf("failed to fetch services of %s: %w", envID, err)
	}

	tasks := make([]parallel.Task[[]snapshot.Method], len(services))
	for i, service := range services {
		tasks[i] = func(ctx context.Context) ([]snapshot.Method, error) {
			return c.fetchMethods(ctx, envID, service)
		}
	}

	outcomes, err := parallel.RunInParallel(ctx, tasks, c.limit)
	if err != nil {
		return nil, err
	}
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			return nil, outcome.Err
		}
		services[i].Methods = outcome.Value
	}

	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})
	return services, nil
}

func (c *Client) fetchMethods(ctx context.Context, envID string, service snapshot.Service) ([]snapshot.Method, error) {
	var methods []snapshot.Method
	path := consolePath(envID) + "/localservices/" + service.ID + "/methods"
	if err := c.call(ctx, fiber.MethodGet, path, nil, &methods); err != nil {
		return nil, fmt.Errorf("failed to fetch methods of service %s: %w", service.Name, err)
	}

	var grants []roleGrant
	path = consolePath(envID) + "/security/localservices/" + service.ID + "/roles"
	if err := c.callURL(ctx, fiber.MethodGet, c.baseURL, path, "pageSize=50", nil, &grants); err != nil {
		return nil, fmt.Errorf("failed to fetch permissions of service %s: %w", service.Name, err)
	}

	byID := make(map[string]*snapshot.Method, len(methods))
	for i := range methods {
		byID[methods[i].ID] = &methods[i]
	}
	for _, grant := range grants {
		for _, permission := range grant.Permissions {
			method, ok := byID[permission.Operation]
			if !ok {
				continue
			}
			if method.Roles == nil {
				method.Roles = make(map[string]string)
			}
			method.Roles[grant.Name] = permission.Access
		}
	}
	return methods, nil
}
