package snapshot

// Mutation helpers. Each one holds the snapshot lock so concurrent
// operations against the same environment never race on its collections.

// AddTable appends an empty table unless one with the same name exists.
func (s *Snapshot) AddTable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range s.Tables {
		if table.Name == name {
			return
		}
	}
	s.Tables = append(s.Tables, Table{Name: name})
}

// RemoveTable drops the named table.
func (s *Snapshot) RemoveTable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.Tables[:0]
	for _, table := range s.Tables {
		if table.Name != name {
			kept = append(kept, table)
		}
	}
	s.Tables = kept
}

// ReplaceTables swaps the whole table list, keeping table permissions that
// the fresh list does not carry.
func (s *Snapshot) ReplaceTables(tables []Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]map[string]map[string]string, len(s.Tables))
	for _, table := range s.Tables {
		previous[table.Name] = table.Roles
	}

	for i := range tables {
		tables[i].Columns = UserColumns(tables[i].Columns)
		if tables[i].Roles == nil {
			tables[i].Roles = previous[tables[i].Name]
		}
	}
	s.Tables = tables
}

// PutColumn inserts or replaces a plain column of a table.
func (s *Snapshot) PutColumn(tableName string, column Column) {
	s.withTable(tableName, func(table *Table) {
		for i := range table.Columns {
			if table.Columns[i].Name == column.Name {
				table.Columns[i] = column
				return
			}
		}
		table.Columns = append(table.Columns, column)
	})
}

// RemoveColumn drops a plain column of a table.
func (s *Snapshot) RemoveColumn(tableName, columnName string) {
	s.withTable(tableName, func(table *Table) {
		kept := table.Columns[:0]
		for _, column := range table.Columns {
			if column.Name != columnName {
				kept = append(kept, column)
			}
		}
		table.Columns = kept
	})
}

// PutRelation inserts or replaces a relation column of a table.
func (s *Snapshot) PutRelation(tableName string, relation Relation) {
	s.withTable(tableName, func(table *Table) {
		for i := range table.Relations {
			if table.Relations[i].ColumnName == relation.ColumnName {
				table.Relations[i] = relation
				return
			}
		}
		table.Relations = append(table.Relations, relation)
	})
}

// RemoveRelation drops a relation column of a table.
func (s *Snapshot) RemoveRelation(tableName, columnName string) {
	s.withTable(tableName, func(table *Table) {
		kept := table.Relations[:0]
		for _, relation := range table.Relations {
			if relation.ColumnName != columnName {
				kept = append(kept, relation)
			}
		}
		table.Relations = kept
	})
}

// SetTablePermission records the access of a role on a table operation.
func (s *Snapshot) SetTablePermission(tableName, roleName, operation, access string) {
	s.withTable(tableName, func(table *Table) {
		if table.Roles == nil {
			table.Roles = make(map[string]map[string]string)
		}
		if table.Roles[roleName] == nil {
			table.Roles[roleName] = make(map[string]string)
		}
		table.Roles[roleName][operation] = access
	})
}

// SetTableRoles replaces every role permission of a table.
func (s *Snapshot) SetTableRoles(tableName string, roles map[string]map[string]string) {
	s.withTable(tableName, func(table *Table) {
		table.Roles = roles
	})
}

func (s *Snapshot) withTable(name string, fn func(*Table)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Tables {
		if s.Tables[i].Name == name {
			fn(&s.Tables[i])
			return
		}
	}
}

// AddRole appends a role returned by the remote API, replacing any role
// with the same name.
func (s *Snapshot) AddRole(role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Roles {
		if s.Roles[i].Rolename == role.Rolename {
			s.Roles[i] = role
			return
		}
	}
	s.Roles = append(s.Roles, role)
}

// RemoveRole drops the role with the given id.
func (s *Snapshot) RemoveRole(roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.Roles[:0]
	for _, role := range s.Roles {
		if role.RoleID != roleID {
			kept = append(kept, role)
		}
	}
	s.Roles = kept
}

// ReplaceRoles swaps the whole role list.
func (s *Snapshot) ReplaceRoles(roles []Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Roles = roles
}

// SetRolePermission records the access of a role on a type.operation pair.
func (s *Snapshot) SetRolePermission(roleName string, permission Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Roles {
		role := &s.Roles[i]
		if role.Rolename != roleName {
			continue
		}
		for j := range role.Permissions {
			p := &role.Permissions[j]
			if p.Type == permission.Type && p.Operation == permission.Operation {
				p.Access = permission.Access
				return
			}
		}
		role.Permissions = append(role.Permissions, permission)
		return
	}
}

// SetEndpointPermission records the access of a role on a service method.
func (s *Snapshot) SetEndpointPermission(serviceName, methodName, roleName, access string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Services {
		if s.Services[i].Name != serviceName {
			continue
		}
		for j := range s.Services[i].Methods {
			method := &s.Services[i].Methods[j]
			if method.Method != methodName {
				continue
			}
			if method.Roles == nil {
				method.Roles = make(map[string]string)
			}
			method.Roles[roleName] = access
			return
		}
	}
}
