package snapshot

import (
	"slices"
	"sort"
)

// SystemColumns are environment-managed and never compared or migrated.
var SystemColumns = []string{"created", "updated", "ownerId", "objectId"}

// SystemTables are environment-managed and never added or removed.
var SystemTables = []string{"DeviceRegistration", "Loggers"}

// IsSystemColumn reports whether name is an environment-managed column.
func IsSystemColumn(name string) bool {
	return slices.Contains(SystemColumns, name)
}

// IsSystemTable reports whether name is an environment-managed table.
func IsSystemTable(name string) bool {
	return slices.Contains(SystemTables, name)
}

// Normalize drops system columns and sorts tables by name.
func (s *Snapshot) Normalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Tables {
		s.Tables[i].Columns = UserColumns(s.Tables[i].Columns)
	}
	sort.SliceStable(s.Tables, func(i, j int) bool {
		return s.Tables[i].Name < s.Tables[j].Name
	})
}

// UserColumns returns columns without the system ones.
func UserColumns(columns []Column) []Column {
	result := make([]Column, 0, len(columns))
	for _, column := range columns {
		if !IsSystemColumn(column.Name) {
			result = append(result, column)
		}
	}
	return result
}

// StripIDs clears every environment-specific identifier and credential so
// the snapshot can be dumped and later compared against another environment.
func (s *Snapshot) StripIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ID = ""
	s.SecretKey = ""

	for i := range s.Tables {
		table := &s.Tables[i]
		table.TableID = ""
		for j := range table.Columns {
			table.Columns[j].ColumnID = ""
		}
		for j := range table.Relations {
			table.Relations[j].ColumnID = ""
			table.Relations[j].FromTableID = ""
			table.Relations[j].ToTableID = ""
		}
	}

	for i := range s.Roles {
		s.Roles[i].RoleID = ""
	}

	for i := range s.Services {
		s.Services[i].ID = ""
		for j := range s.Services[i].Methods {
			s.Services[i].Methods[j].ID = ""
		}
	}
}

// TableNames returns the names of all non-system tables in snapshot order.
func (s *Snapshot) TableNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		if !IsSystemTable(table.Name) {
			names = append(names, table.Name)
		}
	}
	return names
}

// RoleNames returns the names of all roles in snapshot order.
func (s *Snapshot) RoleNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.Roles))
	for _, role := range s.Roles {
		names = append(names, role.Rolename)
	}
	return names
}

// Table returns a copy of the named table.
func (s *Snapshot) Table(name string) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range s.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return Table{}, false
}

// Role returns a copy of the named role.
func (s *Snapshot) Role(name string) (Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, role := range s.Roles {
		if role.Rolename == name {
			return role, true
		}
	}
	return Role{}, false
}

// Method returns copies of the named service and its method.
func (s *Snapshot) Method(serviceName, methodName string) (Service, Method, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, service := range s.Services {
		if service.Name != serviceName {
			continue
		}
		for _, method := range service.Methods {
			if method.Method == methodName {
				return service, method, true
			}
		}
		return service, Method{}, false
	}
	return Service{}, Method{}, false
}

// Column returns the named plain column of a table.
func (t Table) Column(name string) (Column, bool) {
	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Column{}, false
}

// Relation returns the named relation column of a table.
func (t Table) Relation(name string) (Relation, bool) {
	for _, relation := range t.Relations {
		if relation.ColumnName == name {
			return relation, true
		}
	}
	return Relation{}, false
}

// View calls fn while holding the snapshot lock. fn must not call other
// locking methods of the same snapshot.
func (s *Snapshot) View(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
