package diff

import (
	"fmt"
	"sort"

	"envdiff/core/snapshot"
)

// Attribute is a generic keyed value used as comparator child.
type Attribute struct {
	Key   string
	Value string
}

// keyed pairs an entity key with its attributes. Several keyed entries
// sharing a key are merged by BuildEntityMap.
type keyed struct {
	Key   string
	Attrs []Attribute
}

func attrKey(a Attribute) string   { return a.Key }
func attrValue(a Attribute) string { return a.Value }
func keyedKey(k keyed) string      { return k.Key }
func keyedAttrs(k keyed) []Attribute {
	return k.Attrs
}

// TableColumns renders the columns and relations of a table as attributes.
func TableColumns(table snapshot.Table) []Attribute {
	attrs := make([]Attribute, 0, len(table.Columns)+len(table.Relations))
	for _, column := range table.Columns {
		attrs = append(attrs, Attribute{Key: column.Name, Value: column.OptionsString()})
	}
	for _, relation := range table.Relations {
		attrs = append(attrs, Attribute{Key: relation.ColumnName, Value: relation.OptionsString()})
	}
	return attrs
}

// SchemaSpec compares table columns: entity = table, attribute = column.
var SchemaSpec = Spec[snapshot.Table, Attribute]{
	Entities: func(s *snapshot.Snapshot) []snapshot.Table { return s.Tables },
	KeyOf:    func(t snapshot.Table) string { return t.Name },
	Children: TableColumns,
	ChildKey: attrKey,
	ValueOf:  attrValue,
	Ignore:   snapshot.IsSystemColumn,

	ReportAbsence: true,
}

// TablePermissionKey joins a table and an operation into an entity key.
func TablePermissionKey(table, operation string) string {
	return table + "." + operation
}

// TablePermissionSpec compares table role permissions:
// entity = table.operation, attribute = role.
var TablePermissionSpec = Spec[keyed, Attribute]{
	Entities: func(s *snapshot.Snapshot) []keyed {
		var entries []keyed
		for _, table := range s.Tables {
			for role, operations := range table.Roles {
				for operation, access := range operations {
					entries = append(entries, keyed{
						Key:   TablePermissionKey(table.Name, operation),
						Attrs: []Attribute{{Key: role, Value: access}},
					})
				}
			}
		}
		return entries
	},
	KeyOf:    keyedKey,
	Children: keyedAttrs,
	ChildKey: attrKey,
	ValueOf:  attrValue,
	Inherit:  true,
}

// RolePermissionKey joins a permission type and an operation into an entity key.
func RolePermissionKey(permissionType, operation string) string {
	return permissionType + "." + operation
}

// RolePermissionSpec compares global role permissions:
// entity = type.operation, attribute = role name.
var RolePermissionSpec = Spec[keyed, Attribute]{
	Entities: func(s *snapshot.Snapshot) []keyed {
		var entries []keyed
		for _, role := range s.Roles {
			for _, permission := range role.Permissions {
				entries = append(entries, keyed{
					Key:   RolePermissionKey(permission.Type, permission.Operation),
					Attrs: []Attribute{{Key: role.Rolename, Value: permission.Access}},
				})
			}
		}
		return entries
	},
	KeyOf:    keyedKey,
	Children: keyedAttrs,
	ChildKey: attrKey,
	ValueOf:  attrValue,
	Inherit:  true,
}

// EndpointKey joins a service and a method into an entity key.
func EndpointKey(service, method string) string {
	return service + "." + method
}

// EndpointSpec compares endpoint existence: entity = service.method with
// no attributes, only presence is compared.
var EndpointSpec = Spec[keyed, Attribute]{
	Entities: func(s *snapshot.Snapshot) []keyed {
		var entries []keyed
		for _, service := range s.Services {
			for _, method := range service.Methods {
				entries = append(entries, keyed{Key: EndpointKey(service.Name, method.Method)})
			}
		}
		return entries
	},
	KeyOf: keyedKey,

	ReportAbsence: true,
}

// EndpointPermissionSpec compares endpoint access:
// entity = service.method, attribute = role name.
var EndpointPermissionSpec = Spec[keyed, Attribute]{
	Entities: func(s *snapshot.Snapshot) []keyed {
		var entries []keyed
		for _, service := range s.Services {
			for _, method := range service.Methods {
				entry := keyed{Key: EndpointKey(service.Name, method.Method)}
				for role, access := range method.Roles {
					entry.Attrs = append(entry.Attrs, Attribute{Key: role, Value: access})
				}
				entries = append(entries, entry)
			}
		}
		return entries
	},
	KeyOf:    keyedKey,
	Children: keyedAttrs,
	ChildKey: attrKey,
	ValueOf:  attrValue,
	Inherit:  true,
}

// Compare runs a comparator spec and builds its report.
func Compare[E any, C any](kind Kind, title string, header [2]string, snapshots []*snapshot.Snapshot, spec Spec[E, C]) *Report {
	m := BuildEntityMap(snapshots, spec)
	return &Report{
		Kind:      kind,
		Title:     title,
		Header:    header,
		Snapshots: m.Snapshots,
		Rows:      m.Rows(spec.Inherit, spec.ReportAbsence),
		Map:       m,
	}
}

// CompareTables compares table schemas (columns and relations).
func CompareTables(snapshots []*snapshot.Snapshot) *Report {
	return Compare(KindSchema, "Table schema", [2]string{"Table", "Column"}, snapshots, SchemaSpec)
}

// CompareTablePermissions compares table level role permissions.
func CompareTablePermissions(snapshots []*snapshot.Snapshot) *Report {
	return Compare(KindTablePerms, "Table Permissions", [2]string{"Table Operation", "Role"}, snapshots, TablePermissionSpec)
}

// CompareRolePermissions compares global role permissions.
func CompareRolePermissions(snapshots []*snapshot.Snapshot) *Report {
	return Compare(KindRolePerms, "Roles Permissions", [2]string{"Operation", "Role"}, snapshots, RolePermissionSpec)
}

// CompareEndpoints compares API service methods by existence.
func CompareEndpoints(snapshots []*snapshot.Snapshot) *Report {
	return Compare(KindEndpoints, "Endpoints", [2]string{"Endpoint", "Exists"}, snapshots, EndpointSpec)
}

// CompareEndpointPermissions compares API method access per role.
func CompareEndpointPermissions(snapshots []*snapshot.Snapshot) *Report {
	return Compare(KindEndpointPerms, "Endpoints Permissions", [2]string{"Endpoint", "Role"}, snapshots, EndpointPermissionSpec)
}

var comparators = map[Kind]func([]*snapshot.Snapshot) *Report{
	KindSchema:        CompareTables,
	KindEndpoints:     CompareEndpoints,
	KindTablePerms:    CompareTablePermissions,
	KindRolePerms:     CompareRolePermissions,
	KindEndpointPerms: CompareEndpointPermissions,
}

// ParseCheckList validates check list entries. An empty list selects all kinds.
func ParseCheckList(entries []string) ([]Kind, error) {
	if len(entries) == 0 {
		return AllKinds, nil
	}

	selected := make(map[Kind]bool, len(entries))
	for _, entry := range entries {
		kind := Kind(entry)
		if _, ok := comparators[kind]; !ok {
			return nil, fmt.Errorf("unknown check %q (valid: %v)", entry, AllKinds)
		}
		selected[kind] = true
	}

	kinds := make([]Kind, 0, len(selected))
	for _, kind := range AllKinds {
		if selected[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// CompareAll runs the comparators of the check list in report order.
func CompareAll(snapshots []*snapshot.Snapshot, checks []Kind) []*Report {
	if len(checks) == 0 {
		checks = AllKinds
	}
	sorted := append([]Kind(nil), checks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return kindOrder(sorted[i]) < kindOrder(sorted[j])
	})

	reports := make([]*Report, 0, len(sorted))
	for _, kind := range sorted {
		if compare, ok := comparators[kind]; ok {
			reports = append(reports, compare(snapshots))
		}
	}
	return reports
}

// AnyDifferences reports whether any of the reports found differences.
func AnyDifferences(reports []*Report) bool {
	for _, report := range reports {
		if report.HasDifferences() {
			return true
		}
	}
	return false
}

func kindOrder(kind Kind) int {
	for i, k := range AllKinds {
		if k == kind {
			return i
		}
	}
	return len(AllKinds)
}
