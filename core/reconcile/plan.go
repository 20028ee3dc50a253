package reconcile

import (
	"fmt"
	"strings"

	"envdiff/core/diff"
	"envdiff/core/snapshot"
)

// Planners compare a source snapshot with its targets and emit the
// operations that make every writable target match the source. Source is
// only read. Read-only targets (dumps, databases) are never planned against.

// PlanTables plans table additions and confirmed removals by name.
// System tables are never added or removed.
func PlanTables(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	sourceNames := source.TableNames()
	var plan Plan

	for _, target := range writable(targets) {
		targetNames := target.TableNames()
		lane := tableLane(target)

		for _, name := range subtract(targetNames, sourceNames) {
			plan = append(plan, Operation{
				Kind:        OpRemoveTable,
				Target:      target,
				Table:       name,
				Destructive: true,
				Prompt:      fmt.Sprintf("Are you sure you want to delete the table %s.%s?", target.Name, name),
				Lane:        lane,
			})
		}

		for _, name := range subtract(sourceNames, targetNames) {
			plan = append(plan, Operation{
				Kind:   OpAddTable,
				Target: target,
				Table:  name,
				Lane:   lane,
			})
		}
	}

	return plan
}

// PlanColumns plans column and relation changes for tables present in both
// source and target. It expects table sync to be applied and the target
// tables refreshed. An update of a required source column with a default is
// preceded by a backfill of that default into existing null values.
func PlanColumns(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	targets = writable(targets)
	m := diff.BuildEntityMap(withSource(source, targets), diff.SchemaSpec)
	var plan Plan

	for _, tableName := range m.EntityKeys() {
		if snapshot.IsSystemTable(tableName) {
			continue
		}
		sourceTable, ok := source.Table(tableName)
		if !ok {
			continue
		}

		for _, target := range targets {
			targetTable, ok := target.Table(tableName)
			if !ok {
				continue
			}
			p := columnPlanner{
				target:      target,
				sourceTable: sourceTable,
				targetTable: targetTable,
				lane:        columnLane(target, tableName),
			}

			for _, name := range m.AttributeKeys(tableName) {
				sourceValue, inSource := m.Value(tableName, name, source.Name)
				targetValue, inTarget := m.Value(tableName, name, target.Name)

				switch {
				case inSource && !inTarget:
					plan = append(plan, p.add(name))
				case !inSource && inTarget:
					plan = append(plan, p.remove(name, false))
				case inSource && inTarget && sourceValue != targetValue:
					plan = append(plan, p.update(name, sourceValue, targetValue)...)
				}
			}
		}
	}

	return plan
}

// columnPlanner builds the column operations of one table in one target.
type columnPlanner struct {
	target      *snapshot.Snapshot
	sourceTable snapshot.Table
	targetTable snapshot.Table
	lane        string
}

func (p columnPlanner) op(kind OpKind) Operation {
	return Operation{
		Kind:    kind,
		Target:  p.target,
		Table:   p.targetTable.Name,
		TableID: p.targetTable.TableID,
		Lane:    p.lane,
	}
}

func (p columnPlanner) add(name string) Operation {
	if column, ok := p.sourceTable.Column(name); ok {
		column.ColumnID = ""
		op := p.op(OpAddColumn)
		op.Column = &column
		return op
	}

	relation, _ := p.sourceTable.Relation(name)
	relation = p.localRelation(relation, "")
	op := p.op(OpAddRelation)
	op.Relation = &relation
	return op
}

func (p columnPlanner) remove(name string, prerequisite bool) Operation {
	var op Operation
	if column, ok := p.targetTable.Column(name); ok {
		op = p.op(OpRemoveColumn)
		op.Column = &column
	} else {
		relation, _ := p.targetTable.Relation(name)
		op = p.op(OpRemoveRelation)
		op.Relation = &relation
	}
	op.Destructive = true
	op.Prerequisite = prerequisite
	op.Prompt = fmt.Sprintf("Are you sure you want to delete the column %s.%s.%s?", p.target.Name, p.targetTable.Name, name)
	return op
}

func (p columnPlanner) update(name, sourceValue, targetValue string) []Operation {
	prompt := fmt.Sprintf("Are you sure you want to update the column %s.%s.%s: %q => %q?",
		p.target.Name, p.targetTable.Name, name, targetValue, sourceValue)

	sourceColumn, sourceIsColumn := p.sourceTable.Column(name)
	targetColumn, targetIsColumn := p.targetTable.Column(name)

	switch {
	case sourceIsColumn && targetIsColumn:
		column := sourceColumn
		column.ColumnID = targetColumn.ColumnID

		var ops []Operation
		if sourceColumn.Required && sourceColumn.HasDefault() {
			backfill := p.op(OpBackfill)
			backfill.Column = &column
			backfill.Where = fmt.Sprintf("%s is null", name)
			backfill.Patch = map[string]any{name: sourceColumn.DefaultValue}
			backfill.Prerequisite = true
			ops = append(ops, backfill)
		}

		update := p.op(OpUpdateColumn)
		update.Column = &column
		update.Destructive = true
		update.Prompt = prompt
		return append(ops, update)

	case !sourceIsColumn && !targetIsColumn:
		sourceRelation, _ := p.sourceTable.Relation(name)
		targetRelation, _ := p.targetTable.Relation(name)
		relation := p.localRelation(sourceRelation, targetRelation.ColumnID)

		update := p.op(OpUpdateRelation)
		update.Relation = &relation
		update.Destructive = true
		update.Prompt = prompt
		return []Operation{update}

	default:
		// A plain column became a relation or the other way round.
		return []Operation{p.remove(name, true), p.add(name)}
	}
}

// localRelation rewrites a source relation with the target's ids.
func (p columnPlanner) localRelation(relation snapshot.Relation, columnID string) snapshot.Relation {
	relation.ColumnID = columnID
	relation.FromTableID = p.targetTable.TableID
	relation.ToTableID = ""
	if related, ok := p.target.Table(relation.ToTableName); ok {
		relation.ToTableID = related.TableID
	}
	return relation
}

// PlanRoles plans role additions and confirmed removals by role name.
func PlanRoles(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	sourceNames := source.RoleNames()
	var plan Plan

	for _, target := range writable(targets) {
		targetNames := target.RoleNames()
		lane := roleLane(target)

		for _, name := range subtract(targetNames, sourceNames) {
			role, _ := target.Role(name)
			plan = append(plan, Operation{
				Kind:        OpRemoveRole,
				Target:      target,
				Role:        name,
				RoleID:      role.RoleID,
				Destructive: true,
				Prompt:      fmt.Sprintf("Are you sure you want to delete the role %s.%s?", target.Name, name),
				Lane:        lane,
			})
		}

		for _, name := range subtract(sourceNames, targetNames) {
			plan = append(plan, Operation{
				Kind:   OpAddRole,
				Target: target,
				Role:   name,
				Lane:   lane,
			})
		}
	}

	return plan
}

// PlanRolePermissions plans global role permission updates carrying the
// source access, addressed by the target's role id.
func PlanRolePermissions(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	targets = writable(targets)
	m := diff.BuildEntityMap(withSource(source, targets), diff.RolePermissionSpec)
	var plan Plan

	forEachPermission(m, source, targets, func(entity, roleName, access string, target *snapshot.Snapshot) {
		role, ok := target.Role(roleName)
		if !ok || role.RoleID == "" {
			return
		}
		permissionType, operation := splitKey(entity)
		plan = append(plan, Operation{
			Kind:   OpUpdateRolePermission,
			Target: target,
			Role:   roleName,
			RoleID: role.RoleID,
			Permission: snapshot.Permission{
				Type:      permissionType,
				Operation: operation,
				Access:    access,
			},
		})
	})

	return plan
}

// PlanTablePermissions plans table permission changes. An inherited source
// value is applied as a reset of the target override.
func PlanTablePermissions(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	targets = writable(targets)
	m := diff.BuildEntityMap(withSource(source, targets), diff.TablePermissionSpec)
	var plan Plan

	forEachPermission(m, source, targets, func(entity, roleName, access string, target *snapshot.Snapshot) {
		tableName, operation := splitKey(entity)
		table, ok := target.Table(tableName)
		if !ok || table.TableID == "" {
			return
		}
		role, ok := target.Role(roleName)
		if !ok || role.RoleID == "" {
			return
		}

		kind := OpUpdateTablePermission
		if snapshot.IsInherited(access) {
			kind = OpResetTablePermission
		}
		plan = append(plan, Operation{
			Kind:       kind,
			Target:     target,
			Table:      tableName,
			TableID:    table.TableID,
			Role:       roleName,
			RoleID:     role.RoleID,
			Permission: snapshot.Permission{Operation: operation, Access: access},
		})
	})

	return plan
}

// PlanEndpointPermissions plans service method access changes. An inherited
// source value is applied as a reset of the target override.
func PlanEndpointPermissions(source *snapshot.Snapshot, targets []*snapshot.Snapshot) Plan {
	targets = writable(targets)
	m := diff.BuildEntityMap(withSource(source, targets), diff.EndpointPermissionSpec)
	var plan Plan

	forEachPermission(m, source, targets, func(entity, roleName, access string, target *snapshot.Snapshot) {
		serviceName, methodName := splitKey(entity)
		service, method, ok := target.Method(serviceName, methodName)
		if !ok || service.ID == "" || method.ID == "" {
			return
		}
		role, ok := target.Role(roleName)
		if !ok || role.RoleID == "" {
			return
		}

		kind := OpUpdateEndpointPermission
		if snapshot.IsInherited(access) {
			kind = OpResetEndpointPermission
		}
		plan = append(plan, Operation{
			Kind:       kind,
			Target:     target,
			Service:    serviceName,
			ServiceID:  service.ID,
			Method:     methodName,
			MethodID:   method.ID,
			Role:       roleName,
			RoleID:     role.RoleID,
			Permission: snapshot.Permission{Operation: method.ID, Access: access},
		})
	})

	return plan
}

// forEachPermission calls fn for every (entity, role, target) whose value
// must change: the source holds a value, the target holds a different one,
// and either the attribute differs across snapshots or the target has no
// entry at all for an explicit source value (a freshly added role or table).
func forEachPermission(m *diff.EntityMap, source *snapshot.Snapshot, targets []*snapshot.Snapshot, fn func(entity, role, access string, target *snapshot.Snapshot)) {
	for _, entity := range m.EntityKeys() {
		for _, roleName := range m.AttributeKeys(entity) {
			access, ok := m.Value(entity, roleName, source.Name)
			if !ok {
				continue
			}
			differs := diff.HasDifference(entity, roleName, m, true)

			for _, target := range targets {
				current, present := m.Value(entity, roleName, target.Name)
				switch {
				case present && current == access:
					continue
				case !present && !snapshot.IsInherited(access):
				case !differs:
					continue
				}
				fn(entity, roleName, access, target)
			}
		}
	}
}

func writable(targets []*snapshot.Snapshot) []*snapshot.Snapshot {
	result := make([]*snapshot.Snapshot, 0, len(targets))
	for _, target := range targets {
		if target != nil && !target.ReadOnly {
			result = append(result, target)
		}
	}
	return result
}

func withSource(source *snapshot.Snapshot, targets []*snapshot.Snapshot) []*snapshot.Snapshot {
	return append([]*snapshot.Snapshot{source}, targets...)
}

// subtract returns the items of a missing from b, in a's order.
func subtract(a, b []string) []string {
	present := make(map[string]struct{}, len(b))
	for _, item := range b {
		present[item] = struct{}{}
	}
	var result []string
	for _, item := range a {
		if _, ok := present[item]; !ok {
			result = append(result, item)
		}
	}
	return result
}

// splitKey splits an entity key at its first dot.
func splitKey(key string) (string, string) {
	head, tail, _ := strings.Cut(key, ".")
	return head, tail
}

func tableLane(target *snapshot.Snapshot) string {
	return target.Name + "/tables"
}

func columnLane(target *snapshot.Snapshot, table string) string {
	return target.Name + "/tables/" + table
}

func roleLane(target *snapshot.Snapshot) string {
	return target.Name + "/roles"
}
