package diff

import (
	"sort"

	"envdiff/core/snapshot"
)

// BuildEntityMap builds the entity map of the given snapshots.
// The snapshots are only read, under their own lock.
func BuildEntityMap[E any, C any](snapshots []*snapshot.Snapshot, spec Spec[E, C]) *EntityMap {
	m := &EntityMap{
		Snapshots: make([]string, 0, len(snapshots)),
		Entities:  make(map[string]map[string]Values),
		Presence:  make(map[string]map[string]bool),
	}

	for _, snap := range snapshots {
		name := snap.Name
		m.Snapshots = append(m.Snapshots, name)

		snap.View(func(s *snapshot.Snapshot) {
			for _, entity := range spec.Entities(s) {
				key := spec.KeyOf(entity)
				m.markPresent(key, name)

				if spec.Children == nil {
					continue
				}
				for _, child := range spec.Children(entity) {
					attr := spec.ChildKey(child)
					if spec.Ignore != nil && spec.Ignore(attr) {
						continue
					}
					m.set(key, attr, name, spec.ValueOf(child))
				}
			}
		})
	}

	return m
}

func (m *EntityMap) markPresent(entity, snapshotName string) {
	presence, ok := m.Presence[entity]
	if !ok {
		presence = make(map[string]bool)
		m.Presence[entity] = presence
	}
	presence[snapshotName] = true

	if _, ok := m.Entities[entity]; !ok {
		m.Entities[entity] = make(map[string]Values)
	}
}

func (m *EntityMap) set(entity, attribute, snapshotName, value string) {
	attrs := m.Entities[entity]
	values, ok := attrs[attribute]
	if !ok {
		values = make(Values)
		attrs[attribute] = values
	}
	values[snapshotName] = value
}

// Value returns the value of an attribute in one snapshot.
func (m *EntityMap) Value(entity, attribute, snapshotName string) (string, bool) {
	value, ok := m.Entities[entity][attribute][snapshotName]
	return value, ok
}

// Present reports whether a snapshot contains an entity.
func (m *EntityMap) Present(entity, snapshotName string) bool {
	return m.Presence[entity][snapshotName]
}

// EntityKeys returns entity keys sorted lexicographically.
func (m *EntityMap) EntityKeys() []string {
	return sortedKeys(m.Entities)
}

// AttributeKeys returns the attribute keys of an entity sorted lexicographically.
func (m *EntityMap) AttributeKeys(entity string) []string {
	return sortedKeys(m.Entities[entity])
}

// HasDifference reports whether an attribute holds more than one distinct
// value across the snapshots that contain it. Absence is not a value.
// With inherit set, values containing INHERIT are left out of the
// comparison unless every present value is inherited.
func HasDifference(entity, attribute string, m *EntityMap, inherit bool) bool {
	values := m.Entities[entity][attribute]
	if len(values) < 2 {
		return false
	}

	all := make(map[string]struct{}, len(values))
	explicit := make(map[string]struct{}, len(values))
	for _, value := range values {
		all[value] = struct{}{}
		if !snapshot.IsInherited(value) {
			explicit[value] = struct{}{}
		}
	}

	if !inherit {
		return len(all) > 1
	}
	if len(explicit) == 0 {
		return len(all) > 1
	}
	return len(explicit) > 1
}

// isMissing reports whether a snapshot containing the entity lacks the attribute.
func (m *EntityMap) isMissing(entity, attribute string) bool {
	values := m.Entities[entity][attribute]
	for snapshotName := range m.Presence[entity] {
		if _, ok := values[snapshotName]; !ok {
			return true
		}
	}
	return false
}

// absent lists snapshots without the entity, in snapshot order.
func (m *EntityMap) absent(entity string) []string {
	var names []string
	for _, name := range m.Snapshots {
		if !m.Presence[entity][name] {
			names = append(names, name)
		}
	}
	return names
}

// Rows computes the report rows of the map, sorted by entity.
func (m *EntityMap) Rows(inherit, reportAbsence bool) []Row {
	var rows []Row

	for _, entity := range m.EntityKeys() {
		row := Row{Entity: entity}
		if reportAbsence {
			row.Absent = m.absent(entity)
		}

		for _, attribute := range m.AttributeKeys(entity) {
			switch {
			case HasDifference(entity, attribute, m, inherit):
				row.Changes = append(row.Changes, m.change(entity, attribute, Changed))
			case reportAbsence && m.isMissing(entity, attribute):
				row.Changes = append(row.Changes, m.change(entity, attribute, Missing))
			}
		}

		if len(row.Changes) > 0 || len(row.Absent) > 0 {
			rows = append(rows, row)
		}
	}

	return rows
}

func (m *EntityMap) change(entity, attribute string, kind ChangeKind) Change {
	values := make(Values, len(m.Entities[entity][attribute]))
	for name, value := range m.Entities[entity][attribute] {
		values[name] = value
	}
	return Change{Attribute: attribute, Kind: kind, Values: values}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
