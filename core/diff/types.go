package diff

import "envdiff/core/snapshot"

// Spec configures one comparator over the generic entity map.
// E is the top-level entity extracted from a snapshot and C is one of its
// children (the compared attributes).
type Spec[E any, C any] struct {
	// Entities extracts the top-level entities of a snapshot.
	Entities func(*snapshot.Snapshot) []E

	// KeyOf returns the identity key of an entity. Several entities may share
	// a key, their children are merged.
	KeyOf func(E) string

	// Children extracts the compared attributes of an entity.
	Children func(E) []C

	// ChildKey returns the identity key of an attribute.
	ChildKey func(C) string

	// ValueOf returns the normalized value compared across snapshots.
	ValueOf func(C) string

	// Ignore skips attributes by key (system columns).
	Ignore func(key string) bool

	// Inherit enables the INHERIT suppression rule for permission values.
	Inherit bool

	// ReportAbsence reports entities and attributes missing from some
	// snapshots. Permission comparators leave it off, missing tables and
	// roles are reported by their own comparators.
	ReportAbsence bool
}

// Values maps snapshot name to the value found there.
type Values map[string]string

// EntityMap is the nested map entity -> attribute -> snapshot -> value.
type EntityMap struct {
	// Snapshots lists snapshot names in input order.
	Snapshots []string

	// Entities holds attribute values per entity.
	Entities map[string]map[string]Values

	// Presence records which snapshots contain each entity.
	Presence map[string]map[string]bool
}

// ChangeKind classifies a reported attribute.
type ChangeKind string

const (
	// Changed means at least two snapshots hold different values.
	Changed ChangeKind = "changed"
	// Missing means some snapshots containing the entity lack the attribute.
	Missing ChangeKind = "missing"
)

// Change is one reported attribute of an entity.
type Change struct {
	Attribute string     `json:"attribute"`
	Kind      ChangeKind `json:"kind"`
	Values    Values     `json:"values"`
}

// Row groups the reported changes of one entity.
type Row struct {
	Entity string `json:"entity"`

	// Absent lists snapshots that do not contain the entity at all.
	Absent []string `json:"absent,omitempty"`

	// Changes is sorted by attribute.
	Changes []Change `json:"changes"`
}

// Kind names a comparator. The names double as check list entries.
type Kind string

const (
	KindSchema        Kind = "schema"
	KindEndpoints     Kind = "api"
	KindTablePerms    Kind = "table-perms"
	KindRolePerms     Kind = "role-perms"
	KindEndpointPerms Kind = "api-perms"
)

// AllKinds is the default check list, in report order.
var AllKinds = []Kind{KindSchema, KindEndpoints, KindTablePerms, KindRolePerms, KindEndpointPerms}

// Report is the output of one comparator.
type Report struct {
	Kind Kind `json:"kind"`

	// Title is printed above the rendered table.
	Title string `json:"title"`

	// Header names the entity and attribute columns.
	Header [2]string `json:"header"`

	// Snapshots lists the compared snapshot names in column order.
	Snapshots []string `json:"snapshots"`

	// Rows is sorted by entity.
	Rows []Row `json:"rows"`

	// Map is the entity map the report was built from.
	Map *EntityMap `json:"-"`
}

// HasDifferences reports whether any row was emitted.
func (r *Report) HasDifferences() bool {
	return r != nil && len(r.Rows) > 0
}
