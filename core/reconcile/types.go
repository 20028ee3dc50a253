package reconcile

import (
	"fmt"
	"strings"

	"envdiff/core/snapshot"
)

// OpKind represents the type of mutation operation.
type OpKind string

const (
	// OpAddTable creates an empty table in the target.
	OpAddTable OpKind = "add_table"
	// OpRemoveTable deletes a table from the target.
	OpRemoveTable OpKind = "remove_table"
	// OpAddColumn creates a plain column.
	OpAddColumn OpKind = "add_column"
	// OpUpdateColumn changes the definition of a plain column.
	OpUpdateColumn OpKind = "update_column"
	// OpRemoveColumn deletes a plain column.
	OpRemoveColumn OpKind = "remove_column"
	// OpAddRelation creates a relation column.
	OpAddRelation OpKind = "add_relation"
	// OpUpdateRelation changes the definition of a relation column.
	OpUpdateRelation OpKind = "update_relation"
	// OpRemoveRelation deletes a relation column.
	OpRemoveRelation OpKind = "remove_relation"
	// OpBackfill sets a column's default on existing rows where it is null.
	OpBackfill OpKind = "backfill"
	// OpAddRole creates a security role.
	OpAddRole OpKind = "add_role"
	// OpRemoveRole deletes a security role.
	OpRemoveRole OpKind = "remove_role"
	// OpUpdateRolePermission sets a global role permission.
	OpUpdateRolePermission OpKind = "update_role_permission"
	// OpUpdateTablePermission sets a table permission of a role.
	OpUpdateTablePermission OpKind = "update_table_permission"
	// OpResetTablePermission clears a table permission override of a role.
	OpResetTablePermission OpKind = "reset_table_permission"
	// OpUpdateEndpointPermission sets the access of a role on a service method.
	OpUpdateEndpointPermission OpKind = "update_endpoint_permission"
	// OpResetEndpointPermission clears a service method override of a role.
	OpResetEndpointPermission OpKind = "reset_endpoint_permission"
)

// Operation is one planned mutation against a target environment.
// Identity fields are always expressed in the target's ids.
type Operation struct {
	// Kind specifies the mutation to perform.
	Kind OpKind `json:"kind"`

	// Target is the environment being mutated.
	Target *snapshot.Snapshot `json:"-"`

	Table    string             `json:"table,omitempty"`
	TableID  string             `json:"table_id,omitempty"`
	Column   *snapshot.Column   `json:"column,omitempty"`
	Relation *snapshot.Relation `json:"relation,omitempty"`

	Role       string              `json:"role,omitempty"`
	RoleID     string              `json:"role_id,omitempty"`
	Permission snapshot.Permission `json:"permission,omitzero"`

	Service   string `json:"service,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	Method    string `json:"method,omitempty"`
	MethodID  string `json:"method_id,omitempty"`

	// Where and Patch describe a backfill.
	Where string         `json:"where,omitempty"`
	Patch map[string]any `json:"patch,omitempty"`

	// Destructive operations are confirmed before dispatch.
	Destructive bool `json:"destructive"`

	// Prompt is the confirmation question of a destructive operation.
	Prompt string `json:"prompt,omitempty"`

	// Lane groups operations that must run one after another in plan order.
	// Operations with an empty lane run independently.
	Lane string `json:"lane,omitempty"`

	// Prerequisite marks an operation guarding the next operation of its
	// lane. The guarded operation does not run if the prerequisite fails,
	// and the prerequisite does not run if the guarded one is declined.
	Prerequisite bool `json:"prerequisite,omitempty"`
}

// TargetName returns the name of the target environment.
func (o Operation) TargetName() string {
	if o.Target == nil {
		return ""
	}
	return o.Target.Name
}

// Entity returns the dotted identity of the mutated entity.
func (o Operation) Entity() string {
	var parts []string
	switch o.Kind {
	case OpAddTable, OpRemoveTable:
		parts = []string{o.Table}
	case OpAddColumn, OpUpdateColumn, OpRemoveColumn, OpBackfill:
		parts = []string{o.Table, o.columnName()}
	case OpAddRelation, OpUpdateRelation, OpRemoveRelation:
		parts = []string{o.Table, o.columnName()}
	case OpAddRole, OpRemoveRole:
		parts = []string{o.Role}
	case OpUpdateRolePermission:
		parts = []string{o.Permission.Type, o.Permission.Operation, o.Role}
	case OpUpdateTablePermission, OpResetTablePermission:
		parts = []string{o.Table, o.Permission.Operation, o.Role}
	case OpUpdateEndpointPermission, OpResetEndpointPermission:
		parts = []string{o.Service, o.Method, o.Role}
	}
	return strings.Join(parts, ".")
}

func (o Operation) columnName() string {
	switch {
	case o.Column != nil:
		return o.Column.Name
	case o.Relation != nil:
		return o.Relation.ColumnName
	default:
		return ""
	}
}

// String renders the operation for logs and reports.
func (o Operation) String() string {
	s := fmt.Sprintf("%s %s.%s", o.Kind, o.TargetName(), o.Entity())
	if o.Permission.Access != "" {
		s += "=" + o.Permission.Access
	}
	return s
}

// Plan is an ordered list of operations.
type Plan []Operation

// Len returns the number of operations in the plan.
func (p Plan) Len() int {
	return len(p)
}

// Count returns the number of operations of the given kind.
func (p Plan) Count(kind OpKind) int {
	n := 0
	for _, op := range p {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Failure records an operation that failed and its error.
type Failure struct {
	Operation Operation `json:"operation"`
	Err       error     `json:"-"`
	Message   string    `json:"error"`
}

// Skip records an operation that did not run.
type Skip struct {
	Operation Operation `json:"operation"`
	Reason    string    `json:"reason"`
}

// Skip reasons.
const (
	ReasonDeclined             = "declined"
	ReasonConfirmerError       = "confirmation failed"
	ReasonGuardedDeclined      = "guarded operation declined"
	ReasonPrerequisiteDeclined = "prerequisite declined"
	ReasonDryRun               = "dry run"
)

// ExecutionReport aggregates the outcome of executing a plan.
type ExecutionReport struct {
	Applied []Operation `json:"applied"`
	Skipped []Skip      `json:"skipped"`
	Failed  []Failure   `json:"failed"`
}

// Summary provides aggregate counts of an execution report.
type Summary struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Summary returns the aggregate counts of the report.
func (r *ExecutionReport) Summary() Summary {
	if r == nil {
		return Summary{}
	}
	return Summary{Applied: len(r.Applied), Skipped: len(r.Skipped), Failed: len(r.Failed)}
}

// Merge appends another report to this one.
func (r *ExecutionReport) Merge(other *ExecutionReport) {
	if other == nil {
		return
	}
	r.Applied = append(r.Applied, other.Applied...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Failed = append(r.Failed, other.Failed...)
}

// HasFailures reports whether any operation failed.
func (r *ExecutionReport) HasFailures() bool {
	return r != nil && len(r.Failed) > 0
}

// Options controls sync behavior.
type Options struct {
	// DryRun plans operations without dispatching them.
	DryRun bool

	// Concurrency is the maximum number of in-flight operations.
	Concurrency int
}

// Config holds sync defaults read from configuration.
type Config struct {
	// Concurrency is the default number of in-flight operations.
	Concurrency int `mapstructure:"concurrency" default:"10"`
	// CheckList is the default comma separated check list.
	CheckList string `mapstructure:"check_list" default:""`
}
