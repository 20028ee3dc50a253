package snapshot

import (
	"fmt"
	"strings"
	"sync"

	"envdiff/core/utils"
)

// Access tokens used by permission values.
const (
	AccessAllow   = "ALLOW"
	AccessDeny    = "DENY"
	AccessInherit = "INHERIT"
)

// Relation types as reported by the console API.
const (
	RelationOneToOne  = "ONE_TO_ONE"
	RelationOneToMany = "ONE_TO_MANY"
)

// Snapshot is the normalized capture of one environment.
// It is built once per run and then mutated in place as operations succeed,
// so every mutation goes through the helpers in mutate.go which hold mu.
type Snapshot struct {
	// Name identifies the snapshot within a run (application name or dump path).
	Name string `json:"name" yaml:"name"`
	// ID is the opaque environment identifier used to address the remote API.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// SecretKey is the opaque access credential of the environment.
	SecretKey string `json:"secretKey,omitempty" yaml:"secretKey,omitempty"`

	Tables   []Table   `json:"tables" yaml:"tables"`
	Roles    []Role    `json:"roles" yaml:"roles"`
	Services []Service `json:"services" yaml:"services"`

	// ReadOnly marks snapshots loaded from a dump or a database.
	// They are compared but never reconciled.
	ReadOnly bool `json:"-" yaml:"-"`

	mu sync.Mutex
}

// Table is a data table with its columns, relations and role permissions.
type Table struct {
	Name      string     `json:"name" yaml:"name"`
	TableID   string     `json:"tableId,omitempty" yaml:"tableId,omitempty"`
	Columns   []Column   `json:"columns" yaml:"columns"`
	Relations []Relation `json:"relations,omitempty" yaml:"relations,omitempty"`

	// Roles maps role name to operation to access value.
	// It is nil when table permissions were not loaded.
	Roles map[string]map[string]string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Column is a plain table column.
type Column struct {
	Name         string `json:"name" yaml:"name"`
	ColumnID     string `json:"columnId,omitempty" yaml:"columnId,omitempty"`
	DataType     string `json:"dataType" yaml:"dataType"`
	Unique       bool   `json:"unique" yaml:"unique"`
	Required     bool   `json:"required" yaml:"required"`
	Indexed      bool   `json:"indexed" yaml:"indexed"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// HasDefault reports whether the column declares a non-empty default value.
func (c Column) HasDefault() bool {
	return !utils.IsBlank(c.DefaultValue)
}

// OptionsString is the canonical rendering compared across environments.
func (c Column) OptionsString() string {
	options := []string{c.DataType}
	if c.Unique {
		options = append(options, "UQ")
	}
	if c.Required {
		options = append(options, "NN")
	}
	if c.Indexed {
		options = append(options, "IDX")
	}
	if c.HasDefault() {
		options = append(options, "DEFAULT:"+utils.ToString(c.DefaultValue))
	}
	return strings.Join(options, ", ")
}

// Relation is a relation column pointing at another table.
type Relation struct {
	ColumnName       string `json:"columnName" yaml:"columnName"`
	ColumnID         string `json:"columnId,omitempty" yaml:"columnId,omitempty"`
	FromTableID      string `json:"fromTableId,omitempty" yaml:"fromTableId,omitempty"`
	ToTableID        string `json:"toTableId,omitempty" yaml:"toTableId,omitempty"`
	ToTableName      string `json:"toTableName" yaml:"toTableName"`
	RelationshipType string `json:"relationshipType" yaml:"relationshipType"`
	Required         bool   `json:"required" yaml:"required"`
	Unique           bool   `json:"unique" yaml:"unique"`
	AutoLoad         bool   `json:"autoLoad" yaml:"autoLoad"`
}

// RelationTypeAlias renders ONE_TO_ONE as 1:1 and anything else as 1:N.
func RelationTypeAlias(relationType string) string {
	if relationType == RelationOneToOne {
		return "1:1"
	}
	return "1:N"
}

// OptionsString is the canonical rendering compared across environments.
func (r Relation) OptionsString() string {
	options := []string{fmt.Sprintf("%s(%s)", r.ToTableName, RelationTypeAlias(r.RelationshipType))}
	if r.Unique {
		options = append(options, "UQ")
	}
	if r.Required {
		options = append(options, "NN")
	}
	return strings.Join(options, ", ")
}

// Role is an application security role.
type Role struct {
	RoleID      string       `json:"roleId,omitempty" yaml:"roleId,omitempty"`
	Rolename    string       `json:"rolename" yaml:"rolename"`
	Permissions []Permission `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// Permission is a single access grant. Type is empty for table and endpoint
// permissions.
type Permission struct {
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Operation string `json:"operation" yaml:"operation"`
	Access    string `json:"access" yaml:"access"`
}

// Service is an API service with its methods.
type Service struct {
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string   `json:"name" yaml:"name"`
	Methods []Method `json:"methods" yaml:"methods"`
}

// Method is an API service method and its per-role access.
type Method struct {
	ID     string            `json:"id,omitempty" yaml:"id,omitempty"`
	Method string            `json:"method" yaml:"method"`
	Roles  map[string]string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// IsInherited reports whether an access value defers to the parent scope.
func IsInherited(access string) bool {
	return strings.Contains(access, AccessInherit)
}
