package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrders() *Snapshot {
	return &Snapshot{
		Name:      "prod",
		ID:        "app-1",
		SecretKey: "secret",
		Tables: []Table{
			{
				Name:    "Users",
				TableID: "t-2",
				Columns: []Column{{Name: "email", DataType: "STRING", Unique: true}},
			},
			{
				Name:    "Orders",
				TableID: "t-1",
				Columns: []Column{
					{Name: "objectId", DataType: "STRING_ID"},
					{Name: "created", DataType: "DATETIME"},
					{Name: "status", ColumnID: "c-1", DataType: "STRING", Required: true, DefaultValue: "NEW"},
				},
				Relations: []Relation{
					{ColumnName: "owner", ColumnID: "c-2", ToTableName: "Users", RelationshipType: RelationOneToOne, Required: true},
				},
				Roles: map[string]map[string]string{"Admin": {"FIND": AccessAllow}},
			},
		},
		Roles: []Role{
			{RoleID: "r-1", Rolename: "Admin", Permissions: []Permission{{Type: "DATA", Operation: "INSERT", Access: AccessAllow}}},
		},
		Services: []Service{
			{ID: "s-1", Name: "Billing", Methods: []Method{{ID: "m-1", Method: "charge", Roles: map[string]string{"Admin": AccessAllow}}}},
		},
	}
}

func TestColumnOptionsString(t *testing.T) {
	tests := []struct {
		name     string
		column   Column
		expected string
	}{
		{name: "plain", column: Column{DataType: "STRING"}, expected: "STRING"},
		{name: "all flags", column: Column{DataType: "INT", Unique: true, Required: true, Indexed: true}, expected: "INT, UQ, NN, IDX"},
		{name: "string default", column: Column{DataType: "STRING", Required: true, DefaultValue: "NEW"}, expected: "STRING, NN, DEFAULT:NEW"},
		{name: "numeric default", column: Column{DataType: "INT", DefaultValue: float64(5)}, expected: "INT, DEFAULT:5"},
		{name: "blank default", column: Column{DataType: "STRING", DefaultValue: " "}, expected: "STRING"},
		{name: "false default", column: Column{DataType: "BOOLEAN", DefaultValue: false}, expected: "BOOLEAN, DEFAULT:false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.column.OptionsString())
		})
	}
}

func TestRelationOptionsString(t *testing.T) {
	assert.Equal(t, "Users(1:1), NN", Relation{ToTableName: "Users", RelationshipType: RelationOneToOne, Required: true}.OptionsString())
	assert.Equal(t, "Items(1:N), UQ", Relation{ToTableName: "Items", RelationshipType: RelationOneToMany, Unique: true}.OptionsString())
}

func TestNormalize(t *testing.T) {
	s := newOrders()
	s.Normalize()

	require.Len(t, s.Tables, 2)
	assert.Equal(t, "Orders", s.Tables[0].Name)
	assert.Equal(t, "Users", s.Tables[1].Name)
	require.Len(t, s.Tables[0].Columns, 1)
	assert.Equal(t, "status", s.Tables[0].Columns[0].Name)
}

func TestIsInherited(t *testing.T) {
	assert.True(t, IsInherited("INHERIT"))
	assert.True(t, IsInherited("INHERIT_ALLOW"))
	assert.False(t, IsInherited("ALLOW"))
	assert.False(t, IsInherited(""))
}

func TestTableNamesSkipsSystemTables(t *testing.T) {
	s := &Snapshot{Tables: []Table{{Name: "Orders"}, {Name: "Loggers"}, {Name: "DeviceRegistration"}}}
	assert.Equal(t, []string{"Orders"}, s.TableNames())
}

func TestStripIDs(t *testing.T) {
	s := newOrders()
	s.StripIDs()

	assert.Empty(t, s.ID)
	assert.Empty(t, s.SecretKey)
	for _, table := range s.Tables {
		assert.Empty(t, table.TableID)
		for _, column := range table.Columns {
			assert.Empty(t, column.ColumnID)
		}
		for _, relation := range table.Relations {
			assert.Empty(t, relation.ColumnID)
		}
	}
	assert.Empty(t, s.Roles[0].RoleID)
	assert.Empty(t, s.Services[0].ID)
	assert.Empty(t, s.Services[0].Methods[0].ID)
	assert.Equal(t, "Admin", s.Roles[0].Rolename)
}

func TestMutations(t *testing.T) {
	s := newOrders()
	s.Normalize()

	s.AddTable("Temp")
	s.AddTable("Temp")
	assert.Equal(t, []string{"Orders", "Users", "Temp"}, s.TableNames())

	s.RemoveTable("Temp")
	assert.Equal(t, []string{"Orders", "Users"}, s.TableNames())

	s.PutColumn("Orders", Column{Name: "total", DataType: "DOUBLE"})
	s.PutColumn("Orders", Column{Name: "status", DataType: "TEXT"})
	orders, ok := s.Table("Orders")
	require.True(t, ok)
	status, ok := orders.Column("status")
	require.True(t, ok)
	assert.Equal(t, "TEXT", status.DataType)
	_, ok = orders.Column("total")
	assert.True(t, ok)

	s.RemoveColumn("Orders", "total")
	s.RemoveRelation("Orders", "owner")
	orders, _ = s.Table("Orders")
	_, ok = orders.Column("total")
	assert.False(t, ok)
	_, ok = orders.Relation("owner")
	assert.False(t, ok)

	s.SetTablePermission("Users", "Admin", "FIND", AccessDeny)
	users, _ := s.Table("Users")
	assert.Equal(t, AccessDeny, users.Roles["Admin"]["FIND"])

	s.AddRole(Role{RoleID: "r-2", Rolename: "Guest"})
	s.SetRolePermission("Guest", Permission{Type: "DATA", Operation: "FIND", Access: AccessAllow})
	s.SetRolePermission("Admin", Permission{Type: "DATA", Operation: "INSERT", Access: AccessDeny})
	guest, ok := s.Role("Guest")
	require.True(t, ok)
	assert.Equal(t, []Permission{{Type: "DATA", Operation: "FIND", Access: AccessAllow}}, guest.Permissions)
	admin, _ := s.Role("Admin")
	assert.Equal(t, AccessDeny, admin.Permissions[0].Access)

	s.RemoveRole("r-2")
	assert.Equal(t, []string{"Admin"}, s.RoleNames())

	s.SetEndpointPermission("Billing", "charge", "Guest", AccessDeny)
	_, method, ok := s.Method("Billing", "charge")
	require.True(t, ok)
	assert.Equal(t, AccessDeny, method.Roles["Guest"])
}

func TestReplaceTablesKeepsPermissions(t *testing.T) {
	s := newOrders()
	s.ReplaceTables([]Table{
		{Name: "Orders", TableID: "t-9", Columns: []Column{{Name: "updated"}, {Name: "status", DataType: "STRING"}}},
	})

	orders, ok := s.Table("Orders")
	require.True(t, ok)
	assert.Equal(t, "t-9", orders.TableID)
	assert.Len(t, orders.Columns, 1)
	assert.Equal(t, AccessAllow, orders.Roles["Admin"]["FIND"])
}

func TestCodecRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			s := newOrders()
			s.Normalize()

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, s, format))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, s.Name, decoded.Name)
			assert.Equal(t, s.TableNames(), decoded.TableNames())

			orders, _ := decoded.Table("Orders")
			status, ok := orders.Column("status")
			require.True(t, ok)
			assert.Equal(t, "STRING, NN, DEFAULT:NEW", status.OptionsString())
			assert.Equal(t, AccessAllow, orders.Roles["Admin"]["FIND"])
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"dump.json", "dump.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			s := newOrders()
			s.StripIDs()
			require.NoError(t, SaveFile(path, s))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, path, loaded.Name)
			assert.True(t, loaded.ReadOnly)
			assert.Equal(t, []string{"Orders", "Users"}, loaded.TableNames())
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a.yml"))
	assert.Equal(t, FormatYAML, FormatFor("a.YAML"))
	assert.Equal(t, FormatJSON, FormatFor("a.json"))
	assert.Equal(t, FormatJSON, FormatFor("a"))
}

func TestClone(t *testing.T) {
	s := newOrders()
	s.ReadOnly = true

	clone, err := s.Clone()
	require.NoError(t, err)
	assert.True(t, clone.ReadOnly)
	assert.Equal(t, "app-1", clone.ID)

	clone.StripIDs()
	clone.RemoveTable("Users")

	assert.Equal(t, "app-1", s.ID)
	assert.Equal(t, []string{"Users", "Orders"}, s.TableNames())
	assert.Equal(t, []string{"Orders"}, clone.TableNames())
}

func TestSetTableRoles(t *testing.T) {
	s := newOrders()
	s.SetTableRoles("Users", map[string]map[string]string{"Guest": {"FIND": AccessDeny}})
	s.SetTableRoles("Missing", map[string]map[string]string{"Guest": {"FIND": AccessDeny}})

	users, ok := s.Table("Users")
	require.True(t, ok)
	assert.Equal(t, AccessDeny, users.Roles["Guest"]["FIND"])
	_, ok = s.Table("Missing")
	assert.False(t, ok)
}

func TestFormatContentType(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/yaml", FormatYAML.ContentType())
}
