package database

import (
	"context"
	"regexp"
	"testing"

	"envdiff/core/snapshot"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price DOUBLE DEFAULT 0)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(context.Background(), db, "test_items")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "integer", columns[0].Type)
	assert.Equal(t, "PRI", columns[0].Key)
	assert.Equal(t, "NO", columns[1].Null)
	require.NotNil(t, columns[2].Default)
	assert.Equal(t, "0", *columns[2].Default)

	// PRAGMA table_info returns an empty result for a missing table.
	cols, err := GetTableColumns(context.Background(), db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestDataType(t *testing.T) {
	tests := map[string]string{
		"varchar(255)":     "STRING",
		"tinyint(1)":       "BOOLEAN",
		"int(11) unsigned": "INT",
		"bigint":           "INT",
		"longtext":         "TEXT",
		"decimal(10,2)":    "DOUBLE",
		"timestamp":        "DATETIME",
		"json":             "JSON",
		"blob":             "BLOB",
	}
	for sqlType, want := range tests {
		t.Run(sqlType, func(t *testing.T) {
			assert.Equal(t, want, DataType(sqlType))
		})
	}
}

func TestToColumn(t *testing.T) {
	def := "'guest'"
	column := ToColumn(ColumnInfo{Field: "role", Type: "varchar(32)", Null: "NO", Key: "MUL", Default: &def})

	assert.Equal(t, snapshot.Column{
		Name:         "role",
		DataType:     "STRING",
		Required:     true,
		Indexed:      true,
		DefaultValue: "guest",
	}, column)
	assert.Equal(t, "STRING, NN, IDX, DEFAULT:guest", column.OptionsString())
}

func TestInspectSnapshotSQLite(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	require.NoError(t, db.Exec("CREATE TABLE users (objectId TEXT PRIMARY KEY, email VARCHAR(255) NOT NULL, created DATETIME)").Error)
	require.NoError(t, db.Exec("CREATE TABLE orders (objectId TEXT PRIMARY KEY, total DOUBLE)").Error)

	env, err := InspectSnapshot(context.Background(), db, "db:local")
	require.NoError(t, err)

	assert.Equal(t, "db:local", env.Name)
	assert.True(t, env.ReadOnly)
	assert.Equal(t, []string{"orders", "users"}, env.TableNames())

	users, ok := env.Table("users")
	require.True(t, ok)
	require.Len(t, users.Columns, 1)
	assert.Equal(t, "email", users.Columns[0].Name)
	assert.Equal(t, "STRING, NN", users.Columns[0].OptionsString())
}

func TestInspectSnapshotMySQL(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_app"}).AddRow("users"))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow("objectId", "varchar(36)", "NO", "PRI", nil, "").
			AddRow("email", "VARCHAR(255)", "NO", "UNI", nil, "").
			AddRow("age", "int(11)", "YES", "", "18", ""))

	env, err := InspectSnapshot(context.Background(), db, "db:app")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	users, ok := env.Table("users")
	require.True(t, ok)
	require.Len(t, users.Columns, 2)
	assert.Equal(t, "STRING, UQ, NN", users.Columns[0].OptionsString())
	assert.Equal(t, "INT, DEFAULT:18", users.Columns[1].OptionsString())
}

func TestInspectSnapshotError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).WillReturnError(assert.AnError)

	_, err := InspectSnapshot(context.Background(), db, "db:app")
	assert.ErrorContains(t, err, "failed to list tables")
}
