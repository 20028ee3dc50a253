package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"envdiff/core/snapshot"
	"envdiff/core/utils"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // NULL default is possible
	Extra   string
}

// GetTables lists the user tables of the database.
func GetTables(ctx context.Context, db *gorm.DB) ([]string, error) {
	var tables []string
	query := "SHOW TABLES"
	if db.Dialector.Name() == DriverSQLite {
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
	}
	if err := db.WithContext(ctx).Raw(query).Scan(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(ctx context.Context, db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	db = db.WithContext(ctx)

	var columns []ColumnInfo
	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string `gorm:"column:dflt_value"`
			Pk         int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			info := ColumnInfo{
				Field:   col.Name,
				Type:    strings.ToLower(col.Type),
				Null:    "YES",
				Default: col.DefaultVal,
			}
			if col.Notnull == 1 {
				info.Null = "NO"
			}
			if col.Pk > 0 {
				info.Key = "PRI"
			}
			columns = append(columns, info)
		}
		return columns, nil
	}

	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

// ToColumn maps a database column onto the console column model.
func ToColumn(info ColumnInfo) snapshot.Column {
	column := snapshot.Column{
		Name:     info.Field,
		DataType: DataType(info.Type),
		Required: !utils.ToBool(info.Null),
		Unique:   info.Key == "UNI" || info.Key == "PRI",
		Indexed:  info.Key == "MUL",
	}
	if info.Default != nil {
		column.DefaultValue = strings.Trim(*info.Default, "'")
	}
	return column
}

// DataType maps a SQL column type onto the closest console data type.
// Unknown types are returned upper-cased.
func DataType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	base, _, _ := strings.Cut(t, "(")
	base = strings.TrimSpace(strings.TrimSuffix(base, " unsigned"))

	switch {
	case t == "tinyint(1)" || base == "boolean" || base == "bool" || base == "bit":
		return "BOOLEAN"
	case base == "varchar" || base == "char" || base == "uuid":
		return "STRING"
	case strings.HasSuffix(base, "text") || base == "clob":
		return "TEXT"
	case strings.HasSuffix(base, "int") || base == "integer":
		return "INT"
	case base == "double" || base == "float" || base == "decimal" || base == "real" || base == "numeric":
		return "DOUBLE"
	case base == "datetime" || base == "timestamp" || base == "date":
		return "DATETIME"
	case base == "json":
		return "JSON"
	default:
		return strings.ToUpper(t)
	}
}

// InspectSnapshot captures the schema of db as a read-only snapshot.
// Only tables and columns are populated; a database carries no roles,
// permissions or services.
func InspectSnapshot(ctx context.Context, db *gorm.DB, name string) (*snapshot.Snapshot, error) {
	tables, err := GetTables(ctx, db)
	if err != nil {
		return nil, err
	}

	env := &snapshot.Snapshot{Name: name, ReadOnly: true}
	for _, tableName := range tables {
		infos, err := GetTableColumns(ctx, db, tableName)
		if err != nil {
			return nil, err
		}
		table := snapshot.Table{Name: tableName, Columns: make([]snapshot.Column, 0, len(infos))}
		for _, info := range infos {
			table.Columns = append(table.Columns, ToColumn(info))
		}
		env.Tables = append(env.Tables, table)
	}

	env.Normalize()
	return env, nil
}
