// Package database connects to a MySQL or SQLite database through GORM and
// inspects its schema.
//
// # Connect
//
// Connect opens the configured driver, applies pool settings and pings the
// database within the configured timeout.
//
// # Schema Inspection
//
// InspectSnapshot lists the tables and columns of a database and maps them
// onto the console column model, producing a read-only snapshot that can be
// compared against live environments. Column types are mapped to the closest
// console data type by DataType.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	env, err := database.InspectSnapshot(ctx, db, "db:app")
package database
