// Package database handles database connections and schema inspection.
//
// It provides a thin wrapper around GORM to open MySQL or SQLite connections
// from the application's configuration.
//
// # Connect
//
// Connect selects the dialector from Config.Driver. SQLite connections are pinned
// to a single pooled connection so that ":memory:" databases stay consistent.
//
// # Schema Inspection
//
// The inspector reads columns, primary keys, foreign keys and table lists straight
// from the database catalog (PRAGMA on SQLite, SHOW COLUMNS and information_schema
// on MySQL). The relational store builds its entity metadata on top of it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "components")
//	keys, err := database.GetForeignKeys(db, "dependencies")
package database
