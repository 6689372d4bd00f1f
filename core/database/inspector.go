package database

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // Pointer because NULL default is possible
	Extra   string
}

// IsPrimary reports whether the column is part of the primary key.
func (c ColumnInfo) IsPrimary() bool {
	return c.Key == "PRI"
}

// ForeignKey describes a single-column foreign key constraint.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// GetTableColumns retrieves the column definitions for a given table, in declaration order.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if db.Dialector.Name() == DriverSQLite {
		type sqliteColumn struct {
			Cid       int
			Name      string
			Type      string
			Notnull   int
			DfltValue *string
			Pk        int
		}
		var sqliteCols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			info := ColumnInfo{
				Field:   strings.ToLower(col.Name),
				Type:    strings.ToLower(col.Type),
				Null:    "YES",
				Default: col.DfltValue,
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
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// GetForeignKeys retrieves the single-column foreign keys declared on a table.
func GetForeignKeys(db *gorm.DB, tableName string) ([]ForeignKey, error) {
	var keys []ForeignKey
	if db.Dialector.Name() == DriverSQLite {
		type sqliteForeignKey struct {
			ID    int
			Seq   int
			Table string
			From  string
			To    *string
		}
		var rows []sqliteForeignKey
		if err := db.Raw(fmt.Sprintf("PRAGMA foreign_key_list('%s')", tableName)).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", tableName, err)
		}
		for _, row := range rows {
			fk := ForeignKey{
				Column:   strings.ToLower(row.From),
				RefTable: strings.ToLower(row.Table),
			}
			if row.To != nil {
				fk.RefColumn = strings.ToLower(*row.To)
			}
			keys = append(keys, fk)
		}
		return keys, nil
	}

	query := "SELECT COLUMN_NAME AS `column`, REFERENCED_TABLE_NAME AS ref_table, REFERENCED_COLUMN_NAME AS ref_column " +
		"FROM information_schema.KEY_COLUMN_USAGE " +
		"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL " +
		"ORDER BY ORDINAL_POSITION"
	if err := db.Raw(query, tableName).Scan(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", tableName, err)
	}
	for i := range keys {
		keys[i].Column = strings.ToLower(keys[i].Column)
		keys[i].RefTable = strings.ToLower(keys[i].RefTable)
		keys[i].RefColumn = strings.ToLower(keys[i].RefColumn)
	}
	return keys, nil
}

// ListTables returns the user tables of the connected database, sorted by name.
func ListTables(db *gorm.DB) ([]string, error) {
	tables, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if strings.HasPrefix(t, "sqlite_") {
			continue
		}
		out = append(out, strings.ToLower(t))
	}
	sort.Strings(out)
	return out, nil
}
