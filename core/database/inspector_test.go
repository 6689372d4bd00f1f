package database

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGetTableColumns(t *testing.T) {
	db := setupSQLite(t)

	err := db.Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, description TEXT)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "test_items")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "integer", columns[0].Type)
	assert.True(t, columns[0].IsPrimary())
	assert.Equal(t, "name", columns[1].Field)
	assert.Equal(t, "NO", columns[1].Null)
	assert.False(t, columns[1].IsPrimary())
	assert.Equal(t, "description", columns[2].Field)

	// PRAGMA table_info returns an empty result for a missing table
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestGetTableColumns_MySQL(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("ID", "INT(11)", "NO", "PRI", nil, "auto_increment").
		AddRow("Name", "VARCHAR(64)", "NO", "", nil, "")
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `components`")).WillReturnRows(rows)

	columns, err := GetTableColumns(db, "components")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "id", columns[0].Field)
	assert.Equal(t, "int(11)", columns[0].Type)
	assert.True(t, columns[0].IsPrimary())
	assert.Equal(t, "name", columns[1].Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForeignKeys(t *testing.T) {
	db := setupSQLite(t)

	require.NoError(t, db.Exec("CREATE TABLE components (id INTEGER PRIMARY KEY, name TEXT)").Error)
	require.NoError(t, db.Exec("CREATE TABLE dependencies (id INTEGER PRIMARY KEY, component_id INTEGER REFERENCES components(id), label TEXT)").Error)

	keys, err := GetForeignKeys(db, "dependencies")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, ForeignKey{Column: "component_id", RefTable: "components", RefColumn: "id"}, keys[0])

	keys, err = GetForeignKeys(db, "components")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGetForeignKeys_MySQL(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"column", "ref_table", "ref_column"}).
		AddRow("Component_ID", "Components", "ID")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.KEY_COLUMN_USAGE")).
		WithArgs("dependencies").
		WillReturnRows(rows)

	keys, err := GetForeignKeys(db, "dependencies")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, ForeignKey{Column: "component_id", RefTable: "components", RefColumn: "id"}, keys[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables(t *testing.T) {
	db := setupSQLite(t)

	require.NoError(t, db.Exec("CREATE TABLE beta (id INTEGER PRIMARY KEY AUTOINCREMENT)").Error)
	require.NoError(t, db.Exec("CREATE TABLE alpha (id INTEGER PRIMARY KEY)").Error)

	tables, err := ListTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, tables)
}
