package dbstore

import (
	"fmt"
	"strings"

	"sheet-reconciler/core/database"
	"sheet-reconciler/core/store"

	"gorm.io/gorm"
)

// association is the join table backing a collection field.
type association struct {
	Table       string
	OwnColumn   string
	OtherColumn string
	OtherTable  string
}

// tableMeta maps the public entity view of a table onto its columns.
type tableMeta struct {
	entity       store.Entity
	columns      map[string]string // field -> column
	associations map[string]association
}

func (m *tableMeta) column(field string) (string, bool) {
	f, ok := m.entity.Field(field)
	if !ok {
		return "", false
	}
	col, ok := m.columns[f.Name]
	return col, ok
}

// inspect builds entity metadata for every table of the database.
func inspect(db *gorm.DB) (map[string]*tableMeta, error) {
	tables, err := database.ListTables(db)
	if err != nil {
		return nil, err
	}

	type tableInfo struct {
		columns []database.ColumnInfo
		fks     map[string]database.ForeignKey
	}
	infos := make(map[string]tableInfo, len(tables))
	for _, t := range tables {
		cols, err := database.GetTableColumns(db, t)
		if err != nil {
			return nil, err
		}
		keys, err := database.GetForeignKeys(db, t)
		if err != nil {
			return nil, err
		}
		fks := make(map[string]database.ForeignKey, len(keys))
		for _, k := range keys {
			fks[k.Column] = k
		}
		infos[t] = tableInfo{columns: cols, fks: fks}
	}

	metas := make(map[string]*tableMeta, len(tables))
	for _, t := range tables {
		info := infos[t]
		meta := &tableMeta{
			entity:       store.Entity{Name: t},
			columns:      make(map[string]string),
			associations: make(map[string]association),
		}
		taken := make(map[string]bool, len(info.columns))
		for _, c := range info.columns {
			taken[c.Field] = true
		}
		for _, c := range info.columns {
			if c.IsPrimary() && meta.entity.PrimaryKey == "" {
				meta.entity.PrimaryKey = c.Field
			}
			field := store.Field{Name: c.Field}
			if fk, ok := info.fks[c.Field]; ok {
				field.IsRelation = true
				field.RelatedEntity = fk.RefTable
				if name := strings.TrimSuffix(c.Field, "_id"); name != c.Field && !taken[name] {
					field.Name = name
				}
			}
			meta.entity.Fields = append(meta.entity.Fields, field)
			meta.columns[field.Name] = c.Field
		}
		if meta.entity.PrimaryKey == "" {
			return nil, fmt.Errorf("table %s has no primary key", t)
		}
		metas[t] = meta
	}

	// Join tables surface as collection fields on both referenced tables
	for _, t := range tables {
		left, right, ok := joinColumns(infos[t].columns, infos[t].fks)
		if !ok {
			continue
		}
		addAssociation(metas, t, left, right)
		if left.RefTable != right.RefTable {
			addAssociation(metas, t, right, left)
		}
	}
	return metas, nil
}

// joinColumns reports whether a table only links two others.
func joinColumns(cols []database.ColumnInfo, fks map[string]database.ForeignKey) (database.ForeignKey, database.ForeignKey, bool) {
	var links []database.ForeignKey
	for _, c := range cols {
		if fk, ok := fks[c.Field]; ok {
			links = append(links, fk)
			continue
		}
		if !c.IsPrimary() {
			return database.ForeignKey{}, database.ForeignKey{}, false
		}
	}
	if len(links) != 2 {
		return database.ForeignKey{}, database.ForeignKey{}, false
	}
	return links[0], links[1], true
}

func addAssociation(metas map[string]*tableMeta, joinTable string, own, other database.ForeignKey) {
	owner, ok := metas[own.RefTable]
	if !ok {
		return
	}
	name := other.RefTable
	if own.RefTable == other.RefTable {
		name = strings.TrimSuffix(other.Column, "_id")
	}
	if _, exists := owner.entity.Field(name); exists {
		name = joinTable
	}
	owner.entity.Fields = append(owner.entity.Fields, store.Field{
		Name:          name,
		IsRelation:    true,
		RelatedEntity: other.RefTable,
		IsCollection:  true,
	})
	owner.associations[name] = association{
		Table:       joinTable,
		OwnColumn:   own.Column,
		OtherColumn: other.Column,
		OtherTable:  other.RefTable,
	}
}
