package dbstore

import (
	"fmt"
	"strings"

	"sheet-reconciler/core/store"

	"gorm.io/gorm"
)

func get(db *gorm.DB, m *tableMeta, id any) (store.Row, error) {
	rows, err := query(db, m, nil, store.Filter{Equals: map[string]any{m.entity.PrimaryKey: id}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s(%v)", store.ErrRecordNotFound, m.entity.Name, id)
	}
	return rows[0], nil
}

func query(db *gorm.DB, m *tableMeta, fields []string, filter store.Filter) ([]store.Row, error) {
	if len(fields) == 0 {
		fields = m.entity.FieldNames()
	}

	// Column selection, collections are fetched from their join tables afterwards
	selected := []string{m.entity.PrimaryKey}
	byColumn := map[string]string{m.entity.PrimaryKey: m.entity.PrimaryKey}
	var collections []string
	for _, name := range fields {
		f, ok := m.entity.Field(name)
		if !ok {
			continue
		}
		if f.IsCollection {
			collections = append(collections, f.Name)
			continue
		}
		col := m.columns[f.Name]
		if _, seen := byColumn[col]; seen && col != m.entity.PrimaryKey {
			continue
		}
		if col != m.entity.PrimaryKey {
			selected = append(selected, col)
		}
		byColumn[col] = f.Name
	}

	q := db.Table(m.entity.Name).Select(selected)
	if len(filter.Equals) > 0 {
		where, err := toColumns(m, filter.Equals)
		if err != nil {
			return nil, err
		}
		q = q.Where(where)
	}
	order := filter.Sort
	if len(order) == 0 {
		order = []string{m.entity.PrimaryKey}
	}
	for _, field := range order {
		col, ok := m.column(field)
		if !ok {
			return nil, fmt.Errorf("entity %s has no sortable field %s", m.entity.Name, field)
		}
		if filter.Descending {
			col += " DESC"
		}
		q = q.Order(col)
	}

	dbRows, err := q.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.entity.Name, err)
	}
	defer dbRows.Close()

	columns, err := dbRows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out []store.Row
	for dbRows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(store.Row, len(columns)+len(collections))
		for i, col := range columns {
			name, ok := byColumn[strings.ToLower(col)]
			if !ok {
				name = strings.ToLower(col)
			}
			row[name] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", m.entity.Name, err)
	}
	// Release the connection before the association queries
	dbRows.Close()

	for _, field := range collections {
		if err := loadAssociation(db, m, field, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadAssociation(db *gorm.DB, m *tableMeta, field string, rows []store.Row) error {
	a := m.associations[field]
	byOwner := make(map[string]store.Row, len(rows))
	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		id := r[m.entity.PrimaryKey]
		byOwner[fmt.Sprint(id)] = r
		ids = append(ids, id)
		r[field] = []any{}
	}
	if len(ids) == 0 {
		return nil
	}

	links, err := db.Table(a.Table).
		Select(a.OwnColumn, a.OtherColumn).
		Where(a.OwnColumn+" IN ?", ids).
		Order(a.OtherColumn).
		Rows()
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", a.Table, err)
	}
	defer links.Close()

	for links.Next() {
		var own, other any
		if err := links.Scan(&own, &other); err != nil {
			return fmt.Errorf("failed to scan %s: %w", a.Table, err)
		}
		if r, ok := byOwner[fmt.Sprint(normalize(own))]; ok {
			r[field] = append(r[field].([]any), normalize(other))
		}
	}
	return links.Err()
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
