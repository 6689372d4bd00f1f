package dbstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sheet-reconciler/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store implements store.Store on top of a GORM connection. Each table is an entity.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu    sync.Mutex
	metas map[string]*tableMeta
}

// New creates a store over db. Entity metadata is read from the catalog on first use.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Refresh drops the cached catalog so the next call re-inspects the database.
func (s *Store) Refresh() {
	s.mu.Lock()
	s.metas = nil
	s.mu.Unlock()
}

func (s *Store) meta(ctx context.Context, name string) (*tableMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metas == nil {
		metas, err := inspect(s.db.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to inspect database: %w", err)
		}
		s.metas = metas
		s.logger.Debug("Inspected database catalog", zap.Int("tables", len(metas)))
	}
	m, ok := s.metas[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrEntityNotFound, name)
	}
	return m, nil
}

// Entity implements store.Store.
func (s *Store) Entity(ctx context.Context, name string) (*store.Entity, error) {
	m, err := s.meta(ctx, name)
	if err != nil {
		return nil, err
	}
	out := m.entity
	out.Fields = append([]store.Field(nil), m.entity.Fields...)
	return &out, nil
}

// Query implements store.Store.
func (s *Store) Query(ctx context.Context, entity string, fields []string, filter store.Filter) ([]store.Row, error) {
	m, err := s.meta(ctx, entity)
	if err != nil {
		return nil, err
	}
	return query(s.db.WithContext(ctx), m, fields, filter)
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, entity string, id any) (store.Row, error) {
	m, err := s.meta(ctx, entity)
	if err != nil {
		return nil, err
	}
	return get(s.db.WithContext(ctx), m, id)
}

// Upsert implements store.Store. The write and the association replacement share one transaction.
func (s *Store) Upsert(ctx context.Context, entity string, filter map[string]any, payload map[string]any) (store.Row, bool, error) {
	m, err := s.meta(ctx, entity)
	if err != nil {
		return nil, false, err
	}

	where, err := toColumns(m, filter)
	if err != nil {
		return nil, false, err
	}
	values := make(map[string]any)
	collections := make(map[string][]any)
	for field, v := range payload {
		f, ok := m.entity.Field(field)
		if !ok {
			return nil, false, fmt.Errorf("entity %s has no field %s", entity, field)
		}
		if f.IsCollection {
			ids, _ := v.([]any)
			collections[f.Name] = ids
			continue
		}
		values[m.columns[f.Name]] = v
	}

	var (
		row     store.Row
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, found, err := findID(tx, m, where)
		if err != nil {
			return err
		}

		if found {
			if len(values) > 0 {
				if err := tx.Table(m.entity.Name).Where(m.entity.PrimaryKey+" = ?", id).Updates(values).Error; err != nil {
					return fmt.Errorf("failed to update %s: %w", m.entity.Name, err)
				}
			}
		} else {
			insert := make(map[string]any, len(where)+len(values))
			for k, v := range where {
				insert[k] = v
			}
			for k, v := range values {
				insert[k] = v
			}
			if err := tx.Table(m.entity.Name).Create(insert).Error; err != nil {
				return fmt.Errorf("failed to create %s: %w", m.entity.Name, err)
			}
			created = true
			if id, found, err = findID(tx, m, where); err != nil {
				return err
			} else if !found {
				return fmt.Errorf("created %s row could not be read back", m.entity.Name)
			}
		}

		for field, ids := range collections {
			if err := replaceAssociation(tx, m.associations[field], id, ids); err != nil {
				return err
			}
		}

		row, err = get(tx, m, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("Upserted record",
		zap.String("entity", m.entity.Name),
		zap.Any("identity", row.Identity(&m.entity)),
		zap.Bool("created", created),
	)
	return row, created, nil
}

func toColumns(m *tableMeta, fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for field, v := range fields {
		col, ok := m.column(field)
		if !ok {
			return nil, fmt.Errorf("entity %s has no filterable field %s", m.entity.Name, field)
		}
		out[col] = v
	}
	return out, nil
}

func findID(tx *gorm.DB, m *tableMeta, where map[string]any) (any, bool, error) {
	var ids []any
	q := tx.Table(m.entity.Name).Select(m.entity.PrimaryKey)
	if len(where) > 0 {
		q = q.Where(where)
	}
	rows, err := q.Order(m.entity.PrimaryKey + " DESC").Limit(1).Rows()
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up %s: %w", m.entity.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, false, fmt.Errorf("failed to scan %s identity: %w", m.entity.Name, err)
		}
		ids = append(ids, normalize(id))
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return ids[0], true, nil
}

func replaceAssociation(tx *gorm.DB, a association, id any, ids []any) error {
	if err := tx.Table(a.Table).Where(a.OwnColumn+" = ?", id).Delete(nil).Error; err != nil {
		return fmt.Errorf("failed to clear %s: %w", a.Table, err)
	}
	if len(ids) == 0 {
		return nil
	}
	links := make([]map[string]any, 0, len(ids))
	for _, other := range ids {
		links = append(links, map[string]any{a.OwnColumn: id, a.OtherColumn: other})
	}
	if err := tx.Table(a.Table).Create(links).Error; err != nil {
		return fmt.Errorf("failed to link %s: %w", a.Table, err)
	}
	return nil
}
