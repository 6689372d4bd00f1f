package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/utils"

	"go.uber.org/zap"
)

func rowKey(entity string, id any) string {
	return strings.ToLower(entity) + indexSeparator + utils.ToString(id)
}

// storeKey builds the key parts of a store row, chasing relation keys to their natural keys.
func (e *Engine) storeKey(ctx context.Context, rc *Context, ds *schema.Dataset, row store.Row) ([]string, error) {
	parts := make([]string, 0, len(ds.IndexKey))
	for _, key := range ds.IndexKey {
		col, ok := ds.Column(key)
		if !ok {
			return nil, &RowIndexError{Side: SideStore, Field: key, Reason: "index column isn't resolved"}
		}
		v := row[col.Name]
		if v == nil {
			return nil, &RowIndexError{Side: SideStore, Field: key, Reason: "empty index value"}
		}

		part := utils.ToString(v)
		if col.IsRelation() {
			nk, err := e.naturalKey(ctx, rc, col, v)
			if err != nil {
				var ierr *RowIndexError
				if errors.As(err, &ierr) {
					ierr.Side, ierr.Field = SideStore, key
				}
				return nil, err
			}
			part = nk
		}
		if strings.TrimSpace(part) == "" {
			return nil, &RowIndexError{Side: SideStore, Field: key, Reason: "empty index value"}
		}
		parts = append(parts, strings.TrimSpace(part))
	}
	return parts, nil
}

// naturalKey renders the referenced record id through the column's references,
// joining multi-part keys with KeySeparator. The key is empty when any part is NULL.
// Results are memoized per run.
func (e *Engine) naturalKey(ctx context.Context, rc *Context, col *schema.Column, id any) (string, error) {
	entity := col.Field.RelatedEntity
	paths := make([]string, len(col.References))
	for i, ref := range col.References {
		paths[i] = ref.PathString()
	}
	cacheKey := strings.Join(paths, ",") + indexSeparator + rowKey(entity, id)
	if v, ok := rc.cachedKey(cacheKey); ok {
		return v, nil
	}

	parts := make([]string, 0, len(col.References))
	for _, ref := range col.References {
		v, err := e.chase(ctx, rc, entity, id, ref.Path)
		if err != nil {
			return "", err
		}
		if utils.IsBlank(v) {
			// a NULL part blanks the whole key
			parts = nil
			break
		}
		parts = append(parts, utils.ToString(v))
	}
	nk := strings.Join(parts, KeySeparator)
	rc.storeKey(cacheKey, nk)
	return nk, nil
}

// chase follows path from the record id of entity and returns the value at its end.
func (e *Engine) chase(ctx context.Context, rc *Context, entity string, id any, path []string) (any, error) {
	if len(path) == 0 || path[0] == store.IdentityMarker {
		return id, nil
	}
	row, err := e.fetch(ctx, rc, entity, id)
	if err != nil {
		return nil, err
	}
	return e.chaseRow(ctx, rc, entity, row, path)
}

// chaseRow follows path starting at an already loaded row.
func (e *Engine) chaseRow(ctx context.Context, rc *Context, entity string, row store.Row, path []string) (any, error) {
	if len(path) == 0 {
		return nil, nil
	}
	meta, err := e.store.Entity(ctx, entity)
	if err != nil {
		return nil, err
	}
	if path[0] == store.IdentityMarker {
		return row.Identity(meta), nil
	}
	v := row[path[0]]
	if len(path) == 1 {
		return v, nil
	}
	f, ok := meta.Field(path[0])
	if !ok || !f.IsRelation {
		return nil, &RowIndexError{Reason: fmt.Sprintf("field [%s] of [%s] can't be traversed", path[0], entity)}
	}
	if v == nil {
		return nil, &RowIndexError{Reason: fmt.Sprintf("relation [%s.%s] is empty", entity, path[0])}
	}
	return e.chase(ctx, rc, f.RelatedEntity, v, path[1:])
}

// fetch returns the store row of entity with identity id, memoized per run.
func (e *Engine) fetch(ctx context.Context, rc *Context, entity string, id any) (store.Row, error) {
	key := rowKey(entity, id)
	if row, ok := rc.cachedRow(key); ok {
		return row, nil
	}
	row, err := e.store.Get(ctx, entity, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, &RowIndexError{Reason: fmt.Sprintf("referenced record %s(%v) not found", entity, id)}
		}
		return nil, fmt.Errorf("failed to load %s(%v): %w", entity, id, err)
	}
	rc.storeRow(key, row)
	return row, nil
}

// KeyRenderer renders relation values as natural keys outside of a reconciliation run.
// Fetched rows and rendered keys are memoized for the renderer's lifetime.
type KeyRenderer struct {
	engine *Engine
	rc     *Context
}

// NewKeyRenderer creates a renderer reading referenced rows from st.
func NewKeyRenderer(st store.Store) *KeyRenderer {
	return &KeyRenderer{engine: &Engine{store: st, logger: zap.NewNop()}, rc: NewContext()}
}

// Render returns the natural key of the record id referenced through col, or an
// empty string when the referenced key is NULL.
func (k *KeyRenderer) Render(ctx context.Context, col *schema.Column, id any) (string, error) {
	return k.engine.naturalKey(ctx, k.rc, col, id)
}
