package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/utils"

	"go.uber.org/zap"
)

// commit writes every sheet-only and mismatched record the policy allows.
// Refused and failed writes end up in result.Unresolved.
func (e *Engine) commit(ctx context.Context, rc *Context, sheet *schema.Sheet, result *DatasetResult, log *zap.Logger) error {
	for _, rec := range result.Records {
		if rec.Status != StatusExternalOnly && rec.Status != StatusMatchedMismatch {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		prev := rec.Status
		err := e.commitRecord(ctx, rc, sheet, result, rec)
		if err == nil {
			log.Debug("Committed record", zap.String("index", rec.DisplayIndex()), zap.String("from", string(prev)))
			continue
		}

		var conflict *CommitConflictError
		if !errors.As(err, &conflict) {
			conflict = &CommitConflictError{Reason: "store write failed", Err: err}
		}
		conflict.Sheet, conflict.Index, conflict.Status = sheet.Name, rec.DisplayIndex(), rec.Status
		result.Unresolved = append(result.Unresolved, conflict)
		log.Warn("Commit refused",
			zap.String("index", conflict.Index),
			zap.String("field", conflict.Field),
			zap.String("reason", conflict.Reason),
			zap.Error(conflict.Err),
		)
	}
	return nil
}

func (e *Engine) commitRecord(ctx context.Context, rc *Context, sheet *schema.Sheet, result *DatasetResult, rec *Record) error {
	ds := sheet.Dataset
	filter := make(map[string]any, len(ds.IndexKey))
	payload := make(map[string]any)
	isKey := make(map[string]bool, len(ds.IndexKey))
	for _, k := range ds.IndexKey {
		isKey[strings.ToLower(k)] = true
	}

	for _, col := range ds.Columns {
		name := strings.ToLower(col.Name)
		if strings.EqualFold(col.Name, ds.Entity.PrimaryKey) {
			continue
		}
		cell, selected := rec.External[col.Name]
		if !selected || (col.Format.ReadOnly && !isKey[name]) {
			continue
		}

		var value any
		if col.IsRelation() {
			v, err := e.relationValue(rc, col, rec, rec.changed[name] || rec.Store == nil)
			if err != nil {
				return err
			}
			value = v
			if isKey[name] && rec.Store != nil {
				value = rec.Store[col.Name]
			}
			if isKey[name] && utils.IsBlank(value) {
				return &CommitConflictError{Field: col.Name, Reason: "index key has no resolved reference"}
			}
		} else {
			var like any
			if rec.Store != nil {
				like = rec.Store[col.Name]
			}
			value = ConvertCell(cell, like)
		}

		if isKey[name] {
			filter[col.Name] = value
		} else {
			payload[col.Name] = value
		}
	}

	row, created, err := e.store.Upsert(ctx, ds.Entity.Name, filter, payload)
	if err != nil {
		return err
	}
	if id := row.Identity(ds.Entity); id != nil {
		rc.forgetRow(rowKey(ds.Entity.Name, id))
	}
	rec.Store = row
	rec.Status = StatusNoChange
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// relationValue returns the identities a relation column should hold. Writing is refused
// for unresolved candidates, candidates without a store identity and, unless forced,
// candidates that are not stable themselves.
func (e *Engine) relationValue(rc *Context, col *schema.Column, rec *Record, changing bool) (any, error) {
	name := strings.ToLower(col.Name)
	if rec.unresolved[name] {
		return nil, &CommitConflictError{Field: col.Name, Reason: "unresolved reference"}
	}
	target, ok := rc.ForEntity(col.Field.RelatedEntity)
	if !ok {
		return nil, &CommitConflictError{Field: col.Name, Reason: fmt.Sprintf("referenced entity [%s] isn't reconciled", col.Field.RelatedEntity)}
	}

	links := rec.links[name]
	ids := make([]any, 0, len(links))
	for _, t := range links {
		id := target.Identity(t)
		if id == nil {
			return nil, &CommitConflictError{Field: col.Name, Reason: fmt.Sprintf("referenced record [%s] isn't in the store", t.DisplayIndex())}
		}
		if changing && !e.opts.ForceUpdate && !t.Status.Stable() {
			return nil, &CommitConflictError{
				Field:  col.Name,
				Reason: fmt.Sprintf("referenced record [%s] is %s, force update required", t.DisplayIndex(), t.Status),
			}
		}
		ids = append(ids, id)
	}

	if col.Field.IsCollection {
		return ids, nil
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids[0], nil
}
