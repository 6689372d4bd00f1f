package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"sheet-reconciler/core/schema"
	"sheet-reconciler/core/store"
	"sheet-reconciler/core/utils"
)

// CollectionMarker prefixes each line of a multi-valued relation cell.
const CollectionMarker = "* "

// compare classifies the fields of a matched pair.
func (e *Engine) compare(ctx context.Context, rc *Context, ds *schema.Dataset, result *DatasetResult, rec *Record) error {
	for _, col := range ds.Columns {
		if strings.EqualFold(col.Name, ds.Entity.PrimaryKey) {
			continue
		}
		cell, selected := rec.External[col.Name]
		if !selected {
			continue
		}

		if col.IsRelation() {
			if err := e.compareRelation(ctx, rc, col, result, rec, cell); err != nil {
				return err
			}
			continue
		}

		stored, ok := rec.Store[col.Name]
		if !ok {
			rec.addMismatch(Mismatch{
				Field:   col.Name,
				Kind:    KindConcrete,
				Status:  MismatchFieldMissing,
				Message: fmt.Sprintf("field [%s] doesn't exist in the store", col.Name),
			})
			continue
		}
		if !EqualValue(stored, cell) {
			rec.addMismatch(Mismatch{
				Field:   col.Name,
				Kind:    KindConcrete,
				Status:  MismatchValue,
				Message: fmt.Sprintf("values differ, store: %q, sheet: %q", FormatValue(stored), cell),
				Extra:   map[string]string{"store": FormatValue(stored), "sheet": cell},
			})
		}
	}

	var unknown []string
	for h := range rec.External {
		if _, ok := ds.Column(h); !ok {
			unknown = append(unknown, h)
		}
	}
	sort.Strings(unknown)
	for _, h := range unknown {
		rec.addMismatch(Mismatch{
			Field:   h,
			Kind:    KindConcrete,
			Status:  MismatchFieldMissing,
			Message: fmt.Sprintf("field [%s] doesn't exist on entity [%s]", h, ds.Entity.Name),
		})
	}
	return nil
}

// resolveRelations resolves the relation cells of a sheet-only row so that commits know their targets.
func (e *Engine) resolveRelations(ctx context.Context, rc *Context, ds *schema.Dataset, result *DatasetResult, rec *Record) error {
	for _, col := range ds.Columns {
		if !col.IsRelation() {
			continue
		}
		cell, selected := rec.External[col.Name]
		if !selected {
			continue
		}
		if err := e.compareRelation(ctx, rc, col, result, rec, cell); err != nil {
			return err
		}
	}
	return nil
}

// compareRelation resolves every candidate in a relation cell against the reconciled
// records of the referenced entity, then compares the candidate identities with the store row.
func (e *Engine) compareRelation(ctx context.Context, rc *Context, col *schema.Column, result *DatasetResult, rec *Record, cell string) error {
	readOnly := col.Format.ReadOnly
	mismatch := func(msg string, extra map[string]string) {
		rec.addMismatch(Mismatch{Field: col.Name, Kind: KindRelation, Status: MismatchValue, Message: msg, Extra: extra})
	}

	target, ok := rc.ForEntity(col.Field.RelatedEntity)
	if !ok {
		if readOnly {
			return nil
		}
		rec.addMismatch(Mismatch{
			Field:   col.Name,
			Kind:    KindRelation,
			Status:  MismatchCannotCompare,
			Message: fmt.Sprintf("referenced entity [%s] isn't reconciled in this run", col.Field.RelatedEntity),
		})
		rec.markUnresolved(col.Name)
		return nil
	}

	candidates := SplitCandidates(cell, col.Field.IsCollection)
	var targets []*Record
	skip := false
	for _, cand := range candidates {
		parts := []string{cand}
		if len(col.References) > 1 {
			parts = strings.Split(cand, KeySeparator)
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if len(parts) != len(col.References) {
				mismatch(fmt.Sprintf("expected %d key parts in [%s], found %d", len(col.References), cand, len(parts)),
					map[string]string{"value": cand})
				rec.markUnresolved(col.Name)
				continue
			}
		}

		found, err := e.lookupReference(ctx, rc, target, col.References, parts)
		if err != nil {
			return err
		}
		if found == nil {
			mismatch("unresolved reference", map[string]string{"value": cand, "entity": target.Entity, "sheet": target.Sheet})
			rec.markUnresolved(col.Name)
			continue
		}
		rec.link(col.Name, found)
		targets = append(targets, found)
		if found.Status == StatusMatchedMismatch {
			if readOnly {
				skip = true
				continue
			}
			mismatch("referenced record has mismatches", map[string]string{"reference": found.DisplayIndex(), "sheet": target.Sheet})
		}
	}

	if skip || rec.Store == nil || rec.unresolved[strings.ToLower(col.Name)] {
		return nil
	}

	want := make([]string, 0, len(targets))
	for _, t := range targets {
		id := target.Identity(t)
		if id == nil {
			mismatch(fmt.Sprintf("referenced record [%s] isn't in the store", t.DisplayIndex()),
				map[string]string{"reference": t.DisplayIndex(), "sheet": target.Sheet})
			return nil
		}
		want = append(want, utils.ToString(id))
	}
	have := identities(rec.Store[col.Name])
	if !sameSet(want, have, col.Field.IsCollection) {
		mismatch("reference differs", map[string]string{
			"store": strings.Join(have, ","),
			"sheet": strings.Join(want, ","),
		})
	}
	return nil
}

// SplitCandidates splits a relation cell into natural keys. Collections hold one
// "* "-prefixed key per line.
func SplitCandidates(cell string, collection bool) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if !collection {
		return []string{cell}
	}
	var out []string
	for _, line := range strings.Split(cell, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, strings.TrimSpace(CollectionMarker)))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// lookupReference finds the record of target addressed by parts, one per reference.
// When the references cover the target's index key the lookup is direct; otherwise
// every record is scanned and matched on its sheet values or chased store values.
func (e *Engine) lookupReference(ctx context.Context, rc *Context, target *DatasetResult, refs []schema.Reference, parts []string) (*Record, error) {
	byField := make(map[string]string, len(refs))
	for i, ref := range refs {
		byField[strings.ToLower(ref.Path[0])] = parts[i]
	}
	if len(byField) == len(target.IndexKey) {
		key := make([]string, 0, len(target.IndexKey))
		for _, k := range target.IndexKey {
			v, ok := byField[strings.ToLower(k)]
			if !ok {
				break
			}
			key = append(key, v)
		}
		if len(key) == len(target.IndexKey) {
			rec, _ := target.Lookup(key...)
			return rec, nil
		}
	}

	for _, rec := range target.Records {
		if rec.Status == StatusUnresolvable {
			continue
		}
		ok, err := e.matchRecord(ctx, rc, target, rec, refs, parts)
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
	}
	return nil, nil
}

func (e *Engine) matchRecord(ctx context.Context, rc *Context, target *DatasetResult, rec *Record, refs []schema.Reference, parts []string) (bool, error) {
	for i, ref := range refs {
		want := parts[i]
		if ref.Path[0] == store.IdentityMarker {
			if id := target.Identity(rec); id == nil || utils.ToString(id) != want {
				return false, nil
			}
			continue
		}

		if len(ref.Path) == 1 && rec.External != nil {
			if v, ok := rec.External[ref.Path[0]]; ok && strings.TrimSpace(v) == want {
				continue
			}
		}
		if rec.Store == nil {
			return false, nil
		}
		v, err := e.chaseRow(ctx, rc, target.Entity, rec.Store, ref.Path)
		if err != nil {
			var ierr *RowIndexError
			if errors.As(err, &ierr) {
				return false, nil
			}
			return false, err
		}
		if v == nil || strings.TrimSpace(utils.ToString(v)) != want {
			return false, nil
		}
	}
	return true, nil
}

func identities(v any) []string {
	switch ids := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, utils.ToString(id))
		}
		return out
	default:
		return []string{utils.ToString(v)}
	}
}

func sameSet(a, b []string, unordered bool) bool {
	if len(a) != len(b) {
		return false
	}
	if unordered {
		a = append([]string(nil), a...)
		b = append([]string(nil), b...)
		sort.Strings(a)
		sort.Strings(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TimeLayout is the layout datetime values are written to sheets with.
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{TimeLayout, time.RFC3339, "2006-01-02", "01-02-06"}

// FormatValue renders a concrete store value as a sheet cell.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(TimeLayout)
	default:
		return utils.ToString(v)
	}
}

// EqualValue compares a store value with a sheet cell, coercing the cell to the store value's type.
func EqualValue(stored any, cell string) bool {
	trimmed := strings.TrimSpace(cell)
	switch v := stored.(type) {
	case nil:
		return trimmed == ""
	case string:
		return v == cell
	case []byte:
		return string(v) == cell
	case bool:
		if trimmed == "" {
			return !v
		}
		return v == utils.ToBool(trimmed)
	case int, int8, int16, int32, int64:
		n, ok := parseSigned(trimmed)
		return ok && n == reflect.ValueOf(v).Int()
	case uint, uint8, uint16, uint32, uint64:
		n, ok := parseUnsigned(trimmed)
		return ok && n == reflect.ValueOf(v).Uint()
	case float32, float64:
		f, err := strconv.ParseFloat(trimmed, 64)
		return err == nil && f == utils.ToFloat(v)
	case time.Time:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, trimmed, v.Location()); err == nil && t.Equal(v.Truncate(0)) {
				return true
			}
			if v.Format(layout) == trimmed {
				return true
			}
		}
		return false
	default:
		return utils.ToString(v) == cell
	}
}

// ConvertCell converts a sheet cell to the type of like, the current store value.
// Blank cells become nil unless the store holds a string.
func ConvertCell(cell string, like any) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		if _, isString := like.(string); isString {
			return cell
		}
		return nil
	}
	switch l := like.(type) {
	case bool:
		return utils.ToBool(trimmed)
	case int, int8, int16, int32, int64:
		if n, ok := parseSigned(trimmed); ok {
			return n
		}
		return cell
	case uint, uint8, uint16, uint32, uint64:
		if n, ok := parseUnsigned(trimmed); ok {
			return n
		}
		return cell
	case float32, float64:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return cell
		}
		return f
	case time.Time:
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, trimmed, l.Location()); err == nil {
				return t
			}
		}
		return cell
	default:
		return cell
	}
}

// maxExactFloat is the largest magnitude below which every integer has an exact float64.
const maxExactFloat = 1 << 53

func parseSigned(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, ok := integralFloat(s)
	return int64(f), ok
}

func parseUnsigned(s string) (uint64, bool) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, true
	}
	f, ok := integralFloat(s)
	if !ok || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

// integralFloat accepts integers written as floats, such as "12.0".
func integralFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return 0, false
	}
	return f, true
}
