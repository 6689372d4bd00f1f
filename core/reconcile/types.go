package reconcile

import (
	"strings"

	"sheet-reconciler/core/store"
)

// Status is the classification of a reconciled record.
type Status string

const (
	// StatusPending is the state before classification.
	StatusPending Status = "PENDING"
	// StatusExternalOnly marks a sheet row with no store counterpart.
	StatusExternalOnly Status = "EXTERNAL_ONLY"
	// StatusStoreOnly marks a store row with no sheet counterpart.
	StatusStoreOnly Status = "STORE_ONLY"
	// StatusMatchedEqual marks a pair without mismatches.
	StatusMatchedEqual Status = "MATCHED_EQUAL"
	// StatusMatchedMismatch marks a pair with at least one mismatch.
	StatusMatchedMismatch Status = "MATCHED_MISMATCH"
	// StatusUnresolvable marks a row whose index could not be computed.
	StatusUnresolvable Status = "UNRESOLVABLE"
	// StatusNoChange marks a record successfully committed to the store.
	StatusNoChange Status = "NO_CHANGE"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusPending,
	StatusExternalOnly,
	StatusStoreOnly,
	StatusMatchedEqual,
	StatusMatchedMismatch,
	StatusUnresolvable,
	StatusNoChange,
}

// Stable reports whether a referenced record in this status may be pointed at without force.
func (s Status) Stable() bool {
	return s == StatusMatchedEqual || s == StatusNoChange || s == StatusStoreOnly
}

// FieldKind tells concrete and relation fields apart in mismatches.
type FieldKind string

const (
	KindConcrete FieldKind = "CONCRETE"
	KindRelation FieldKind = "RELATION"
)

// MismatchStatus classifies a field mismatch.
type MismatchStatus string

const (
	// MismatchValue is a differing value or an unresolved reference.
	MismatchValue MismatchStatus = "MISMATCH"
	// MismatchFieldMissing is a field present on one side only.
	MismatchFieldMissing MismatchStatus = "FIELD_MISSING"
	// MismatchCannotCompare is a relation whose target was not reconciled in this run.
	MismatchCannotCompare MismatchStatus = "CANNOT_COMPARE"
)

// Mismatch is one field-level difference between a sheet row and a store row.
type Mismatch struct {
	Field   string            `json:"field"`
	Kind    FieldKind         `json:"kind"`
	Status  MismatchStatus    `json:"status"`
	Message string            `json:"message"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// indexSeparator joins key parts internally. It cannot appear in a trimmed cell
// typed by hand, so distinct key tuples never collide.
const indexSeparator = "\x1f"

// KeySeparator joins key parts for display and multi-part natural keys in cells.
const KeySeparator = " - "

// Record pairs at most one sheet row with at most one store row.
type Record struct {
	Key []string `json:"key"`
	// Row is the 1-based sheet row, zero for store-only records.
	Row        int               `json:"row,omitempty"`
	External   map[string]string `json:"external,omitempty"`
	Store      store.Row         `json:"store,omitempty"`
	Status     Status            `json:"status"`
	Mismatches []Mismatch        `json:"mismatches,omitempty"`
	// Reason explains an UNRESOLVABLE status.
	Reason string `json:"reason,omitempty"`

	index string
	// links holds the referenced records resolved per relation field.
	links map[string][]*Record
	// unresolved marks relation fields with a candidate that resolved to nothing.
	unresolved map[string]bool
	// changed marks fields with a mismatch.
	changed map[string]bool
}

// DisplayIndex returns the composite index as shown to users.
func (r *Record) DisplayIndex() string {
	return strings.Join(r.Key, KeySeparator)
}

func (r *Record) addMismatch(m Mismatch) {
	r.Mismatches = append(r.Mismatches, m)
	if r.changed == nil {
		r.changed = make(map[string]bool)
	}
	r.changed[strings.ToLower(m.Field)] = true
}

func (r *Record) link(field string, target *Record) {
	if r.links == nil {
		r.links = make(map[string][]*Record)
	}
	r.links[strings.ToLower(field)] = append(r.links[strings.ToLower(field)], target)
}

func (r *Record) markUnresolved(field string) {
	if r.unresolved == nil {
		r.unresolved = make(map[string]bool)
	}
	r.unresolved[strings.ToLower(field)] = true
}

// DatasetResult is the outcome of reconciling one sheet.
type DatasetResult struct {
	Sheet    string   `json:"sheet"`
	Dataset  string   `json:"dataset"`
	Entity   string   `json:"entity"`
	IndexKey []string `json:"index_key"`
	// Records are sheet rows in sheet order followed by store-only rows in store order.
	Records       []*Record `json:"records"`
	TotalExternal int       `json:"total_external"`
	TotalStore    int       `json:"total_store"`
	// Unresolved holds every commit attempt that was refused or failed.
	Unresolved []*CommitConflictError `json:"unresolved"`
	Created    int                    `json:"created"`
	Updated    int                    `json:"updated"`

	entity  *store.Entity
	byIndex map[string]*Record
}

func newDatasetResult(sheet, dataset string, entity *store.Entity, indexKey []string) *DatasetResult {
	return &DatasetResult{
		Sheet:      sheet,
		Dataset:    dataset,
		Entity:     entity.Name,
		IndexKey:   indexKey,
		Unresolved: []*CommitConflictError{},
		entity:     entity,
		byIndex:    make(map[string]*Record),
	}
}

// Lookup finds a record by its key parts in index-key order.
func (d *DatasetResult) Lookup(parts ...string) (*Record, bool) {
	r, ok := d.byIndex[strings.Join(parts, indexSeparator)]
	return r, ok
}

// Identity returns the store identity of r, or nil when r has no store row.
func (d *DatasetResult) Identity(r *Record) any {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Identity(d.entity)
}

// Counts returns the number of records per status.
func (d *DatasetResult) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, r := range d.Records {
		out[r.Status]++
	}
	return out
}

// Issues counts records that are not in agreement with the store.
func (d *DatasetResult) Issues() int {
	n := 0
	for _, r := range d.Records {
		if r.Status != StatusMatchedEqual && r.Status != StatusNoChange {
			n++
		}
	}
	return n
}
