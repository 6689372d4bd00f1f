package store

import (
	"context"
	"errors"
	"strings"
)

// IdentityMarker is the path segment that names an entity's primary key.
const IdentityMarker = "pk"

var (
	// ErrEntityNotFound is returned when a named entity does not exist in the store.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrRecordNotFound is returned when a lookup by identity finds nothing.
	ErrRecordNotFound = errors.New("record not found")
)

// Field describes one attribute of an entity.
type Field struct {
	// Name is the attribute name as exposed to mapping documents.
	Name string `json:"name"`
	// IsRelation marks fields that point at another entity.
	IsRelation bool `json:"is_relation"`
	// RelatedEntity is the target entity of a relation field.
	RelatedEntity string `json:"related_entity,omitempty"`
	// IsCollection marks multi-valued relations.
	IsCollection bool `json:"is_collection"`
}

// Entity is the metadata of one backing entity.
type Entity struct {
	Name       string  `json:"name"`
	PrimaryKey string  `json:"primary_key"`
	Fields     []Field `json:"fields"`
}

// Field looks up a field by name, ignoring case.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in the entity's natural order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Row is a single record keyed by field name.
// Relation fields hold the target identity, collections hold a []any of identities.
type Row map[string]any

// Identity returns the row's primary key value.
func (r Row) Identity(e *Entity) any {
	return r[e.PrimaryKey]
}

// Filter narrows and orders a query.
type Filter struct {
	// Equals holds field=value conditions, all of which must hold.
	Equals map[string]any
	// Sort lists the fields to order by.
	Sort []string
	// Descending reverses the sort order.
	Descending bool
}

// Store is the relational data store collaborator.
type Store interface {
	// Entity returns the metadata of the named entity or ErrEntityNotFound.
	Entity(ctx context.Context, name string) (*Entity, error)
	// Query returns rows restricted to fields (all fields when empty). The primary key is always present.
	Query(ctx context.Context, entity string, fields []string, filter Filter) ([]Row, error)
	// Get returns the row with the given identity or ErrRecordNotFound.
	Get(ctx context.Context, entity string, id any) (Row, error)
	// Upsert updates the record matching filter with payload, or creates it.
	// Collection values in payload replace the stored association set.
	Upsert(ctx context.Context, entity string, filter map[string]any, payload map[string]any) (Row, bool, error)
}
