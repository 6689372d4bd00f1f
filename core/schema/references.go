package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheet-reconciler/core/store"
)

// RelativeMarker starts a reference expression relative to the field's related entity.
const RelativeMarker = "$model"

// ReferenceErrorKind classifies reference resolution failures.
type ReferenceErrorKind string

const (
	ReferenceSyntax         ReferenceErrorKind = "syntax"
	ReferenceNotRelation    ReferenceErrorKind = "not_relation"
	ReferenceEntityMismatch ReferenceErrorKind = "entity_mismatch"
	ReferenceUnknownPath    ReferenceErrorKind = "unknown_path"
)

// ReferenceError is returned when a reference expression cannot be resolved.
type ReferenceError struct {
	Kind       ReferenceErrorKind
	Entity     string
	Field      string
	Expression string
	Reason     string
}

func (e *ReferenceError) Error() string {
	if e.Expression == "" {
		return fmt.Sprintf("entity [%s], field [%s]: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("entity [%s], field [%s], reference [%s]: %s", e.Entity, e.Field, e.Expression, e.Reason)
}

// FieldProvider supplies entity metadata. store.Store satisfies it.
type FieldProvider interface {
	Entity(ctx context.Context, name string) (*store.Entity, error)
}

// DefaultReference is the reference synthesized for relation fields without one.
func DefaultReference(field store.Field) Reference {
	return Reference{Entity: field.RelatedEntity, Path: []string{store.IdentityMarker}, IsDefault: true}
}

// ResolveReferences resolves the reference expressions declared for field of entity.
// A relation field without expressions gets the default identity reference.
// Failures are returned as *ReferenceError; any other error comes from the provider.
func ResolveReferences(ctx context.Context, provider FieldProvider, entity *store.Entity, field store.Field, exprs []string) ([]Reference, error) {
	if len(exprs) > 0 && !field.IsRelation {
		return nil, &ReferenceError{
			Kind:   ReferenceNotRelation,
			Entity: entity.Name,
			Field:  field.Name,
			Reason: fmt.Sprintf("isn't a reference field, mapper references: %v", exprs),
		}
	}
	if !field.IsRelation {
		return nil, nil
	}
	if len(exprs) == 0 {
		return []Reference{DefaultReference(field)}, nil
	}

	refs := make([]Reference, 0, len(exprs))
	for _, expr := range exprs {
		ref, err := resolveExpression(ctx, provider, entity, field, strings.TrimSpace(expr))
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func resolveExpression(ctx context.Context, provider FieldProvider, entity *store.Entity, field store.Field, expr string) (Reference, error) {
	fail := func(kind ReferenceErrorKind, format string, args ...any) error {
		return &ReferenceError{
			Kind:       kind,
			Entity:     entity.Name,
			Field:      field.Name,
			Expression: expr,
			Reason:     fmt.Sprintf(format, args...),
		}
	}

	parts := strings.Split(expr, ".")
	if len(parts) < 2 {
		return Reference{}, fail(ReferenceSyntax, "expected $model.<path> or <entity>.<path>")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Reference{}, fail(ReferenceSyntax, "empty path segment")
		}
	}

	head := parts[0]
	if head != RelativeMarker && !strings.EqualFold(head, field.RelatedEntity) {
		return Reference{}, fail(ReferenceEntityMismatch, "invalid entity [%s] expected [%s]", head, field.RelatedEntity)
	}

	path, err := resolvePath(ctx, provider, field.RelatedEntity, parts[1:])
	if err != nil {
		var rerr *ReferenceError
		if errors.As(err, &rerr) {
			rerr.Entity, rerr.Field, rerr.Expression = entity.Name, field.Name, expr
		}
		return Reference{}, err
	}
	return Reference{Entity: field.RelatedEntity, Path: path}, nil
}

// resolvePath validates a field path starting at entity and returns it with canonical names.
func resolvePath(ctx context.Context, provider FieldProvider, entity string, path []string) ([]string, error) {
	out := make([]string, 0, len(path))
	current := entity
	for i, seg := range path {
		last := i == len(path)-1
		if strings.EqualFold(seg, store.IdentityMarker) {
			if !last {
				return nil, &ReferenceError{Kind: ReferenceUnknownPath, Reason: "identity marker must end the path"}
			}
			out = append(out, store.IdentityMarker)
			break
		}

		e, err := provider.Entity(ctx, current)
		if err != nil {
			if errors.Is(err, store.ErrEntityNotFound) {
				return nil, &ReferenceError{Kind: ReferenceUnknownPath, Reason: fmt.Sprintf("referenced entity [%s] not found", current)}
			}
			return nil, err
		}
		f, ok := e.Field(seg)
		if !ok {
			return nil, &ReferenceError{Kind: ReferenceUnknownPath, Reason: fmt.Sprintf("invalid reference field [%s] on entity [%s]", seg, e.Name)}
		}
		out = append(out, f.Name)
		if last {
			break
		}
		if !f.IsRelation || f.IsCollection {
			return nil, &ReferenceError{Kind: ReferenceUnknownPath, Reason: fmt.Sprintf("field [%s] on entity [%s] can't be traversed", f.Name, e.Name)}
		}
		current = f.RelatedEntity
	}
	return out, nil
}
